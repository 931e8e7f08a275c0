package sim

import (
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tcfw/blockmesh/pkg/consensus"
	"github.com/tcfw/blockmesh/pkg/gossip"
	"github.com/tcfw/blockmesh/pkg/ledger"
	"github.com/tcfw/blockmesh/pkg/peering"
)

var (
	errClosed = errors.New("scheduler closed")

	// ErrExhausted is returned when the retry budget runs out before
	// every non-faulty node decides; the liveness audit reports the
	// stragglers
	ErrExhausted = errors.New("retry budget exhausted")
)

// Delivery is one attempted gossip hop
type Delivery struct {
	Sender   peer.ID
	Receiver peer.ID
	Block    ledger.BlockID
	Size     uint64
	At       int64
	Attempt  int
}

// LossFn decides whether a delivery attempt is dropped
type LossFn func(Delivery) bool

// Scheduler drives the node actors: it retries dropped gossip with
// backoff and triggers propose/decide until termination or budget
// exhaustion. Retry policy lives here, never inside the core
type Scheduler struct {
	reg *peering.Registry
	net *gossip.Network
	eng *consensus.Engine

	mu     sync.Mutex
	actors map[peer.ID]*actor

	loss        LossFn
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration

	logger *logrus.Entry
}

type Option func(*Scheduler)

func WithLoss(fn LossFn) Option {
	return func(s *Scheduler) { s.loss = fn }
}

func WithMaxAttempts(n int) Option {
	return func(s *Scheduler) { s.maxAttempts = n }
}

func WithBackoff(min, max time.Duration) Option {
	return func(s *Scheduler) {
		s.minBackoff = min
		s.maxBackoff = max
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(s *Scheduler) { s.logger = l }
}

func NewScheduler(reg *peering.Registry, net *gossip.Network, eng *consensus.Engine, opts ...Option) *Scheduler {
	s := &Scheduler{
		reg:         reg,
		net:         net,
		eng:         eng,
		actors:      make(map[peer.ID]*actor),
		maxAttempts: 10,
		minBackoff:  10 * time.Millisecond,
		maxBackoff:  500 * time.Millisecond,
		logger:      logrus.NewEntry(logrus.New()),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Scheduler) actorFor(id peer.ID) *actor {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actors[id]
	if !ok {
		a = newActor(id)
		s.actors[id] = a
	}

	return a
}

// Do runs fn serialized against the node's other mutations
func (s *Scheduler) Do(id peer.ID, fn func() error) error {
	return s.actorFor(id).do(fn)
}

func (s *Scheduler) newBackoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    s.minBackoff,
		Max:    s.maxBackoff,
		Factor: 2,
		Jitter: true,
	}
}

// Deliver attempts the gossip hop, retrying dropped attempts with
// backoff up to the attempt budget. An exhausted budget surfaces
// ErrDropped; validation rejections are returned immediately
func (s *Scheduler) Deliver(d Delivery) error {
	b := s.newBackoff()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		d.Attempt = attempt

		if s.loss != nil && s.loss(d) {
			s.logger.WithFields(logrus.Fields{
				"sender":   d.Sender.String(),
				"receiver": d.Receiver.String(),
				"attempt":  attempt,
			}).Debug("gossip dropped, backing off")

			time.Sleep(b.Duration())
			continue
		}

		return s.actorFor(d.Receiver).do(func() error {
			return s.net.SendGossip(d.Sender, d.Receiver, d.Block, d.Size, d.At)
		})
	}

	return errors.Wrapf(gossip.ErrDropped, "after %d attempts", s.maxAttempts)
}

// DriveDecisions retries proposal and decision triggers across the
// non-faulty set until every node decides or the budget runs out.
// Logical time advances one tick per transition
func (s *Scheduler) DriveDecisions(value string, at int64) error {
	b := s.newBackoff()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if s.step(value, &at) {
			return nil
		}

		time.Sleep(b.Duration())
	}

	return errors.Wrapf(ErrExhausted, "after %d attempts", s.maxAttempts)
}

// step pushes every non-faulty node one transition forward where
// possible; true once all have decided
func (s *Scheduler) step(value string, at *int64) bool {
	done := true

	for _, id := range s.reg.NonFaulty() {
		id := id

		switch s.eng.Step(id) {
		case consensus.Idle:
			done = false
			t := *at
			*at++

			if err := s.actorFor(id).do(func() error { return s.eng.Propose(id, value, t) }); err != nil {
				s.logger.WithError(err).WithField("node", id.String()).Debug("propose retry pending")
			}
		case consensus.Proposed:
			done = false
			t := *at
			*at++

			if err := s.actorFor(id).do(func() error { return s.eng.Decide(id, value, t) }); err != nil {
				s.logger.WithError(err).WithField("node", id.String()).Debug("decide retry pending")
			}
		}
	}

	if !done {
		return false
	}

	return s.eng.AuditLiveness() == nil
}

// Close drains and stops all node actors
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.actors {
		a.close()
	}
}
