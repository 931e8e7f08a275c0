package consensus

import (
	"sync"

	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tcfw/blockmesh/pkg/peering"
)

// Knowledge is the ledger-tip precondition source: a node may only
// decide once it has learned at least one block. The gossip network
// satisfies this
type Knowledge interface {
	HasAny(peer.ID) bool
}

// Engine runs the per-node Idle -> Proposed -> Decided machine.
// Transitions for a given node are serialized; agreement across
// nodes is audited out-of-band, never enforced inside Decide
type Engine struct {
	mu sync.RWMutex

	reg  *peering.Registry
	know Knowledge

	steps     map[peer.ID]Step
	proposals map[peer.ID]*Proposal
	decisions map[peer.ID]*Decision

	logger *logrus.Entry
}

func NewEngine(reg *peering.Registry, know Knowledge, logger *logrus.Entry) *Engine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	return &Engine{
		reg:       reg,
		know:      know,
		steps:     make(map[peer.ID]Step),
		proposals: make(map[peer.ID]*Proposal),
		decisions: make(map[peer.ID]*Decision),
		logger:    logger,
	}
}

func (e *Engine) eligible(id peer.ID) error {
	faulty, err := e.reg.IsFaulty(id)
	if err != nil {
		return err
	}

	if faulty {
		return errors.Wrapf(ErrNotEligible, "%s", id)
	}

	return nil
}

// Propose records the node's single proposal, valid only from Idle
func (e *Engine) Propose(id peer.ID, value string, t int64) error {
	if err := e.eligible(id); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.steps[id] != Idle {
		return errors.Wrapf(ErrDuplicateProposal, "%s is %s", id, e.steps[id])
	}

	e.proposals[id] = &Proposal{Proposer: id, Value: value, At: t}
	e.steps[id] = Proposed

	e.logger.WithFields(logrus.Fields{"node": id.String(), "t": t}).Debug("proposed")

	return nil
}

// Decide records the node's single decision, valid only from
// Proposed, strictly after its own proposal, for a value some node
// proposed (validity), and only once the node knows a block
func (e *Engine) Decide(id peer.ID, value string, t int64) error {
	if err := e.eligible(id); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.steps[id] {
	case Idle:
		return errors.Wrapf(ErrNotProposed, "%s", id)
	case Decided:
		return errors.Wrapf(ErrDuplicateDecision, "%s", id)
	}

	if t <= e.proposals[id].At {
		return errors.Wrapf(ErrPrematureDecision, "decide %d <= propose %d", t, e.proposals[id].At)
	}

	proposed := false
	for _, p := range e.proposals {
		if p.Value == value {
			proposed = true
			break
		}
	}
	if !proposed {
		return errors.Wrapf(ErrUnproposedValue, "%q", value)
	}

	if e.know != nil && !e.know.HasAny(id) {
		return errors.Wrapf(ErrNoKnownBlock, "%s", id)
	}

	e.decisions[id] = &Decision{Decider: id, Value: value, At: t}
	e.steps[id] = Decided

	e.logger.WithFields(logrus.Fields{"node": id.String(), "t": t}).Debug("decided")

	return nil
}

func (e *Engine) Step(id peer.ID) Step {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.steps[id]
}

func (e *Engine) Proposal(id peer.ID) (*Proposal, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.proposals[id]
	if !ok {
		return nil, false
	}

	c := *p
	return &c, true
}

func (e *Engine) Decision(id peer.ID) (*Decision, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	d, ok := e.decisions[id]
	if !ok {
		return nil, false
	}

	c := *d
	return &c, true
}

func (e *Engine) Decisions() []Decision {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Decision, 0, len(e.decisions))
	for _, d := range e.decisions {
		out = append(out, *d)
	}

	return out
}

// Restore reseeds a node's records, used when replaying persisted
// state through the engine
func (e *Engine) Restore(p *Proposal, d *Decision) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p != nil {
		c := *p
		e.proposals[p.Proposer] = &c
		e.steps[p.Proposer] = Proposed
	}

	if d != nil {
		c := *d
		e.decisions[d.Decider] = &c
		e.steps[d.Decider] = Decided
	}
}
