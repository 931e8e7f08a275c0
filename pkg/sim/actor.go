package sim

import (
	"sync"

	"github.com/libp2p/go-libp2p-core/peer"
)

// actor serializes one node's state mutations: a single goroutine
// draining an inbox, one inbound event at a time. Cross-node work
// runs in parallel on separate actors
type actor struct {
	id    peer.ID
	inbox chan task

	closeOnce sync.Once
	closed    chan struct{}
}

type task struct {
	fn  func() error
	res chan error
}

func newActor(id peer.ID) *actor {
	a := &actor{
		id:     id,
		inbox:  make(chan task, 16),
		closed: make(chan struct{}),
	}

	go a.loop()

	return a
}

func (a *actor) loop() {
	for {
		select {
		case t := <-a.inbox:
			t.res <- t.fn()
		case <-a.closed:
			return
		}
	}
}

// do runs fn on the actor's goroutine and waits for the result
func (a *actor) do(fn func() error) error {
	t := task{fn: fn, res: make(chan error, 1)}

	select {
	case a.inbox <- t:
	case <-a.closed:
		return errClosed
	}

	select {
	case err := <-t.res:
		return err
	case <-a.closed:
		return errClosed
	}
}

func (a *actor) close() {
	a.closeOnce.Do(func() { close(a.closed) })
}
