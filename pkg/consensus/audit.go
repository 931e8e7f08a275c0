package consensus

import (
	"fmt"
	"sort"

	"github.com/libp2p/go-libp2p-core/peer"
)

// SafetyViolation names a pair of decisions whose values diverge.
// Audits detect, they never correct
type SafetyViolation struct {
	A Decision
	B Decision
}

func (v *SafetyViolation) Error() string {
	return fmt.Sprintf("safety violation: %s decided %q, %s decided %q",
		v.A.Decider, v.A.Value, v.B.Decider, v.B.Value)
}

// LivenessViolation lists the non-faulty nodes still undecided when
// the bounded-time check ran out
type LivenessViolation struct {
	Undecided []peer.ID
}

func (v *LivenessViolation) Error() string {
	return fmt.Sprintf("liveness violation: %d node(s) undecided", len(v.Undecided))
}

// AuditSafety is the out-of-band agreement check over all decision
// records; nil when every decided pair agrees
func (e *Engine) AuditSafety() *SafetyViolation {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var first *Decision
	for _, id := range e.reg.Nodes() {
		d, ok := e.decisions[id]
		if !ok {
			continue
		}

		if first == nil {
			first = d
			continue
		}

		if d.Value != first.Value {
			return &SafetyViolation{A: *first, B: *d}
		}
	}

	return nil
}

// AuditLiveness is the bounded-time termination check: every
// non-faulty node must have reached Decided by the time it runs
func (e *Engine) AuditLiveness() *LivenessViolation {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var undecided []peer.ID
	for _, id := range e.reg.NonFaulty() {
		if e.steps[id] != Decided {
			undecided = append(undecided, id)
		}
	}

	if len(undecided) == 0 {
		return nil
	}

	sort.Slice(undecided, func(i, j int) bool { return undecided[i] < undecided[j] })

	return &LivenessViolation{Undecided: undecided}
}
