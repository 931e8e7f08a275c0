package cli

import (
	"github.com/pkg/errors"

	"github.com/tcfw/blockmesh/pkg/consensus"
)

// Harness exit codes
const (
	ExitOK       = 0
	ExitRejected = 1
	ExitSafety   = 2
	ExitLiveness = 3
)

// ExitCode maps a command error to the harness contract: 0 success,
// 1 validation/network/consensus rejection, 2 safety violation,
// 3 liveness violation
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var sv *consensus.SafetyViolation
	if errors.As(err, &sv) {
		return ExitSafety
	}

	var lv *consensus.LivenessViolation
	if errors.As(err, &lv) {
		return ExitLiveness
	}

	return ExitRejected
}
