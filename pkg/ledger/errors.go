package ledger

import "github.com/pkg/errors"

var (
	ErrNotFound      = errors.New("block not found")
	ErrNotApplicable = errors.New("height only applies to chain blocks")

	ErrUndefinedID       = errors.New("block id undefined")
	ErrIDCollision       = errors.New("block id already appended")
	ErrModeViolation     = errors.New("block must be chain or dag, not both or neither")
	ErrUnknownParent     = errors.New("referenced predecessor not in store")
	ErrCycle             = errors.New("block introduces ancestry cycle")
	ErrMissingMerkleRoot = errors.New("merkle root missing")
	ErrDuplicateTx       = errors.New("tx already recorded in a block")
	ErrMissingAncestorTx = errors.New("ancestor tx missing from chain block")
)

var validationErrs = []error{
	ErrUndefinedID,
	ErrIDCollision,
	ErrModeViolation,
	ErrUnknownParent,
	ErrCycle,
	ErrMissingMerkleRoot,
	ErrDuplicateTx,
	ErrMissingAncestorTx,
}

// IsValidationError reports whether err is one of the append-time
// rejection subkinds, as opposed to a lookup failure
func IsValidationError(err error) bool {
	for _, e := range validationErrs {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}
