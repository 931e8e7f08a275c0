package peering

import "github.com/pkg/errors"

var (
	ErrUnknownNode = errors.New("node not registered")
	ErrUnknownKind = errors.New("unknown node kind")
	ErrUnknownRole = errors.New("unknown role")

	// role errors
	ErrNoRoles             = errors.New("node must carry at least one role")
	ErrArchiveRequiresFull = errors.New("archive role requires a full node")
	ErrDuplicateNode       = errors.New("node id already registered")

	// capacity errors
	ErrNegativeCapacity   = errors.New("capacities must be non-negative")
	ErrStorageBelowMark   = errors.New("full node storage below high-water mark")
	ErrSyncSetIncomplete  = errors.New("full node sync set missing known blocks")
	ErrSyncSetNotSubset   = errors.New("light node sync set must be a strict subset")
	ErrSyncSetUnknownSync = errors.New("sync set references unknown block")
)

func IsRoleError(err error) bool {
	return errors.Is(err, ErrNoRoles) ||
		errors.Is(err, ErrArchiveRequiresFull) ||
		errors.Is(err, ErrUnknownRole)
}

func IsCapacityError(err error) bool {
	return errors.Is(err, ErrNegativeCapacity) ||
		errors.Is(err, ErrStorageBelowMark)
}
