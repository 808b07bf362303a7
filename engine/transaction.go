package engine

import "sync/atomic"

// TransactionID is a process-wide monotonically unique token: allocated on
// begin, consumed by commit or abort, never reused.
type TransactionID int64

var nextTID int64

// NewTID allocates a fresh, never-reused transaction identifier.
func NewTID() TransactionID {
	return TransactionID(atomic.AddInt64(&nextTID, 1))
}
