package engine

import "sync"

// RWPerm is the permission a caller requests when reading or locking a
// page.
type RWPerm int

const (
	ReadPerm RWPerm = iota
	WritePerm
)

type lockMode int

const (
	sharedLock lockMode = iota
	exclusiveLock
)

type lockHolder struct {
	tid  TransactionID
	mode lockMode
}

// LockTable implements strict two-phase locking at page granularity: per
// PageID, an ordered set of (transactionID, mode) holders where at most one
// exclusive holder may be present, never alongside any other holder.
//
// Every mutating method is one critical section; there is no separate
// per-page mutex, matching the spec's "one critical section per call".
type LockTable struct {
	mu      sync.Mutex
	holders map[PageID][]lockHolder
}

// NewLockTable constructs an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{holders: make(map[PageID][]lockHolder)}
}

func permToMode(perm RWPerm) lockMode {
	if perm == WritePerm {
		return exclusiveLock
	}
	return sharedLock
}

// Acquire attempts to grant tid the requested permission on pid, applying
// the eight cases from the lock-table spec. It returns false (without
// blocking) if the request must be denied; the caller is expected to retry
// until success or a deadlock-timeout deadline expires.
func (lt *LockTable) Acquire(pid PageID, tid TransactionID, perm RWPerm) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	mode := permToMode(perm)
	entries := lt.holders[pid]

	if len(entries) == 0 {
		lt.holders[pid] = []lockHolder{{tid: tid, mode: mode}}
		return true
	}

	for i, h := range entries {
		if h.tid != tid {
			continue
		}
		if h.mode == mode {
			return true // reentrant
		}
		if h.mode == exclusiveLock {
			return true // exclusive covers a later shared request
		}
		// h.mode == sharedLock, request is exclusive: upgrade only if sole holder
		if len(entries) == 1 {
			entries[i].mode = exclusiveLock
			return true
		}
		return false
	}

	// tid not currently a holder
	holderIsExclusive := len(entries) == 1 && entries[0].mode == exclusiveLock
	if holderIsExclusive {
		return false
	}
	if mode == exclusiveLock {
		return false // other shared holders exist; exclusive must wait
	}
	lt.holders[pid] = append(entries, lockHolder{tid: tid, mode: sharedLock})
	return true
}

// Release drops tid's single entry on pid, removing the page key entirely
// once empty.
func (lt *LockTable) Release(pid PageID, tid TransactionID) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.releaseLocked(pid, tid)
}

func (lt *LockTable) releaseLocked(pid PageID, tid TransactionID) {
	entries := lt.holders[pid]
	for i, h := range entries {
		if h.tid == tid {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(lt.holders, pid)
	} else {
		lt.holders[pid] = entries
	}
}

// heldPagesLocked returns the pages tid currently holds a lock on. Caller
// holds lt.mu.
func (lt *LockTable) heldPagesLocked(tid TransactionID) []PageID {
	var out []PageID
	for pid, entries := range lt.holders {
		for _, h := range entries {
			if h.tid == tid {
				out = append(out, pid)
				break
			}
		}
	}
	return out
}

// ReleaseAll releases every lock currently held by tid, called only at
// transaction completion (strict 2PL).
func (lt *LockTable) ReleaseAll(tid TransactionID) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	for _, pid := range lt.heldPagesLocked(tid) {
		lt.releaseLocked(pid, tid)
	}
}

// HoldsLock reports whether tid holds any lock on pid.
func (lt *LockTable) HoldsLock(pid PageID, tid TransactionID) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	for _, h := range lt.holders[pid] {
		if h.tid == tid {
			return true
		}
	}
	return false
}

// HeldPages returns the set of pages tid currently holds a lock on,
// snapshotted under the table's lock.
func (lt *LockTable) HeldPages(tid TransactionID) []PageID {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.heldPagesLocked(tid)
}
