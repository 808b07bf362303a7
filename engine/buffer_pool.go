package engine

import (
	"math/rand"
	"sync"
	"time"
)

// DeadlockTimeout is the wall-clock budget a getPage call waits for a lock
// before aborting its transaction. Deadlocks are detected by timeout, not a
// wait-for graph (see design notes).
var DeadlockTimeout = 100 * time.Millisecond

const lockPollInterval = time.Millisecond

// BufferPool caches up to NumPages pages and is the single gateway to
// pages: every access is mediated by the lock table, dirty pages are
// tracked per transaction, and eviction respects the NO-STEAL policy.
type BufferPool struct {
	NumPages int
	wal      WALWriter

	mu         sync.Mutex
	pages      map[PageID]Page
	dirtiedBy  map[TransactionID]map[PageID]struct{}
	activeTxns map[TransactionID]struct{}
	rng        *rand.Rand
	lockTable  *LockTable
}

// NewBufferPool creates a buffer pool with capacity numPages, logging
// through wal (pass discardWAL{} for tests that don't care about the log).
func NewBufferPool(numPages int, wal WALWriter) *BufferPool {
	if wal == nil {
		wal = discardWAL{}
	}
	return &BufferPool{
		NumPages:   numPages,
		wal:        wal,
		pages:      make(map[PageID]Page),
		dirtiedBy:  make(map[TransactionID]map[PageID]struct{}),
		activeTxns: make(map[TransactionID]struct{}),
		rng:        rand.New(rand.NewSource(1)),
		lockTable:  NewLockTable(),
	}
}

// ensureLockTable lazily creates the pool's lock table. NewBufferPool
// already does this; the guard exists for zero-value BufferPool literals
// used by the narrowest unit tests.
func (bp *BufferPool) ensureLockTable() {
	if bp.lockTable == nil {
		bp.lockTable = NewLockTable()
	}
}

// Size returns the number of pages currently cached.
func (bp *BufferPool) Size() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pages)
}

// BeginTransaction registers tid as active. Returns an error if tid is
// already running.
func (bp *BufferPool) BeginTransaction(tid TransactionID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.ensureLockTable()
	if _, ok := bp.activeTxns[tid]; ok {
		return newErr(IllegalOperationError, "transaction %d already running", tid)
	}
	bp.activeTxns[tid] = struct{}{}
	bp.dirtiedBy[tid] = make(map[PageID]struct{})
	return nil
}

// getPage acquires a shared or exclusive lock on pid per perm (blocking,
// with a deadlock-timeout ceiling), then returns the cached page or loads
// it from file, evicting a clean victim if the pool is full.
func (bp *BufferPool) getPage(tid TransactionID, file DBFile, pageNumber int, perm RWPerm) (Page, error) {
	pid := file.pageKey(pageNumber)

	bp.mu.Lock()
	bp.ensureLockTable()
	bp.mu.Unlock()

	deadline := time.Now().Add(DeadlockTimeout)
	for {
		if bp.lockTable.Acquire(pid, tid, perm) {
			break
		}
		if time.Now().After(deadline) {
			return nil, newErr(TransactionAbortedError, "timed out waiting for %v lock on %v", perm, pid)
		}
		time.Sleep(lockPollInterval)
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if page, ok := bp.pages[pid]; ok {
		return page, nil
	}

	if len(bp.pages) >= bp.NumPages {
		if err := bp.evictPageLocked(); err != nil {
			return nil, err
		}
	}

	page, err := file.readPage(pageNumber)
	if err != nil {
		return nil, err
	}
	bp.pages[pid] = page
	return page, nil
}

// GetPage is the exported form of getPage for callers outside the package
// (operators in this module call the lower-case form directly).
func (bp *BufferPool) GetPage(tid TransactionID, file DBFile, pageNumber int, perm RWPerm) (Page, error) {
	return bp.getPage(tid, file, pageNumber, perm)
}

// evictPageLocked samples cached pages at random looking for a clean
// victim; a dirty sample is recorded and retried. Once every distinct
// cached page has been sampled dirty, eviction fails -- the NO-STEAL
// policy never evicts a dirty page, so a pool full of dirty pages has no
// legal victim. Caller holds bp.mu.
func (bp *BufferPool) evictPageLocked() error {
	keys := make([]PageID, 0, len(bp.pages))
	for k := range bp.pages {
		keys = append(keys, k)
	}
	seenDirty := make(map[PageID]struct{})
	for len(seenDirty) < len(keys) {
		pid := keys[bp.rng.Intn(len(keys))]
		page := bp.pages[pid]
		if !page.isDirty() {
			delete(bp.pages, pid)
			return nil
		}
		seenDirty[pid] = struct{}{}
	}
	return newErr(BufferPoolFullError, "buffer pool exhausted: all %d cached pages are dirty", len(keys))
}

// ReleasePage drops tid's lock on pid. It does not take bp.mu: the lock
// table serializes the release itself.
func (bp *BufferPool) ReleasePage(tid TransactionID, pid PageID) {
	bp.lockTable.Release(pid, tid)
}

// HoldsLock reports whether the lock table has (tid, *) on pid.
func (bp *BufferPool) HoldsLock(tid TransactionID, pid PageID) bool {
	return bp.lockTable.HoldsLock(pid, tid)
}

func (bp *BufferPool) markDirty(tid TransactionID, pages []Page) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	set, ok := bp.dirtiedBy[tid]
	if !ok {
		set = make(map[PageID]struct{})
		bp.dirtiedBy[tid] = set
	}
	for _, p := range pages {
		bp.pages[p.pageID()] = p
		set[p.pageID()] = struct{}{}
	}
}

// insertTuple delegates to the table's file, marks every page it dirtied,
// and caches them.
func (bp *BufferPool) insertTuple(tid TransactionID, file DBFile, t *Tuple) error {
	pages, err := file.insertTuple(tid, t)
	if err != nil {
		return err
	}
	bp.markDirty(tid, pages)
	return nil
}

// deleteTuple delegates to file (HeapFile.deleteTuple resolves the owning
// page from t.Rid), marks every page it dirtied, and caches them.
func (bp *BufferPool) deleteTuple(tid TransactionID, file DBFile, t *Tuple) error {
	pages, err := file.deleteTuple(tid, t)
	if err != nil {
		return err
	}
	bp.markDirty(tid, pages)
	return nil
}

// flushPage writes p's before image plus its current image to the WAL,
// forces the log, writes the page to its heap file, and clears its dirty
// flag. Log-before-data ordering is mandatory.
func (bp *BufferPool) flushPage(tid TransactionID, p Page) error {
	if err := bp.wal.LogUpdate(tid, p.beforeImage(), p); err != nil {
		return err
	}
	if err := bp.wal.Force(); err != nil {
		return err
	}
	if err := p.getFile().flushPage(p); err != nil {
		return err
	}
	p.setDirty(tid, false)
	return nil
}

// FlushAllPages writes every currently dirty page (a testing hook; does
// not need to be transaction-safe).
func (bp *BufferPool) FlushAllPages() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, p := range bp.pages {
		if !p.isDirty() {
			continue
		}
		if err := bp.flushPage(NewTID(), p); err != nil {
			continue
		}
	}
}

// DiscardPage removes pid from the cache without flushing (used by abort,
// and by index code that wants to drop a page it no longer trusts).
func (bp *BufferPool) DiscardPage(pid PageID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	delete(bp.pages, pid)
}

// TransactionComplete commits or aborts tid: on commit, every page tid
// dirtied is flushed and its before-image reset to the just-committed
// bytes; on abort, every page tid dirtied is discarded from the cache
// un-flushed (safe because dirty pages are never evicted before commit).
// Either way, tid's locks are released.
func (bp *BufferPool) TransactionComplete(tid TransactionID, commit bool) {
	bp.mu.Lock()
	dirtied := bp.dirtiedBy[tid]
	delete(bp.dirtiedBy, tid)
	delete(bp.activeTxns, tid)
	pages := make([]Page, 0, len(dirtied))
	for pid := range dirtied {
		if p, ok := bp.pages[pid]; ok {
			pages = append(pages, p)
		}
	}
	bp.mu.Unlock()

	if commit {
		for _, p := range pages {
			if p.isDirty() {
				_ = bp.flushPage(tid, p)
			}
			p.setBeforeImage()
		}
		bp.wal.LogCommit(tid)
	} else {
		bp.mu.Lock()
		for pid := range dirtied {
			delete(bp.pages, pid)
		}
		bp.mu.Unlock()
		bp.wal.LogAbort(tid)
	}

	if bp.lockTable != nil {
		bp.lockTable.ReleaseAll(tid)
	}
}

// CommitTransaction is transactionComplete(tid, true).
func (bp *BufferPool) CommitTransaction(tid TransactionID) { bp.TransactionComplete(tid, true) }

// AbortTransaction is transactionComplete(tid, false).
func (bp *BufferPool) AbortTransaction(tid TransactionID) { bp.TransactionComplete(tid, false) }
