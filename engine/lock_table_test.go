package engine

import (
	"testing"
	"time"
)

func TestLockTableSharedSharedCompatible(t *testing.T) {
	lt := NewLockTable()
	pid := PageID{TableID: 0, PageNumber: 0}
	if !lt.Acquire(pid, 1, ReadPerm) {
		t.Fatal("first shared acquire should succeed")
	}
	if !lt.Acquire(pid, 2, ReadPerm) {
		t.Fatal("second transaction's shared acquire should succeed alongside another shared holder")
	}
}

func TestLockTableExclusiveExcludesOthers(t *testing.T) {
	lt := NewLockTable()
	pid := PageID{TableID: 0, PageNumber: 0}
	if !lt.Acquire(pid, 1, WritePerm) {
		t.Fatal("first exclusive acquire should succeed")
	}
	if lt.Acquire(pid, 2, ReadPerm) {
		t.Fatal("shared request should be denied while another transaction holds exclusive")
	}
	if lt.Acquire(pid, 2, WritePerm) {
		t.Fatal("exclusive request should be denied while another transaction holds exclusive")
	}
}

func TestLockTableReentrantSameMode(t *testing.T) {
	lt := NewLockTable()
	pid := PageID{TableID: 0, PageNumber: 0}
	lt.Acquire(pid, 1, ReadPerm)
	if !lt.Acquire(pid, 1, ReadPerm) {
		t.Fatal("re-requesting the same shared lock should succeed")
	}
	lt2 := NewLockTable()
	lt2.Acquire(pid, 1, WritePerm)
	if !lt2.Acquire(pid, 1, WritePerm) {
		t.Fatal("re-requesting the same exclusive lock should succeed")
	}
}

func TestLockTableExclusiveCoversLaterShared(t *testing.T) {
	lt := NewLockTable()
	pid := PageID{TableID: 0, PageNumber: 0}
	lt.Acquire(pid, 1, WritePerm)
	if !lt.Acquire(pid, 1, ReadPerm) {
		t.Fatal("a shared request from the exclusive holder itself should succeed")
	}
}

func TestLockTableUpgradeSoleSharedHolder(t *testing.T) {
	lt := NewLockTable()
	pid := PageID{TableID: 0, PageNumber: 0}
	lt.Acquire(pid, 1, ReadPerm)
	if !lt.Acquire(pid, 1, WritePerm) {
		t.Fatal("sole shared holder should be able to upgrade to exclusive")
	}
	if lt.Acquire(pid, 2, ReadPerm) {
		t.Fatal("after upgrade, a second transaction's shared request should be denied")
	}
}

func TestLockTableUpgradeDeniedWithOtherSharedHolders(t *testing.T) {
	lt := NewLockTable()
	pid := PageID{TableID: 0, PageNumber: 0}
	lt.Acquire(pid, 1, ReadPerm)
	lt.Acquire(pid, 2, ReadPerm)
	if lt.Acquire(pid, 1, WritePerm) {
		t.Fatal("upgrade should be denied while another transaction also holds a shared lock")
	}
}

func TestLockTableReleaseFreesPage(t *testing.T) {
	lt := NewLockTable()
	pid := PageID{TableID: 0, PageNumber: 0}
	lt.Acquire(pid, 1, WritePerm)
	lt.Release(pid, 1)
	if !lt.Acquire(pid, 2, WritePerm) {
		t.Fatal("page should be free for a new exclusive holder after release")
	}
}

func TestLockTableReleaseAll(t *testing.T) {
	lt := NewLockTable()
	p1 := PageID{TableID: 0, PageNumber: 0}
	p2 := PageID{TableID: 0, PageNumber: 1}
	lt.Acquire(p1, 1, ReadPerm)
	lt.Acquire(p2, 1, WritePerm)
	lt.ReleaseAll(1)
	if lt.HoldsLock(p1, 1) || lt.HoldsLock(p2, 1) {
		t.Fatal("ReleaseAll should drop every lock held by the transaction")
	}
	if !lt.Acquire(p2, 2, WritePerm) {
		t.Fatal("page should be free for another transaction after ReleaseAll")
	}
}

func TestLockTableHeldPages(t *testing.T) {
	lt := NewLockTable()
	p1 := PageID{TableID: 0, PageNumber: 0}
	p2 := PageID{TableID: 0, PageNumber: 1}
	p3 := PageID{TableID: 0, PageNumber: 2}
	lt.Acquire(p1, 1, ReadPerm)
	lt.Acquire(p2, 1, WritePerm)
	lt.Acquire(p3, 2, WritePerm)

	held := lt.HeldPages(1)
	if len(held) != 2 {
		t.Fatalf("expected tid 1 to hold 2 pages, got %d", len(held))
	}
	seen := map[PageID]bool{held[0]: true}
	if len(held) > 1 {
		seen[held[1]] = true
	}
	if !seen[p1] || !seen[p2] {
		t.Fatalf("HeldPages(1) should report p1 and p2, got %v", held)
	}
	if len(lt.HeldPages(2)) != 1 {
		t.Fatal("expected tid 2 to hold exactly 1 page")
	}
}

// TestBufferPoolTimeoutAbortsOnContention exercises a capacity-2 cache with
// shared/exclusive contention: one transaction holds an exclusive lock on a
// page while another times out waiting for it, aborting within roughly
// DeadlockTimeout.
func TestBufferPoolTimeoutAbortsOnContention(t *testing.T) {
	oldTimeout := DeadlockTimeout
	DeadlockTimeout = 100 * time.Millisecond
	defer func() { DeadlockTimeout = oldTimeout }()

	desc, hf, bp := makeHeapFileTestVars(t)
	bp.NumPages = 2

	tid1 := NewTID()
	bp.BeginTransaction(tid1)
	tup := &Tuple{Desc: *desc, Fields: []DBValue{StringField{Value: "x"}, IntField{Value: 1}}}
	if err := bp.insertTuple(tid1, hf, tup); err != nil {
		t.Fatalf("insertTuple: %v", err)
	}
	// hold the page's exclusive lock open across the contention window
	if _, err := bp.getPage(tid1, hf, 0, WritePerm); err != nil {
		t.Fatalf("getPage: %v", err)
	}

	tid2 := NewTID()
	bp.BeginTransaction(tid2)
	start := time.Now()
	_, err := bp.getPage(tid2, hf, 0, ReadPerm)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected contended request to time out and abort")
	}
	if !IsAborted(err) {
		t.Fatalf("expected TransactionAbortedError, got %v", err)
	}
	if elapsed < DeadlockTimeout {
		t.Fatalf("aborted before the deadlock timeout elapsed: %v < %v", elapsed, DeadlockTimeout)
	}

	bp.AbortTransaction(tid2)
	bp.CommitTransaction(tid1)
}
