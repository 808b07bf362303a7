package engine

import (
	"os"
	"testing"
)

func makeHeapFileTestVars(t *testing.T) (*TupleDesc, *HeapFile, *BufferPool) {
	t.Helper()
	path := "heaptest_" + t.Name() + ".dat"
	os.Remove(path)
	t.Cleanup(func() { os.Remove(path) })

	desc := &TupleDesc{Fields: []FieldType{
		{Fname: "name", Ftype: StringType},
		{Fname: "age", Ftype: IntType},
	}}

	bp := NewBufferPool(100, discardWAL{})
	hf, err := NewHeapFile(path, desc, bp, 0)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	return desc, hf, bp
}

func TestHeapFileInsertCommitScan(t *testing.T) {
	desc, hf, bp := makeHeapFileTestVars(t)

	tid := NewTID()
	if err := bp.BeginTransaction(tid); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}

	const want = 400
	for i := 0; i < want; i++ {
		tup := &Tuple{Desc: *desc, Fields: []DBValue{StringField{Value: "row"}, IntField{Value: int64(i)}}}
		if err := bp.insertTuple(tid, hf, tup); err != nil {
			t.Fatalf("insertTuple %d: %v", i, err)
		}
	}
	bp.CommitTransaction(tid)

	if n := hf.numPages(); n < 2 {
		t.Fatalf("expected at least 2 pages for %d tuples, got %d", want, n)
	}

	tid2 := NewTID()
	if err := bp.BeginTransaction(tid2); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	iter, err := hf.Iterator(tid2)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	count := 0
	for {
		tup, err := iter()
		if err != nil {
			t.Fatalf("iterating: %v", err)
		}
		if tup == nil {
			break
		}
		count++
	}
	bp.CommitTransaction(tid2)

	if count != want {
		t.Fatalf("scanned %d tuples, want %d", count, want)
	}
}

func TestHeapFileInsertAbortLeavesNothing(t *testing.T) {
	desc, hf, bp := makeHeapFileTestVars(t)

	tid := NewTID()
	if err := bp.BeginTransaction(tid); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}

	const n = 100
	var dirtied []PageID
	for i := 0; i < n; i++ {
		tup := &Tuple{Desc: *desc, Fields: []DBValue{StringField{Value: "row"}, IntField{Value: int64(i)}}}
		if err := bp.insertTuple(tid, hf, tup); err != nil {
			t.Fatalf("insertTuple %d: %v", i, err)
		}
	}
	for pid := range bp.dirtiedBy[tid] {
		dirtied = append(dirtied, pid)
	}

	bp.AbortTransaction(tid)

	for _, pid := range dirtied {
		bp.mu.Lock()
		_, cached := bp.pages[pid]
		bp.mu.Unlock()
		if cached {
			t.Fatalf("page %v still cached after abort", pid)
		}
	}

	tid2 := NewTID()
	if err := bp.BeginTransaction(tid2); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	iter, err := hf.Iterator(tid2)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	count := 0
	for {
		tup, err := iter()
		if err != nil {
			t.Fatalf("iterating: %v", err)
		}
		if tup == nil {
			break
		}
		count++
	}
	bp.CommitTransaction(tid2)

	if count != 0 {
		t.Fatalf("expected zero tuples visible after abort, found %d", count)
	}
}

func TestHeapFileDeleteTuple(t *testing.T) {
	desc, hf, bp := makeHeapFileTestVars(t)

	tid := NewTID()
	bp.BeginTransaction(tid)
	tup := &Tuple{Desc: *desc, Fields: []DBValue{StringField{Value: "josie"}, IntField{Value: 20}}}
	if err := bp.insertTuple(tid, hf, tup); err != nil {
		t.Fatalf("insertTuple: %v", err)
	}
	bp.CommitTransaction(tid)

	tid2 := NewTID()
	bp.BeginTransaction(tid2)
	iter, _ := hf.Iterator(tid2)
	found, err := iter()
	if err != nil || found == nil {
		t.Fatalf("expected to find inserted tuple, err=%v", err)
	}
	if err := bp.deleteTuple(tid2, hf, found); err != nil {
		t.Fatalf("deleteTuple: %v", err)
	}
	bp.CommitTransaction(tid2)

	tid3 := NewTID()
	bp.BeginTransaction(tid3)
	iter2, _ := hf.Iterator(tid3)
	remaining, err := iter2()
	if err != nil {
		t.Fatalf("iterating: %v", err)
	}
	if remaining != nil {
		t.Fatalf("expected table empty after delete, found a tuple")
	}
	bp.CommitTransaction(tid3)
}
