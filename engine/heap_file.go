package engine

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// HeapFile is an unordered collection of tuples of one schema, persisted as
// a sequence of fixed-size pages in a single backing file.
type HeapFile struct {
	backingFile string
	tupleDesc   *TupleDesc
	bufPool     *BufferPool
	tableID     int

	extendLock sync.Mutex // guards the direct, buffer-pool-bypassing file extension
}

// NewHeapFile opens (or prepares to create) a HeapFile backed by fromFile.
func NewHeapFile(fromFile string, td *TupleDesc, bp *BufferPool, tableID int) (*HeapFile, error) {
	return &HeapFile{
		backingFile: fromFile,
		tupleDesc:   td,
		bufPool:     bp,
		tableID:     tableID,
	}, nil
}

// BackingFile returns the name of the file backing this HeapFile.
func (f *HeapFile) BackingFile() string { return f.backingFile }

// numPages returns ceil(fileLength / PageSize).
func (f *HeapFile) numPages() int {
	info, err := os.Stat(f.backingFile)
	if err != nil {
		return 0
	}
	size := info.Size()
	n := int(size / int64(PageSize))
	if size%int64(PageSize) != 0 {
		n++
	}
	return n
}

// NumPages is the exported form numPages, used outside the package (table
// statistics, tests).
func (f *HeapFile) NumPages() int { return f.numPages() }

// Descriptor returns the HeapFile's TupleDesc.
func (f *HeapFile) Descriptor() *TupleDesc { return f.tupleDesc }

func (f *HeapFile) pageKey(pageNumber int) PageID {
	return PageID{TableID: f.tableID, PageNumber: pageNumber}
}

// readPage seeks to pageNumber*PageSize and reads exactly one page's worth
// of bytes, failing if that offset is beyond the file's length.
func (f *HeapFile) readPage(pageNumber int) (Page, error) {
	if pageNumber < 0 || pageNumber >= f.numPages() {
		return nil, newErr(IllegalOperationError, "page %d is out of range for %s (numPages=%d)", pageNumber, f.backingFile, f.numPages())
	}
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	offset := int64(pageNumber) * int64(PageSize)
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	data := make([]byte, PageSize)
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, fmt.Errorf("reading page %d of %s: %w", pageNumber, f.backingFile, err)
	}

	hp := &heapPage{pid: f.pageKey(pageNumber), desc: f.tupleDesc, file: f}
	if err := hp.initFromBuffer(bytes.NewBuffer(data)); err != nil {
		return nil, err
	}
	hp.before = append([]byte(nil), data...)
	return hp, nil
}

// writePage seeks and writes p's bytes to its page offset. Only the buffer
// pool (via flushPage) decides when this happens; the heap file never
// writes spontaneously outside of the page-extension path below.
func (f *HeapFile) writePage(p Page) error {
	return f.flushPage(p)
}

func (f *HeapFile) flushPage(p Page) error {
	hp, ok := p.(*heapPage)
	if !ok {
		return newErr(IllegalOperationError, "heap file cannot flush page of type %T", p)
	}
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Seek(int64(hp.pid.PageNumber)*int64(PageSize), io.SeekStart); err != nil {
		return err
	}
	buf, err := hp.toBuffer()
	if err != nil {
		return err
	}
	if _, err := buf.WriteTo(file); err != nil {
		return err
	}
	return nil
}

// insertTuple visits existing pages in order (through the buffer pool, with
// write permission) looking for one with a free slot; if none qualifies, it
// extends the file by one empty page -- written directly, bypassing the
// buffer pool for the extension itself -- then inserts into that page.
// Returns the pages it dirtied.
func (f *HeapFile) insertTuple(tid TransactionID, t *Tuple) ([]Page, error) {
	if len(t.Fields) != len(f.tupleDesc.Fields) {
		return nil, newErr(TypeMismatchError, "tuple has %d fields, schema has %d", len(t.Fields), len(f.tupleDesc.Fields))
	}

	numPages := f.numPages()
	for pageNo := 0; pageNo < numPages; pageNo++ {
		page, err := f.bufPool.getPage(tid, f, pageNo, WritePerm)
		if err != nil {
			return nil, err
		}
		hp := page.(*heapPage)
		if hp.numUsedSlots() >= hp.getNumSlots() {
			continue
		}
		if _, err := hp.insertTuple(t); err != nil {
			return nil, err
		}
		hp.setDirty(tid, true)
		return []Page{hp}, nil
	}

	return f.extendAndInsert(tid, t)
}

// extendAndInsert atomically appends one empty page to the backing file
// (bypassing the buffer pool), then brings the new page under buffer-pool
// management with a write lock and inserts t into it, so the rest of the
// transaction's bookkeeping (dirty tracking, eviction accounting) stays
// consistent.
func (f *HeapFile) extendAndInsert(tid TransactionID, t *Tuple) ([]Page, error) {
	f.extendLock.Lock()
	pageNo := f.numPages()
	empty, err := newHeapPage(f.tupleDesc, pageNo, f)
	if err != nil {
		f.extendLock.Unlock()
		return nil, err
	}
	if err := f.flushPage(empty); err != nil {
		f.extendLock.Unlock()
		return nil, err
	}
	f.extendLock.Unlock()

	page, err := f.bufPool.getPage(tid, f, pageNo, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := page.(*heapPage)
	if _, err := hp.insertTuple(t); err != nil {
		return nil, err
	}
	hp.setDirty(tid, true)
	return []Page{hp}, nil
}

// deleteTuple resolves t.Rid to a page and clears that slot. Returns the
// page it dirtied.
func (f *HeapFile) deleteTuple(tid TransactionID, t *Tuple) ([]Page, error) {
	if t.Rid == nil {
		return nil, newErr(IllegalOperationError, "tuple has no record id to delete")
	}
	page, err := f.bufPool.getPage(tid, f, t.Rid.PID.PageNumber, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := page.(*heapPage)
	if err := hp.deleteTuple(t.Rid); err != nil {
		return nil, err
	}
	hp.setDirty(tid, true)
	return []Page{hp}, nil
}

// Iterator yields every occupied tuple across pages in page-number order,
// then slot order within a page, acquiring each page with read permission.
func (f *HeapFile) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	pageNo := 0
	var curIter func() (*Tuple, error)

	return func() (*Tuple, error) {
		for {
			if curIter == nil {
				if pageNo >= f.numPages() {
					return nil, nil
				}
				page, err := f.bufPool.getPage(tid, f, pageNo, ReadPerm)
				if err != nil {
					return nil, err
				}
				curIter = page.(*heapPage).tupleIter()
			}
			t, err := curIter()
			if err != nil {
				return nil, err
			}
			if t == nil {
				curIter = nil
				pageNo++
				continue
			}
			t.Desc = *f.tupleDesc
			return t, nil
		}
	}, nil
}

// LoadFromCSV bulk-loads file (fields split on sep) into the heap
// file, one committed transaction per row.
func (f *HeapFile) LoadFromCSV(file *os.File, hasHeader bool, sep string, skipLastField bool) error {
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Split(scanner.Text(), sep)
		if skipLastField && len(fields) > 0 {
			fields = fields[:len(fields)-1]
		}
		if lineNo == 1 && hasHeader {
			continue
		}
		if len(fields) != len(f.tupleDesc.Fields) {
			return newErr(MalformedDataError, "line %d has %d fields, expected %d", lineNo, len(fields), len(f.tupleDesc.Fields))
		}

		values := make([]DBValue, len(fields))
		for i, raw := range fields {
			switch f.tupleDesc.Fields[i].Ftype {
			case IntType:
				raw = strings.TrimSpace(raw)
				v, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					return newErr(MalformedDataError, "line %d: cannot parse %q as int", lineNo, raw)
				}
				values[i] = IntField{Value: v}
			case StringType:
				if len(raw) > StringLength {
					raw = raw[:StringLength]
				}
				values[i] = StringField{Value: raw}
			}
		}

		tid := NewTID()
		f.bufPool.BeginTransaction(tid)
		if _, err := f.insertTuple(tid, &Tuple{Desc: *f.tupleDesc, Fields: values}); err != nil {
			f.bufPool.AbortTransaction(tid)
			return err
		}
		f.bufPool.CommitTransaction(tid)
	}
	return scanner.Err()
}
