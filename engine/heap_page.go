package engine

import (
	"bytes"
	"encoding/binary"
)

// heapPage implements Page for HeapFile pages.
//
// On-disk layout: a header of ceil(slots/8) bytes, bit i set iff slot i is
// occupied, followed by `slots` fixed-size tuple bodies (occupied or not;
// empty slots are zero-filled on flush). The number of slots is the
// standard fixed-point solution to "header bits + tuple bodies fit in
// PageSize": numSlots = floor(PageSize*8 / (tupleSize*8 + 1)), which makes
// headerBytes = ceil(numSlots/8) consistent without having to solve the
// pageSize-minus-headerLen relation iteratively.
type heapPage struct {
	pid    PageID
	desc   *TupleDesc
	file   *HeapFile
	tuples []*Tuple // nil entry means the slot is empty

	dirty       TransactionID
	isDirtyFlag bool
	before      []byte // before-image bytes, captured at load/commit time
}

func tupleSizeBytes(desc *TupleDesc) (int, error) {
	return desc.bytesPerTuple()
}

func numSlotsFor(desc *TupleDesc) (int, error) {
	tupSize, err := tupleSizeBytes(desc)
	if err != nil {
		return 0, err
	}
	if tupSize <= 0 {
		return 0, newErr(TypeMismatchError, "tuple size must be positive")
	}
	slots := (PageSize * 8) / (tupSize*8 + 1)
	if slots <= 0 {
		return 0, newErr(TypeMismatchError, "page size %d too small for tuple size %d", PageSize, tupSize)
	}
	return slots, nil
}

func headerBytesFor(numSlots int) int {
	return (numSlots + 7) / 8
}

// newHeapPage constructs an empty page for pageNumber in file f.
func newHeapPage(desc *TupleDesc, pageNumber int, f *HeapFile) (*heapPage, error) {
	numSlots, err := numSlotsFor(desc)
	if err != nil {
		return nil, err
	}
	p := &heapPage{
		pid:    PageID{TableID: f.tableID, PageNumber: pageNumber},
		desc:   desc,
		file:   f,
		tuples: make([]*Tuple, numSlots),
	}
	buf, err := p.toBuffer()
	if err == nil {
		p.before = append([]byte(nil), buf.Bytes()...)
	}
	return p, nil
}

func (h *heapPage) getNumSlots() int { return len(h.tuples) }

func (h *heapPage) numUsedSlots() int {
	n := 0
	for _, t := range h.tuples {
		if t != nil {
			n++
		}
	}
	return n
}

// insertTuple places a copy of t carrying its new RecordID in the first
// free slot and returns that RecordID (t itself is not modified), or fails
// if the page is full.
func (h *heapPage) insertTuple(t *Tuple) (*RecordID, error) {
	for slot, existing := range h.tuples {
		if existing != nil {
			continue
		}
		rid := &RecordID{PID: h.pid, Slot: slot}
		h.tuples[slot] = &Tuple{Desc: *h.desc, Fields: t.Fields, Rid: rid}
		return rid, nil
	}
	return nil, newErr(BufferPoolFullError, "heap page %v has no free slots", h.pid)
}

// deleteTuple clears the slot named by rid.
func (h *heapPage) deleteTuple(rid *RecordID) error {
	if rid == nil || rid.PID != h.pid {
		return newErr(IllegalOperationError, "record id does not belong to page %v", h.pid)
	}
	if rid.Slot < 0 || rid.Slot >= len(h.tuples) || h.tuples[rid.Slot] == nil {
		return newErr(IllegalOperationError, "slot %d is not occupied on page %v", rid.Slot, h.pid)
	}
	h.tuples[rid.Slot] = nil
	return nil
}

func (h *heapPage) isDirty() bool { return h.isDirtyFlag }

func (h *heapPage) setDirty(tid TransactionID, dirty bool) {
	h.isDirtyFlag = dirty
	if dirty {
		h.dirty = tid
	}
}

func (h *heapPage) getFile() DBFile { return h.file }
func (h *heapPage) pageID() PageID  { return h.pid }

// beforeImage returns a heapPage reconstructed from the captured
// before-image bytes.
func (h *heapPage) beforeImage() Page {
	before := &heapPage{pid: h.pid, desc: h.desc, file: h.file, tuples: make([]*Tuple, len(h.tuples))}
	if h.before == nil {
		return before
	}
	_ = before.initFromBuffer(bytes.NewBuffer(append([]byte(nil), h.before...)))
	return before
}

// setBeforeImage refreshes the before-image snapshot to the page's current
// bytes (called on commit, so the next abort rolls back to this state).
func (h *heapPage) setBeforeImage() {
	buf, err := h.toBuffer()
	if err != nil {
		return
	}
	h.before = append([]byte(nil), buf.Bytes()...)
}

// toBuffer serializes the header bitmap followed by the tuple bodies (empty
// slots zero-filled) into a fresh, PageSize-length buffer.
func (h *heapPage) toBuffer() (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	header := make([]byte, headerBytesFor(len(h.tuples)))
	for slot, t := range h.tuples {
		if t != nil {
			header[slot/8] |= 1 << uint(slot%8)
		}
	}
	if _, err := buf.Write(header); err != nil {
		return nil, err
	}

	tupSize, err := tupleSizeBytes(h.desc)
	if err != nil {
		return nil, err
	}
	zero := make([]byte, tupSize)
	for _, t := range h.tuples {
		if t == nil {
			buf.Write(zero)
			continue
		}
		if err := t.writeTo(buf); err != nil {
			return nil, err
		}
	}
	if buf.Len() < PageSize {
		buf.Write(make([]byte, PageSize-buf.Len()))
	}
	return buf, nil
}

// initFromBuffer populates the page from a PageSize-length buffer written
// by toBuffer.
func (h *heapPage) initFromBuffer(buf *bytes.Buffer) error {
	numSlots, err := numSlotsFor(h.desc)
	if err != nil {
		return err
	}
	header := make([]byte, headerBytesFor(numSlots))
	if err := binary.Read(buf, binary.LittleEndian, header); err != nil {
		return err
	}
	h.tuples = make([]*Tuple, numSlots)
	for slot := 0; slot < numSlots; slot++ {
		occupied := header[slot/8]&(1<<uint(slot%8)) != 0
		tup, err := readTupleFrom(buf, h.desc)
		if err != nil {
			return err
		}
		if occupied {
			tup.Rid = &RecordID{PID: h.pid, Slot: slot}
			h.tuples[slot] = tup
		}
	}
	return nil
}

// tupleIter returns a closure yielding the page's occupied tuples in slot
// order, then nil.
func (h *heapPage) tupleIter() func() (*Tuple, error) {
	i := 0
	return func() (*Tuple, error) {
		for i < len(h.tuples) {
			t := h.tuples[i]
			i++
			if t != nil {
				return t, nil
			}
		}
		return nil, nil
	}
}
