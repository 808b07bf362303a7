package engine

// Delete drains its child on the first call to Next, routing each tuple
// through the buffer pool's deleteTuple, and yields a single tuple
// containing the count deleted; subsequent pulls return end-of-stream.
type Delete struct {
	bp     *BufferPool
	file   DBFile
	child  Operator
	desc   *TupleDesc
	tid    TransactionID
	called bool
}

// NewDelete constructs a delete operator that removes child's tuples from
// file via bp.
func NewDelete(bp *BufferPool, file DBFile, child Operator) *Delete {
	return &Delete{
		bp:    bp,
		file:  file,
		child: child,
		desc:  &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}},
	}
}

func (op *Delete) Descriptor() *TupleDesc { return op.desc }

func (op *Delete) Open(tid TransactionID) error {
	op.tid = tid
	op.called = false
	return op.child.Open(tid)
}

func (op *Delete) HasNext() (bool, error) {
	return !op.called, nil
}

func (op *Delete) Next() (*Tuple, error) {
	if op.called {
		return nil, newErr(NoMoreTuplesError, "Delete already executed")
	}
	op.called = true

	var count int64
	for {
		has, err := op.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		t, err := op.child.Next()
		if err != nil {
			return nil, err
		}
		if err := op.bp.deleteTuple(op.tid, op.file, t); err != nil {
			return nil, err
		}
		count++
	}

	return &Tuple{Desc: *op.desc, Fields: []DBValue{IntField{Value: count}}}, nil
}

func (op *Delete) Rewind() error {
	op.called = false
	return op.child.Rewind()
}

func (op *Delete) Close() error {
	return op.child.Close()
}
