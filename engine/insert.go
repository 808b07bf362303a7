package engine

// Insert drains its child on the first call to Next, routing each tuple
// through the buffer pool's insertTuple, and yields a single tuple
// containing the count inserted; subsequent pulls return end-of-stream.
//
// The teacher's source left the equivalent of `called` unset after
// producing the result tuple, so a second pull would re-insert
// everything; Delete's behavior (set the flag) is the resolved intent and
// is replicated here.
type Insert struct {
	bp     *BufferPool
	file   DBFile
	child  Operator
	desc   *TupleDesc
	tid    TransactionID
	called bool
}

// NewInsert constructs an insert operator that routes child's tuples into
// file via bp.
func NewInsert(bp *BufferPool, file DBFile, child Operator) *Insert {
	return &Insert{
		bp:    bp,
		file:  file,
		child: child,
		desc:  &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}},
	}
}

func (op *Insert) Descriptor() *TupleDesc { return op.desc }

func (op *Insert) Open(tid TransactionID) error {
	op.tid = tid
	op.called = false
	return op.child.Open(tid)
}

func (op *Insert) HasNext() (bool, error) {
	return !op.called, nil
}

func (op *Insert) Next() (*Tuple, error) {
	if op.called {
		return nil, newErr(NoMoreTuplesError, "Insert already executed")
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
		if err := op.bp.insertTuple(op.tid, op.file, t); err != nil {
			return nil, err
		}
		count++
	}

	return &Tuple{Desc: *op.desc, Fields: []DBValue{IntField{Value: count}}}, nil
}

func (op *Insert) Rewind() error {
	op.called = false
	return op.child.Rewind()
}

func (op *Insert) Close() error {
	return op.child.Close()
}
