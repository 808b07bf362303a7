package engine

// Operator is the uniform pull contract every node in an operator tree
// implements. A parent calls Open on its children before reading from
// them, and Close on teardown; Rewind restarts iteration without
// re-opening. For Insert/Delete, Rewind clears the single-shot flag and
// rewinds the child, so the next Next runs the mutation again.
type Operator interface {
	Descriptor() *TupleDesc
	Open(tid TransactionID) error
	HasNext() (bool, error)
	Next() (*Tuple, error)
	Rewind() error
	Close() error
}

// drainAll pulls every remaining tuple from op, used by OrderBy to
// materialize its child before producing output, and by test helpers.
func drainAll(op Operator) ([]*Tuple, error) {
	var out []*Tuple
	for {
		has, err := op.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			return out, nil
		}
		t, err := op.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
}
