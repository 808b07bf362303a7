package engine

// Limit passes through at most n tuples from child, then reports
// end-of-stream regardless of how many child has left.
type Limit struct {
	child Operator
	n     int
	count int
}

// NewLimit constructs a limit of child's output to the first n tuples.
func NewLimit(child Operator, n int) *Limit {
	return &Limit{child: child, n: n}
}

func (l *Limit) Descriptor() *TupleDesc { return l.child.Descriptor() }

func (l *Limit) Open(tid TransactionID) error {
	l.count = 0
	return l.child.Open(tid)
}

func (l *Limit) HasNext() (bool, error) {
	if l.count >= l.n {
		return false, nil
	}
	return l.child.HasNext()
}

func (l *Limit) Next() (*Tuple, error) {
	if l.count >= l.n {
		return nil, newErr(NoMoreTuplesError, "Limit exhausted")
	}
	t, err := l.child.Next()
	if err != nil {
		return nil, err
	}
	l.count++
	return t, nil
}

func (l *Limit) Rewind() error {
	l.count = 0
	return l.child.Rewind()
}

func (l *Limit) Close() error {
	return l.child.Close()
}
