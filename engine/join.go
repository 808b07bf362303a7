package engine

// Join is a nested-loops join on "leftField predOp rightField" (equality or
// any other BoolOp): left is the outer relation, right
// is rewound for every outer tuple. Output schema is the concatenation of
// the two children's schemas.
type Join struct {
	predOp      BoolOp
	leftField   Expr
	rightField  Expr
	left, right Operator
	desc        *TupleDesc

	tid        TransactionID
	outerTuple *Tuple
	next       *Tuple
}

// NewJoin constructs an equality (or general BoolOp) join between left and
// right, comparing leftField against rightField.
func NewJoin(left Operator, leftField Expr, right Operator, rightField Expr, predOp BoolOp) *Join {
	return &Join{
		predOp:     predOp,
		leftField:  leftField,
		rightField: rightField,
		left:       left,
		right:      right,
		desc:       left.Descriptor().merge(right.Descriptor()),
	}
}

func (j *Join) Descriptor() *TupleDesc { return j.desc }

func (j *Join) Open(tid TransactionID) error {
	j.tid = tid
	if err := j.left.Open(tid); err != nil {
		return err
	}
	if err := j.right.Open(tid); err != nil {
		return err
	}
	return j.advanceOuter()
}

// advanceOuter pulls the next left tuple and rewinds right to scan it
// again from the start.
func (j *Join) advanceOuter() error {
	for {
		has, err := j.left.HasNext()
		if err != nil {
			return err
		}
		if !has {
			j.outerTuple = nil
			j.next = nil
			return nil
		}
		j.outerTuple, err = j.left.Next()
		if err != nil {
			return err
		}
		if err := j.right.Rewind(); err != nil {
			return err
		}
		if err := j.advanceInner(); err != nil {
			return err
		}
		if j.next != nil {
			return nil
		}
	}
}

// advanceInner scans right (already rewound for the current outer tuple)
// for the next match.
func (j *Join) advanceInner() error {
	for {
		has, err := j.right.HasNext()
		if err != nil {
			return err
		}
		if !has {
			j.next = nil
			return nil
		}
		rt, err := j.right.Next()
		if err != nil {
			return err
		}
		lv, err := j.leftField.EvalExpr(j.outerTuple)
		if err != nil {
			return err
		}
		rv, err := j.rightField.EvalExpr(rt)
		if err != nil {
			return err
		}
		if lv.EvalPred(rv, j.predOp) {
			j.next = joinTuples(j.outerTuple, rt)
			return nil
		}
	}
}

func (j *Join) HasNext() (bool, error) { return j.next != nil, nil }

func (j *Join) Next() (*Tuple, error) {
	if j.next == nil {
		return nil, newErr(NoMoreTuplesError, "Join exhausted")
	}
	t := j.next
	if err := j.advanceInner(); err != nil {
		return nil, err
	}
	if j.next == nil {
		if err := j.advanceOuter(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (j *Join) Rewind() error {
	if err := j.left.Rewind(); err != nil {
		return err
	}
	return j.advanceOuter()
}

func (j *Join) Close() error {
	j.next = nil
	j.outerTuple = nil
	if err := j.left.Close(); err != nil {
		return err
	}
	return j.right.Close()
}
