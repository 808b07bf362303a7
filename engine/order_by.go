package engine

import "sort"

// OrderBy is a blocking sort: Open drains its child into memory, sorts it
// by orderByFields (each either ascending or descending per ascending),
// and Next walks the sorted slice. Descriptor is unchanged from the
// child's -- ordering does not alter the emitted fields.
type OrderBy struct {
	orderByFields []Expr
	ascending     []bool
	child         Operator

	tid  TransactionID
	rows []*Tuple
	pos  int
}

// NewOrderBy constructs a sort of child's output by orderByFields, each
// position ascending (true) or descending (false) per the matching entry
// in ascending.
func NewOrderBy(orderByFields []Expr, ascending []bool, child Operator) (*OrderBy, error) {
	if len(orderByFields) != len(ascending) {
		return nil, newErr(IllegalOperationError, "orderByFields and ascending must be the same length")
	}
	return &OrderBy{orderByFields: orderByFields, ascending: ascending, child: child}, nil
}

func (o *OrderBy) Descriptor() *TupleDesc { return o.child.Descriptor() }

func (o *OrderBy) Open(tid TransactionID) error {
	o.tid = tid
	if err := o.child.Open(tid); err != nil {
		return err
	}
	return o.materialize()
}

func (o *OrderBy) materialize() error {
	rows, err := drainAll(o.child)
	if err != nil {
		return err
	}
	o.rows = rows
	var sortErr error
	sort.SliceStable(o.rows, func(i, j int) bool {
		less, err := o.less(o.rows[i], o.rows[j])
		if err != nil {
			sortErr = err
		}
		return less
	})
	o.pos = 0
	return sortErr
}

// less orders a before b by the first orderByFields entry that
// discriminates them.
func (o *OrderBy) less(a, b *Tuple) (bool, error) {
	for i, expr := range o.orderByFields {
		cmp, err := a.compareField(b, expr)
		if err != nil {
			return false, err
		}
		if cmp == OrderedEqual {
			continue
		}
		if o.ascending[i] {
			return cmp == OrderedLessThan, nil
		}
		return cmp == OrderedGreaterThan, nil
	}
	return false, nil
}

func (o *OrderBy) HasNext() (bool, error) { return o.pos < len(o.rows), nil }

func (o *OrderBy) Next() (*Tuple, error) {
	if o.pos >= len(o.rows) {
		return nil, newErr(NoMoreTuplesError, "OrderBy exhausted")
	}
	t := o.rows[o.pos]
	o.pos++
	return t, nil
}

func (o *OrderBy) Rewind() error {
	o.pos = 0
	return nil
}

func (o *OrderBy) Close() error {
	o.rows = nil
	return o.child.Close()
}
