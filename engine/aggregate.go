package engine

// noGroup is the sentinel "ungrouped" field: when Aggregate has no group
// field, every tuple maps to this one key, so a single code path (a map
// keyed by DBValue) handles both grouped and ungrouped aggregation.
type noGroup struct{}

func (noGroup) EvalPred(DBValue, BoolOp) bool { return false }

// Aggregate drains its child on Open into per-group aggState accumulators,
// then yields one tuple per group (or a single tuple when ungrouped).
// Supported operators: MIN, MAX, SUM, AVG, COUNT on integer fields; COUNT
// only on string fields.
type Aggregate struct {
	child      Operator
	aggField   Expr
	groupField Expr // nil means ungrouped
	op         AggOp
	desc       *TupleDesc

	groupOrder []DBValue
	states     map[DBValue]*aggState
	pos        int
}

// NewAggregate constructs an aggregate over child. groupField may be nil
// for an ungrouped aggregate.
func NewAggregate(child Operator, aggField Expr, groupField Expr, op AggOp) (*Aggregate, error) {
	aggType := aggField.GetExprType().Ftype
	if aggType == StringType && op != AggCount {
		return nil, newErr(IllegalOperationError, "aggregator %v is not supported on string fields", op)
	}

	var fields []FieldType
	if groupField != nil {
		fields = append(fields, groupField.GetExprType())
	}
	fields = append(fields, FieldType{Fname: aggField.GetExprType().Fname, Ftype: IntType})

	return &Aggregate{
		child:      child,
		aggField:   aggField,
		groupField: groupField,
		op:         op,
		desc:       &TupleDesc{Fields: fields},
	}, nil
}

func (a *Aggregate) Descriptor() *TupleDesc { return a.desc }

func (a *Aggregate) Open(tid TransactionID) error {
	if err := a.child.Open(tid); err != nil {
		return err
	}
	return a.compute()
}

func (a *Aggregate) compute() error {
	a.states = make(map[DBValue]*aggState)
	a.groupOrder = nil
	a.pos = 0

	for {
		has, err := a.child.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		t, err := a.child.Next()
		if err != nil {
			return err
		}

		var key DBValue = noGroup{}
		if a.groupField != nil {
			key, err = a.groupField.EvalExpr(t)
			if err != nil {
				return err
			}
		}

		state, ok := a.states[key]
		if !ok {
			state = newAggState(a.op)
			a.states[key] = state
			a.groupOrder = append(a.groupOrder, key)
		}

		av, err := a.aggField.EvalExpr(t)
		if err != nil {
			return err
		}
		switch v := av.(type) {
		case IntField:
			state.addInt(v.Value)
		case StringField:
			state.addAny()
		default:
			return newErr(TypeMismatchError, "unsupported aggregate field type %T", av)
		}
	}
	return nil
}

func (a *Aggregate) HasNext() (bool, error) {
	return a.pos < len(a.groupOrder), nil
}

func (a *Aggregate) Next() (*Tuple, error) {
	if a.pos >= len(a.groupOrder) {
		return nil, newErr(NoMoreTuplesError, "Aggregate exhausted")
	}
	key := a.groupOrder[a.pos]
	a.pos++
	state := a.states[key]

	var fields []DBValue
	if a.groupField != nil {
		fields = append(fields, key)
	}
	fields = append(fields, state.finalizeValue())
	return &Tuple{Desc: *a.desc, Fields: fields}, nil
}

func (a *Aggregate) Rewind() error {
	a.pos = 0
	return nil
}

func (a *Aggregate) Close() error {
	a.states = nil
	a.groupOrder = nil
	return a.child.Close()
}
