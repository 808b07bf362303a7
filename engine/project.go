package engine

// Project evaluates selectFields against each child tuple, renaming the
// results to outputNames, and optionally suppresses duplicate output
// tuples (distinct).
type Project struct {
	selectFields []Expr
	outputNames  []string
	distinct     bool
	child        Operator
	desc         *TupleDesc

	tid  TransactionID
	seen map[any]struct{}
	next *Tuple
}

// NewProject constructs a projection of child onto selectFields, renamed to
// outputNames (same length as selectFields). distinct, when true,
// suppresses output tuples that duplicate one already produced.
func NewProject(selectFields []Expr, outputNames []string, distinct bool, child Operator) (*Project, error) {
	if len(selectFields) != len(outputNames) {
		return nil, newErr(IllegalOperationError, "selectFields and outputNames must be the same length")
	}
	fields := make([]FieldType, len(selectFields))
	for i, e := range selectFields {
		ft := e.GetExprType()
		ft.Fname = outputNames[i]
		fields[i] = ft
	}
	return &Project{
		selectFields: selectFields,
		outputNames:  outputNames,
		distinct:     distinct,
		child:        child,
		desc:         &TupleDesc{Fields: fields},
	}, nil
}

func (p *Project) Descriptor() *TupleDesc { return p.desc }

func (p *Project) Open(tid TransactionID) error {
	p.tid = tid
	if p.distinct {
		p.seen = make(map[any]struct{})
	}
	if err := p.child.Open(tid); err != nil {
		return err
	}
	return p.advance()
}

func (p *Project) advance() error {
	for {
		has, err := p.child.HasNext()
		if err != nil {
			return err
		}
		if !has {
			p.next = nil
			return nil
		}
		t, err := p.child.Next()
		if err != nil {
			return err
		}

		out := &Tuple{Desc: *p.desc, Fields: make([]DBValue, len(p.selectFields))}
		for i, e := range p.selectFields {
			v, err := e.EvalExpr(t)
			if err != nil {
				return err
			}
			out.Fields[i] = v
		}

		if p.distinct {
			key, err := out.tupleKey()
			if err != nil {
				return err
			}
			if _, dup := p.seen[key]; dup {
				continue
			}
			p.seen[key] = struct{}{}
		}

		p.next = out
		return nil
	}
}

func (p *Project) HasNext() (bool, error) { return p.next != nil, nil }

func (p *Project) Next() (*Tuple, error) {
	if p.next == nil {
		return nil, newErr(NoMoreTuplesError, "Project exhausted")
	}
	t := p.next
	if err := p.advance(); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *Project) Rewind() error {
	if p.distinct {
		p.seen = make(map[any]struct{})
	}
	if err := p.child.Rewind(); err != nil {
		return err
	}
	return p.advance()
}

func (p *Project) Close() error {
	p.next = nil
	p.seen = nil
	return p.child.Close()
}
