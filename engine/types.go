package engine

import "fmt"

// DBType is the type of a tuple field: IntType or StringType.
type DBType int

const (
	IntType DBType = iota
	StringType
	UnknownType // used while a field's type has not yet been resolved
)

func (t DBType) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	default:
		return "unknown"
	}
}

// FieldType names a field within a TupleDesc: its name, owning table
// qualifier (may be empty), and DBType.
type FieldType struct {
	Fname          string
	TableQualifier string
	Ftype          DBType
}

// TupleDesc is the schema of a Tuple: an ordered list of FieldTypes.
// TupleDescs are treated as immutable; every method that would mutate one
// returns a new TupleDesc instead.
type TupleDesc struct {
	Fields []FieldType
}

// equals compares two TupleDescs field-by-field, requiring identical types
// and names at every index (the strict form called for by the data model).
func (d1 *TupleDesc) equals(d2 *TupleDesc) bool {
	if len(d1.Fields) != len(d2.Fields) {
		return false
	}
	for i := range d1.Fields {
		if d1.Fields[i].Fname != d2.Fields[i].Fname || d1.Fields[i].Ftype != d2.Fields[i].Ftype {
			return false
		}
	}
	return true
}

// setTableAlias returns a new TupleDesc with every field's TableQualifier
// set to alias.
func (td *TupleDesc) setTableAlias(alias string) *TupleDesc {
	fields := make([]FieldType, len(td.Fields))
	copy(fields, td.Fields)
	for i := range fields {
		fields[i].TableQualifier = alias
	}
	return &TupleDesc{Fields: fields}
}

// merge concatenates the fields of td2 onto the fields of td, producing
// a new TupleDesc (schema concatenation, as used by Join).
func (td *TupleDesc) merge(td2 *TupleDesc) *TupleDesc {
	fields := make([]FieldType, 0, len(td.Fields)+len(td2.Fields))
	fields = append(fields, td.Fields...)
	fields = append(fields, td2.Fields...)
	return &TupleDesc{Fields: fields}
}

// bytesPerTuple sums the fixed per-type widths of the schema's fields. Ints
// are 8 bytes (int64, little-endian); strings are StringLength bytes.
func (td *TupleDesc) bytesPerTuple() (int, error) {
	size := 0
	for _, f := range td.Fields {
		switch f.Ftype {
		case IntType:
			size += intFieldLength
		case StringType:
			size += StringLength
		default:
			return 0, newErr(TypeMismatchError, "field %s has unresolved type", f.Fname)
		}
	}
	return size, nil
}

// findFieldInTd finds the best-matching field in desc for field: identical
// Fname and Ftype (or UnknownType, meaning "don't care"), preferring a
// TableQualifier match when field specifies one.
func findFieldInTd(field FieldType, desc *TupleDesc) (int, error) {
	best := -1
	for i, f := range desc.Fields {
		if f.Fname != field.Fname || (field.Ftype != UnknownType && f.Ftype != field.Ftype) {
			continue
		}
		if field.TableQualifier == "" && best != -1 {
			return 0, newErr(AmbiguousNameError, "field name %s is ambiguous", f.Fname)
		}
		if f.TableQualifier == field.TableQualifier || best == -1 {
			best = i
		}
	}
	if best == -1 {
		return -1, newErr(IncompatibleTypesError, "field %s.%s not found", field.TableQualifier, field.Fname)
	}
	return best, nil
}

// BoolOp is a comparison operator usable in a Filter predicate, a Join
// predicate, or a histogram selectivity query.
type BoolOp int

const (
	OpEq BoolOp = iota
	OpGt
	OpLt
	OpGe
	OpLe
	OpNeq
	OpLike
)

func (op BoolOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGe:
		return ">="
	case OpLe:
		return "<="
	case OpNeq:
		return "<>"
	case OpLike:
		return "LIKE"
	default:
		return "?"
	}
}

// Expr evaluates to a DBValue given a tuple. FieldExpr and ConstExpr are the
// two concrete forms the operator pipeline needs; a full expression
// language (arithmetic, function calls) is out of scope.
type Expr interface {
	EvalExpr(t *Tuple) (DBValue, error)
	GetExprType() FieldType
}

// FieldExpr extracts a named field from a tuple.
type FieldExpr struct {
	field FieldType
}

func NewFieldExpr(field FieldType) *FieldExpr { return &FieldExpr{field: field} }

func (fe *FieldExpr) GetExprType() FieldType { return fe.field }

func (fe *FieldExpr) EvalExpr(t *Tuple) (DBValue, error) {
	idx, err := findFieldInTd(fe.field, &t.Desc)
	if err != nil {
		return nil, err
	}
	return t.Fields[idx], nil
}

// ConstExpr evaluates to a fixed DBValue regardless of the tuple supplied.
type ConstExpr struct {
	val     DBValue
	valType DBType
}

func NewConstExpr(val DBValue, valType DBType) *ConstExpr {
	return &ConstExpr{val: val, valType: valType}
}

func (ce *ConstExpr) GetExprType() FieldType {
	return FieldType{Fname: fmt.Sprintf("%v", ce.val), Ftype: ce.valType}
}

func (ce *ConstExpr) EvalExpr(t *Tuple) (DBValue, error) {
	return ce.val, nil
}
