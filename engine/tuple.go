package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// StringLength is the fixed width, in bytes, reserved for a StringType
// field. It is a schema-wide constant rather than per-column so that page
// slot math stays simple; overlong values are truncated on load.
var StringLength = 32

const intFieldLength = 8 // bytes per IntField (int64, little-endian)

// DBValue is a tagged field value: either an IntField or a StringField.
// Equality and hashing are value-based.
type DBValue interface {
	EvalPred(v DBValue, op BoolOp) bool
}

// IntField is a signed integer field value held as int64 (8 bytes,
// little-endian, on the wire). Values are not restricted to the 32-bit
// range.
type IntField struct {
	Value int64
}

func (f IntField) EvalPred(v DBValue, op BoolOp) bool {
	other, ok := v.(IntField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == other.Value
	case OpNeq:
		return f.Value != other.Value
	case OpGt:
		return f.Value > other.Value
	case OpGe:
		return f.Value >= other.Value
	case OpLt:
		return f.Value < other.Value
	case OpLe:
		return f.Value <= other.Value
	default:
		return false
	}
}

// StringField is a fixed-length (schema-bound) string field value.
type StringField struct {
	Value string
}

func (f StringField) EvalPred(v DBValue, op BoolOp) bool {
	other, ok := v.(StringField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == other.Value
	case OpNeq:
		return f.Value != other.Value
	case OpGt:
		return f.Value > other.Value
	case OpGe:
		return f.Value >= other.Value
	case OpLt:
		return f.Value < other.Value
	case OpLe:
		return f.Value <= other.Value
	case OpLike:
		return strings.Contains(f.Value, other.Value)
	default:
		return false
	}
}

// Tuple is a fixed-arity vector of field values matching a TupleDesc, plus
// an optional RecordID identifying its storage location. Tuples are value
// objects: whoever reads one owns the copy.
type Tuple struct {
	Desc   TupleDesc
	Fields []DBValue
	Rid    *RecordID
}

func writeIntField(b *bytes.Buffer, f IntField) error {
	return binary.Write(b, binary.LittleEndian, f.Value)
}

func writeStringField(b *bytes.Buffer, f StringField) error {
	padded := make([]byte, StringLength)
	copy(padded, []byte(f.Value))
	return binary.Write(b, binary.LittleEndian, padded)
}

// writeTo serializes the tuple's fields, in schema order, into b.
func (t *Tuple) writeTo(b *bytes.Buffer) error {
	for _, field := range t.Fields {
		switch v := field.(type) {
		case IntField:
			if err := writeIntField(b, v); err != nil {
				return err
			}
		case StringField:
			if err := writeStringField(b, v); err != nil {
				return err
			}
		default:
			return newErr(TypeMismatchError, "unsupported field type %T", field)
		}
	}
	return nil
}

func readIntField(b *bytes.Buffer) (IntField, error) {
	var v int64
	if err := binary.Read(b, binary.LittleEndian, &v); err != nil {
		return IntField{}, err
	}
	return IntField{Value: v}, nil
}

func readStringField(b *bytes.Buffer) (StringField, error) {
	raw := make([]byte, StringLength)
	if err := binary.Read(b, binary.LittleEndian, raw); err != nil {
		return StringField{}, err
	}
	return StringField{Value: strings.TrimRight(string(raw), "\x00")}, nil
}

// readTupleFrom deserializes one tuple matching desc from b.
func readTupleFrom(b *bytes.Buffer, desc *TupleDesc) (*Tuple, error) {
	t := &Tuple{Desc: *desc, Fields: make([]DBValue, 0, len(desc.Fields))}
	for _, ft := range desc.Fields {
		switch ft.Ftype {
		case StringType:
			sf, err := readStringField(b)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, sf)
		default:
			intf, err := readIntField(b)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, intf)
		}
	}
	return t, nil
}

// equals compares the TupleDescs (strict equality) and every field value.
func (t1 *Tuple) equals(t2 *Tuple) bool {
	if t1 == nil || t2 == nil {
		return t1 == t2
	}
	if !t1.Desc.equals(&t2.Desc) || len(t1.Fields) != len(t2.Fields) {
		return false
	}
	for i := range t1.Fields {
		if t1.Fields[i] != t2.Fields[i] {
			return false
		}
	}
	return true
}

// joinTuples concatenates t2's fields onto t1, merging their TupleDescs.
func joinTuples(t1, t2 *Tuple) *Tuple {
	if t1 == nil {
		return t2
	}
	if t2 == nil {
		return t1
	}
	return &Tuple{
		Desc:   *t1.Desc.merge(&t2.Desc),
		Fields: append(append([]DBValue{}, t1.Fields...), t2.Fields...),
	}
}

type orderByState int

const (
	OrderedLessThan orderByState = iota
	OrderedEqual
	OrderedGreaterThan
)

// compareField evaluates expr on both tuples and orders the results.
func (t *Tuple) compareField(t2 *Tuple, expr Expr) (orderByState, error) {
	v1, err := expr.EvalExpr(t)
	if err != nil {
		return OrderedEqual, err
	}
	v2, err := expr.EvalExpr(t2)
	if err != nil {
		return OrderedEqual, err
	}
	return compareValues(v1, v2)
}

func compareValues(v1, v2 DBValue) (orderByState, error) {
	switch a := v1.(type) {
	case IntField:
		b, ok := v2.(IntField)
		if !ok {
			return OrderedEqual, newErr(TypeMismatchError, "cannot compare %T with %T", v1, v2)
		}
		switch {
		case a.Value < b.Value:
			return OrderedLessThan, nil
		case a.Value > b.Value:
			return OrderedGreaterThan, nil
		default:
			return OrderedEqual, nil
		}
	case StringField:
		b, ok := v2.(StringField)
		if !ok {
			return OrderedEqual, newErr(TypeMismatchError, "cannot compare %T with %T", v1, v2)
		}
		switch {
		case a.Value < b.Value:
			return OrderedLessThan, nil
		case a.Value > b.Value:
			return OrderedGreaterThan, nil
		default:
			return OrderedEqual, nil
		}
	default:
		return OrderedEqual, newErr(TypeMismatchError, "unsupported field comparison for %T", v1)
	}
}

// project returns a new tuple containing just the named fields, preferring
// a match on TableQualifier when the caller specified one.
func (t *Tuple) project(fields []FieldType) (*Tuple, error) {
	out := &Tuple{Desc: TupleDesc{}, Fields: []DBValue{}}
	for _, want := range fields {
		idx, err := findFieldInTd(FieldType{Fname: want.Fname, TableQualifier: want.TableQualifier, Ftype: UnknownType}, &t.Desc)
		if err != nil {
			idx, err = findFieldInTd(FieldType{Fname: want.Fname, Ftype: UnknownType}, &t.Desc)
			if err != nil {
				return nil, err
			}
		}
		out.Fields = append(out.Fields, t.Fields[idx])
		out.Desc.Fields = append(out.Desc.Fields, t.Desc.Fields[idx])
	}
	return out, nil
}

// tupleKey computes a comparable key for the tuple's current byte
// representation, used to de-duplicate tuples (e.g. DISTINCT projection).
func (t *Tuple) tupleKey() (any, error) {
	var buf bytes.Buffer
	if err := t.writeTo(&buf); err != nil {
		return nil, err
	}
	return buf.String(), nil
}

var winWidth = 120

func fmtCol(v string, ncols int) string {
	colWid := winWidth / ncols
	remLen := colWid - (len(v) + 3)
	if remLen > 0 {
		right := remLen / 2
		left := remLen - right
		return strings.Repeat(" ", left) + v + strings.Repeat(" ", right) + " |"
	}
	if colWid-4 < 0 || colWid-4 > len(v) {
		return " " + v + " |"
	}
	return " " + v[0:colWid-4] + " |"
}

// HeaderString renders the TupleDesc's field names as a header row.
func (td *TupleDesc) HeaderString(aligned bool) string {
	out := ""
	for i, f := range td.Fields {
		name := f.Fname
		if f.TableQualifier != "" {
			name = f.TableQualifier + "." + name
		}
		if aligned {
			out = fmt.Sprintf("%s %s", out, fmtCol(name, len(td.Fields)))
			continue
		}
		if i > 0 {
			out += ","
		}
		out += name
	}
	return out
}

// PrettyPrintString renders the tuple's values as one row.
func (t *Tuple) PrettyPrintString(aligned bool) string {
	out := ""
	for i, f := range t.Fields {
		str := ""
		switch v := f.(type) {
		case IntField:
			str = strconv.FormatInt(v.Value, 10)
		case StringField:
			str = v.Value
		}
		if aligned {
			out = fmt.Sprintf("%s %s", out, fmtCol(str, len(t.Fields)))
			continue
		}
		if i > 0 {
			out += ","
		}
		out += str
	}
	return out
}
