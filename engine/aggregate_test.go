package engine

import (
	"testing"

	"github.com/d4l3k/messagediff"
)

func intTupleSource(desc *TupleDesc, values []int64) *TupleSource {
	rows := make([]*Tuple, len(values))
	for i, v := range values {
		rows[i] = &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: v}}}
	}
	return NewTupleSource(rows, desc)
}

func runToCompletion(t *testing.T, op Operator) []*Tuple {
	t.Helper()
	if err := op.Open(NewTID()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer op.Close()
	out, err := drainAll(op)
	if err != nil {
		t.Fatalf("draining: %v", err)
	}
	return out
}

func TestAggregateSum(t *testing.T) {
	desc := &TupleDesc{Fields: []FieldType{{Fname: "n", Ftype: IntType}}}
	src := intTupleSource(desc, []int64{3, 1, 4, 1, 5, 9, 2, 6})

	agg, err := NewAggregate(src, NewFieldExpr(desc.Fields[0]), nil, AggSum)
	if err != nil {
		t.Fatalf("NewAggregate: %v", err)
	}

	rows := runToCompletion(t, agg)
	if len(rows) != 1 {
		t.Fatalf("expected one ungrouped result row, got %d", len(rows))
	}

	want := &Tuple{Desc: *agg.Descriptor(), Fields: []DBValue{IntField{Value: 31}}}
	if got := rows[0].Fields[0]; got != want.Fields[0] {
		diff, _ := messagediff.PrettyDiff(want, rows[0])
		t.Fatalf("SUM({3,1,4,1,5,9,2,6}) mismatch:\n%s", diff)
	}
}

func TestAggregateCountGroupedByParity(t *testing.T) {
	desc := &TupleDesc{Fields: []FieldType{
		{Fname: "parity", Ftype: StringType},
		{Fname: "n", Ftype: IntType},
	}}
	rows := []*Tuple{
		{Desc: *desc, Fields: []DBValue{StringField{Value: "even"}, IntField{Value: 2}}},
		{Desc: *desc, Fields: []DBValue{StringField{Value: "odd"}, IntField{Value: 1}}},
		{Desc: *desc, Fields: []DBValue{StringField{Value: "even"}, IntField{Value: 4}}},
		{Desc: *desc, Fields: []DBValue{StringField{Value: "odd"}, IntField{Value: 3}}},
		{Desc: *desc, Fields: []DBValue{StringField{Value: "even"}, IntField{Value: 6}}},
	}
	src := NewTupleSource(rows, desc)

	agg, err := NewAggregate(src, NewFieldExpr(desc.Fields[1]), NewFieldExpr(desc.Fields[0]), AggCount)
	if err != nil {
		t.Fatalf("NewAggregate: %v", err)
	}

	out := runToCompletion(t, agg)
	counts := map[string]int64{}
	for _, row := range out {
		counts[row.Fields[0].(StringField).Value] = row.Fields[1].(IntField).Value
	}
	if counts["even"] != 3 || counts["odd"] != 2 {
		t.Fatalf("expected even=3 odd=2, got %v", counts)
	}
}
