package engine

import "testing"

func TestComputeTableStats(t *testing.T) {
	desc, hf, bp := makeHeapFileTestVars(t)
	tid := NewTID()
	bp.BeginTransaction(tid)
	for i := int64(1); i <= 50; i++ {
		bp.insertTuple(tid, hf, &Tuple{Desc: *desc, Fields: []DBValue{StringField{Value: "row"}, IntField{Value: i}}})
	}
	bp.CommitTransaction(tid)

	stats, err := ComputeTableStats(bp, hf)
	if err != nil {
		t.Fatalf("ComputeTableStats: %v", err)
	}

	if stats.EstimateScanCost() != float64(hf.numPages())*CostPerPage {
		t.Fatalf("scan cost should scale with page count")
	}
	if got := stats.EstimateTableCardinality(0.5); got != 25 {
		t.Fatalf("expected cardinality 25 at selectivity 0.5 over 50 rows, got %d", got)
	}

	sel, err := stats.EstimateSelectivity("age", OpLt, IntField{Value: 25})
	if err != nil {
		t.Fatalf("EstimateSelectivity: %v", err)
	}
	if sel <= 0 || sel >= 1 {
		t.Fatalf("expected a selectivity strictly between 0 and 1, got %v", sel)
	}

	if _, err := stats.EstimateSelectivity("age", OpLt, StringField{Value: "nope"}); err == nil {
		t.Fatal("expected a type mismatch error for a string literal against an int column")
	}
}
