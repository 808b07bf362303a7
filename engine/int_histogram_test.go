package engine

import (
	"math"
	"testing"
)

func TestIntHistogramSelectivityLaws(t *testing.T) {
	h, err := NewIntHistogram(10, 1, 100)
	if err != nil {
		t.Fatalf("NewIntHistogram: %v", err)
	}
	for v := int64(1); v <= 100; v++ {
		h.AddValue(v)
	}

	eqSel := h.EstimateSelectivity(OpEq, 50)
	neqSel := h.EstimateSelectivity(OpNeq, 50)
	if math.Abs((eqSel+neqSel)-1.0) > 1e-9 {
		t.Fatalf("EQ + NEQ selectivity should sum to 1, got %v + %v", eqSel, neqSel)
	}

	ltSel := h.EstimateSelectivity(OpLt, 50)
	geSel := h.EstimateSelectivity(OpGe, 50)
	if math.Abs((ltSel+geSel)-1.0) > 1e-9 {
		t.Fatalf("LT + GE selectivity should sum to 1, got %v + %v", ltSel, geSel)
	}

	if sel := h.EstimateSelectivity(OpGt, 1000); sel != 0.0 {
		t.Fatalf("selectivity above the observed max should be 0, got %v", sel)
	}
	if sel := h.EstimateSelectivity(OpLt, -1000); sel != 0.0 {
		t.Fatalf("selectivity below the observed min should be 0, got %v", sel)
	}
}

func TestIntHistogramMonotonicGreaterThan(t *testing.T) {
	h, _ := NewIntHistogram(10, 1, 100)
	for v := int64(1); v <= 100; v++ {
		h.AddValue(v)
	}
	prev := 1.1
	for _, v := range []int64{10, 30, 50, 70, 90} {
		sel := h.EstimateSelectivity(OpGt, v)
		if sel > prev {
			t.Fatalf("selectivity of > %d (%v) should not exceed selectivity of a smaller threshold (%v)", v, sel, prev)
		}
		prev = sel
	}
}

func TestStringHistogramEqualityAndRange(t *testing.T) {
	h, err := NewStringHistogram()
	if err != nil {
		t.Fatalf("NewStringHistogram: %v", err)
	}
	values := []string{"apple", "banana", "cherry", "date", "banana"}
	for _, v := range values {
		h.AddValue(v)
	}

	if sel := h.EstimateSelectivity(OpEq, "banana"); sel <= 0 {
		t.Fatalf("expected positive selectivity for a value seen twice, got %v", sel)
	}
	if sel := h.EstimateSelectivity(OpEq, "not-present-at-all"); sel < 0 {
		t.Fatalf("selectivity should never be negative, got %v", sel)
	}
	eqSel := h.EstimateSelectivity(OpEq, "banana")
	neqSel := h.EstimateSelectivity(OpNeq, "banana")
	if math.Abs((eqSel+neqSel)-1.0) > 1e-9 {
		t.Fatalf("EQ + NEQ selectivity should sum to 1, got %v + %v", eqSel, neqSel)
	}
}
