package engine

import boom "github.com/tylertreat/BoomFilters"

// stringHistogramBuckets matches NumHistBuckets; kept separate so a caller
// constructing a StringHistogram directly doesn't need to know the table
// stats package's constant.
const stringHistogramBuckets = 100

// stringBound is the int64 range a hashed string projects into, chosen
// well within int64 range so bucket-width arithmetic in IntHistogram never
// overflows.
const stringBound = 1 << 40

// StringHistogram estimates string-field selectivity two ways: range
// predicates (<, <=, >, >=) fall back to an order-sensitive hash of the
// string projected into an IntHistogram, since a Count-Min Sketch has no
// notion of order; point predicates (=, <>) use a
// github.com/tylertreat/BoomFilters Count-Min Sketch for a tighter
// frequency estimate than the hashed histogram bucket alone would give.
type StringHistogram struct {
	hashed *IntHistogram
	cms    *boom.CountMinSketch
}

// NewStringHistogram constructs an empty StringHistogram.
func NewStringHistogram() (*StringHistogram, error) {
	hashed, err := NewIntHistogram(stringHistogramBuckets, 0, stringBound-1)
	if err != nil {
		return nil, err
	}
	return &StringHistogram{
		hashed: hashed,
		cms:    boom.NewCountMinSketch(0.001, 0.999),
	}, nil
}

// hashString projects s into [0, stringBound) in a way that preserves
// lexicographic order over its first several bytes, so the hashed
// IntHistogram's range estimates stay meaningful.
func hashString(s string) int64 {
	var v int64
	for i := 0; i < 5; i++ {
		v <<= 8
		if i < len(s) {
			v |= int64(s[i])
		}
	}
	if v < 0 {
		v = -v
	}
	return v % stringBound
}

// AddValue records one occurrence of s.
func (h *StringHistogram) AddValue(s string) {
	h.hashed.AddValue(hashString(s))
	h.cms.Add([]byte(s))
}

// EstimateSelectivity returns the estimated fraction of tuples satisfying
// "field op s".
func (h *StringHistogram) EstimateSelectivity(op BoolOp, s string) float64 {
	switch op {
	case OpEq:
		if h.cms.TotalCount() == 0 {
			return 0.0
		}
		return float64(h.cms.Count([]byte(s))) / float64(h.cms.TotalCount())
	case OpNeq:
		return 1.0 - h.EstimateSelectivity(OpEq, s)
	default:
		return h.hashed.EstimateSelectivity(op, hashString(s))
	}
}
