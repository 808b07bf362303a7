package engine

import "log"

// CostPerPage is the assumed cost of one page-read during sequential scan
// cost estimation.
const CostPerPage = 1000

// NumHistBuckets is the bucket count used for every per-column histogram
// built by ComputeTableStats.
const NumHistBuckets = 100

// TableStats holds per-column histograms and page/tuple counts for a table,
// computed by two full scans, used to estimate scan cost, predicate
// selectivity, and post-filter cardinality.
type TableStats struct {
	basePages  int
	baseTuples int64
	intHists   map[string]*IntHistogram
	strHists   map[string]*StringHistogram
	desc       *TupleDesc
}

func tableMinMax(tid TransactionID, file DBFile) (map[string]int64, map[string]int64, error) {
	desc := file.Descriptor()
	mins := make(map[string]int64)
	maxs := make(map[string]int64)
	for _, f := range desc.Fields {
		if f.Ftype == IntType {
			mins[f.Fname] = int64(1) << 62
			maxs[f.Fname] = -(int64(1) << 62)
		}
	}

	iter, err := file.Iterator(tid)
	if err != nil {
		return nil, nil, err
	}
	for {
		t, err := iter()
		if err != nil {
			return nil, nil, err
		}
		if t == nil {
			break
		}
		for i, f := range desc.Fields {
			if f.Ftype != IntType {
				continue
			}
			v := t.Fields[i].(IntField).Value
			if v < mins[f.Fname] {
				mins[f.Fname] = v
			}
			if v > maxs[f.Fname] {
				maxs[f.Fname] = v
			}
		}
	}
	for name := range mins {
		if mins[name] > maxs[name] {
			mins[name] = 0
			maxs[name] = 0
		}
	}
	return mins, maxs, nil
}

// ComputeTableStats performs two passes over file: one to find each int
// column's observed range, one to populate the histograms. It runs in its
// own short-lived transaction, committed before returning.
func ComputeTableStats(bp *BufferPool, file DBFile) (*TableStats, error) {
	tid := NewTID()
	if err := bp.BeginTransaction(tid); err != nil {
		return nil, err
	}

	desc := file.Descriptor()
	mins, maxs, err := tableMinMax(tid, file)
	if err != nil {
		bp.AbortTransaction(tid)
		return nil, err
	}

	intHists := make(map[string]*IntHistogram)
	strHists := make(map[string]*StringHistogram)
	for _, f := range desc.Fields {
		switch f.Ftype {
		case IntType:
			h, err := NewIntHistogram(NumHistBuckets, mins[f.Fname], maxs[f.Fname])
			if err != nil {
				bp.AbortTransaction(tid)
				return nil, err
			}
			intHists[f.Fname] = h
		case StringType:
			h, err := NewStringHistogram()
			if err != nil {
				bp.AbortTransaction(tid)
				return nil, err
			}
			strHists[f.Fname] = h
		}
	}

	iter, err := file.Iterator(tid)
	if err != nil {
		bp.AbortTransaction(tid)
		return nil, err
	}
	var baseTuples int64
	for {
		t, err := iter()
		if err != nil {
			bp.AbortTransaction(tid)
			return nil, err
		}
		if t == nil {
			break
		}
		for i, f := range desc.Fields {
			switch f.Ftype {
			case IntType:
				intHists[f.Fname].AddValue(t.Fields[i].(IntField).Value)
			case StringType:
				strHists[f.Fname].AddValue(t.Fields[i].(StringField).Value)
			}
		}
		baseTuples++
	}

	bp.CommitTransaction(tid)

	return &TableStats{
		basePages:  file.numPages(),
		baseTuples: baseTuples,
		intHists:   intHists,
		strHists:   strHists,
		desc:       desc,
	}, nil
}

// EstimateScanCost estimates the I/O cost of a full sequential scan of the
// table, assuming no pages are cached.
func (ts *TableStats) EstimateScanCost() float64 {
	return float64(ts.basePages) * CostPerPage
}

// EstimateTableCardinality returns the expected row count after applying a
// predicate of the given selectivity.
func (ts *TableStats) EstimateTableCardinality(selectivity float64) int64 {
	return int64(float64(ts.baseTuples) * selectivity)
}

// EstimateSelectivity looks up the histogram for field and estimates the
// selectivity of "field op value". An unrecognized field returns 1.0 (no
// filtering assumed) with a logged warning, matching the teacher's
// fail-open behavior for a missing histogram.
func (ts *TableStats) EstimateSelectivity(field string, op BoolOp, value DBValue) (float64, error) {
	if h, ok := ts.intHists[field]; ok {
		iv, ok := value.(IntField)
		if !ok {
			return 1.0, newErr(TypeMismatchError, "field %s is int, value %v is not", field, value)
		}
		return h.EstimateSelectivity(op, iv.Value), nil
	}
	if h, ok := ts.strHists[field]; ok {
		sv, ok := value.(StringField)
		if !ok {
			return 1.0, newErr(TypeMismatchError, "field %s is string, value %v is not", field, value)
		}
		return h.EstimateSelectivity(op, sv.Value), nil
	}
	log.Printf("engine: no histogram for field %s, assuming full selectivity", field)
	return 1.0, nil
}
