package model

// CompareMode selects which compatibility kinds are checked.
type CompareMode struct {
	Binary bool
	Source bool
}

// Both reports whether binary and source compatibility are both checked.
func (c CompareMode) Both() bool {
	return c.Binary && c.Source
}

// CompatStats are the statistics the comparator wrote for one report kind.
type CompatStats struct {
	Affected   float64 // percentage of symbols with at least one problem
	Problems   int
	Added      int
	Removed    int
	ReportPath string // relative to the report directory
}

// Rate returns the per-object compatibility percentage.
func (s CompatStats) Rate() float64 {
	return 100 - s.Affected
}

// CompatibilityRecord holds the comparison result for one mapped pair.
type CompatibilityRecord struct {
	Binary *CompatStats
	Source *CompatStats
}

// Primary returns the stats used for the added/removed/problems totals:
// binary when present, source otherwise.
func (r CompatibilityRecord) Primary() *CompatStats {
	if r.Binary != nil {
		return r.Binary
	}

	return r.Source
}

// ObjectPair is a mapped old/new object pair.
type ObjectPair struct {
	Old SharedObject
	New SharedObject
}

// SONAMEChanged reports whether both objects carry a SONAME and they differ.
func (p ObjectPair) SONAMEChanged() bool {
	return p.Old.SONAME != "" && p.New.SONAME != "" && p.Old.SONAME != p.New.SONAME
}

// PairResult is a compared pair together with its old-side symbol count.
type PairResult struct {
	Pair    ObjectPair
	Record  CompatibilityRecord
	Symbols int
}
