package model

import "time"

// ObjectStatus describes what happened to one shared object in a run.
type ObjectStatus string

const (
	ObjectCompared ObjectStatus = "compared"
	ObjectFailed   ObjectStatus = "failed"
	ObjectAdded    ObjectStatus = "added"
	ObjectRemoved  ObjectStatus = "removed"
)

// RateCell is a formatted compatibility rate with its styling class.
type RateCell struct {
	Text     string // "97.5"
	Class    string // ok, warning, almost_compatible, incompatible
	Report   string // report path relative to the report directory
	Added    int
	Removed  int
	Problems int
}

// ObjectRow is one line of the shared object table.
type ObjectRow struct {
	Name      string
	NewName   string
	Status    ObjectStatus
	Renamed   bool
	OldSONAME string
	NewSONAME string
	// SONAMEChanged is set for mapped pairs whose SONAMEs differ.
	SONAMEChanged bool
	Symbols       int
	Binary        *RateCell
	Source        *RateCell
}

// PackageRow pairs the old and new package of one kind for display.
type PackageRow struct {
	Kind  PackageKind
	Old   string
	New   string
	Files int // number of classified files of the kind on the old side
}

// RunSummary is the outcome of one compare run.
type RunSummary struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Old       PackageAttributes
	New       PackageAttributes
	PublicABI bool
	Mode      CompareMode
	ReportDir Path
	Score     PackageScore
	Meta      Meta
	// BinaryClass and SourceClass style the headline rates.
	BinaryClass string
	SourceClass string
	Packages    []PackageRow
	Objects     []ObjectRow
}

// HistoryEntry is one recorded run.
type HistoryEntry struct {
	ID          string
	StartedAt   time.Time
	Duration    time.Duration
	Name        string
	OldVersion  string
	NewVersion  string
	Arch        string
	ReportDir   Path
	BC          string
	BCEffective string
	SourceBC    string
	Problems    int
	Removed     int
}
