package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pkgabidiff.dev/pkg/pkgabidiff/internal/adapter"
	"pkgabidiff.dev/pkg/pkgabidiff/internal/controller"
	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
	"pkgabidiff.dev/pkg/pkgabidiff/pkg"
)

// Report file names inside each object report directory.
const (
	BinaryReportName = "abi_compat_report.html"
	SourceReportName = "src_compat_report.html"
)

// CompareArgs contains the arguments of one compare run.
type CompareArgs struct {
	Old  []m.Path
	New  []m.Path
	Mode m.CompareMode

	RebuildDumps  bool
	RebuildReport bool

	// ReportsRoot is used to build the default report directory.
	ReportsRoot m.Path
	// ReportDir overrides the report directory when set.
	ReportDir m.Path
	DumpsDir  m.Path
	// TmpDir is the parent of the scratch directory; empty means the system default.
	TmpDir m.Path

	Parallel int
	Dumper   adapter.DumperOptions
}

// Dependencies are the collaborators of the compare workflow.
type Dependencies struct {
	FS            adapter.FSAdapter
	Tools         adapter.ToolChecker
	Attributes    adapter.AttributeReader
	Extractor     adapter.PackageExtractor
	Objects       adapter.ObjectInspector
	Dumper        adapter.DumpGenerator
	DumpInspector adapter.DumpInspector
	Comparer      adapter.CompatibilityComparer
	Counter       adapter.SymbolCounter
	Reports       adapter.ReportStore
	// History is optional.
	History adapter.HistoryStore
	UI      controller.UI
}

// Workflow runs package compatibility checks.
type Workflow interface {
	Compare(ctx context.Context, args CompareArgs) (*m.RunSummary, error)
}

type workflow struct {
	Dependencies
	now func() time.Time
}

// NewWorkflow creates a Workflow backed by deps.
func NewWorkflow(deps Dependencies) Workflow {
	return &workflow{Dependencies: deps, now: time.Now}
}

// run carries the state of one Compare call.
type run struct {
	args      CompareArgs
	scratch   m.Path
	reportDir m.Path
	publicABI bool
	sides     map[m.Age]*m.ReleaseSide
}

// Compare checks the backward compatibility of args.New against args.Old.
// It returns ErrReportExists without doing any work when the report is
// already present and no rebuild was requested.
func (w *workflow) Compare(ctx context.Context, args CompareArgs) (*m.RunSummary, error) {
	started := w.now()

	if !args.Mode.Binary && !args.Mode.Source {
		args.Mode = m.CompareMode{Binary: true, Source: true}
	}

	if args.Parallel < 1 {
		args.Parallel = 1
	}

	r := &run{args: args, sides: map[m.Age]*m.ReleaseSide{}}

	if err := w.prepare(ctx, r); err != nil {
		return nil, err
	}

	exists, err := w.FS.Exists(r.reportDir)
	if err != nil {
		return nil, fmt.Errorf("check report directory: %w", err)
	}

	if exists && !args.RebuildReport {
		w.UI.DisplayReportExists(ctx, r.reportDir)
		return nil, fmt.Errorf("%w: %s", ErrReportExists, r.reportDir)
	}

	scratch, err := w.FS.CreateTempDir(args.TmpDir, "pkgabidiff-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	defer w.cleanup(scratch)

	r.scratch = scratch

	if err := w.extract(ctx, r); err != nil {
		return nil, err
	}

	if err := w.dumpObjects(ctx, r); err != nil {
		return nil, err
	}

	if exists {
		if err := w.Reports.RemoveIndex(r.reportDir); err != nil {
			return nil, fmt.Errorf("failed to remove old index: %w", err)
		}
	}

	summary, err := w.compareObjects(ctx, r)
	if err != nil {
		if !exists {
			w.cleanup(r.reportDir)
		}

		return nil, err
	}

	summary.StartedAt = started
	summary.Duration = w.now().Sub(started)

	if err := w.Reports.SaveMeta(r.reportDir, summary.Meta); err != nil {
		return nil, fmt.Errorf("failed to write meta: %w", err)
	}

	if err := w.Reports.SaveIndex(r.reportDir, summary); err != nil {
		return nil, fmt.Errorf("failed to write index: %w", err)
	}

	if w.History != nil {
		if err := w.History.Record(ctx, summary); err != nil {
			slog.Warn("Failed to record run history", "id", summary.ID, "error", err)
		}
	}

	w.UI.DisplaySummary(ctx, summary)

	slog.Info("Compare finished", "report", r.reportDir, "bc", summary.Meta.BC, "duration", summary.Duration)

	return summary, nil
}

// prepare validates the inputs, checks the tools and reads package attributes.
func (w *workflow) prepare(ctx context.Context, r *run) error {
	var formats []m.PackageFormat

	for _, age := range m.Ages {
		paths := r.args.Old
		if age == m.AgeNew {
			paths = r.args.New
		}

		if len(paths) == 0 {
			return fmt.Errorf("%w: %s packages are not specified", ErrInvalidInput, age)
		}

		for _, path := range paths {
			info, err := w.FS.FileInfo(path)
			if err != nil || !info.Mode().IsRegular() {
				return fmt.Errorf("%w: input argument is not a package: %s", ErrInvalidInput, path)
			}
		}

		packages, err := ClassifyPackages(age, paths)
		if err != nil {
			return err
		}

		side := m.NewReleaseSide(age)
		side.Packages = packages
		r.sides[age] = side

		for _, kind := range m.PackageKinds {
			for _, p := range packages[kind] {
				formats = append(formats, p.Format)
			}
		}
	}

	publicABI, warnings, err := CheckDevelPackages(r.sides[m.AgeOld], r.sides[m.AgeNew])
	if err != nil {
		return err
	}

	r.publicABI = publicABI

	if err := w.Tools.CheckTools(ctx, RequiredTools(formats, publicABI)); err != nil {
		return err
	}

	w.UI.DisplayStage(ctx, "Reading package attributes", 0)

	for _, age := range m.Ages {
		side := r.sides[age]

		for _, kind := range m.PackageKinds {
			for i, p := range side.Packages[kind] {
				attrs, err := w.Attributes.ReadAttributes(ctx, p.Path, p.Format)
				if err != nil {
					return err
				}

				side.Packages[kind][i].Attributes = attrs
			}
		}

		if err := ResolveSideAttributes(side); err != nil {
			return err
		}
	}

	more, err := CompareAttributes(r.sides[m.AgeOld], r.sides[m.AgeNew])
	if err != nil {
		return err
	}

	for _, warning := range append(more, warnings...) {
		slog.Warn(warning)
		w.UI.DisplayWarning(ctx, warning)
	}

	r.reportDir = r.args.ReportDir
	if r.reportDir == "" {
		oldAttrs, newAttrs := r.sides[m.AgeOld].Attributes, r.sides[m.AgeNew].Attributes
		r.reportDir = w.FS.JoinPath(string(r.args.ReportsRoot), oldAttrs.Arch, oldAttrs.Name, oldAttrs.Version, newAttrs.Version)
	}

	return nil
}

// extract unpacks every package and classifies the extracted files.
func (w *workflow) extract(ctx context.Context, r *run) error {
	total := 0
	for _, side := range r.sides {
		for _, pkgs := range side.Packages {
			total += len(pkgs)
		}
	}

	w.UI.DisplayStage(ctx, "Extracting packages", total)

	for _, age := range m.Ages {
		side := r.sides[age]

		for _, kind := range m.PackageKinds {
			if !side.HasKind(kind) {
				continue
			}

			dir := w.FS.JoinPath(string(r.scratch), "ext", string(age), string(kind))
			if err := w.FS.MkdirAll(dir); err != nil {
				return fmt.Errorf("failed to create extraction dir: %w", err)
			}

			for _, p := range side.Packages[kind] {
				if err := w.Extractor.Extract(ctx, p, dir); err != nil {
					return err
				}
			}

			side.ExtractDirs[kind] = dir

			if err := w.classifyFiles(side, kind, dir); err != nil {
				return err
			}
		}

		if len(side.Files[m.FileDebugInfo]) == 0 {
			return fmt.Errorf("%w in %s debuginfo package", ErrNoDebugInfo, age)
		}

		if len(side.Files[m.FileObject]) == 0 {
			return fmt.Errorf("%w in %s release package", ErrNoObjects, age)
		}
	}

	return nil
}

func (w *workflow) classifyFiles(side *m.ReleaseSide, kind m.PackageKind, dir m.Path) error {
	debugFromDEB := kind == m.KindDebug && side.Packages[m.KindDebug][0].Format == m.FormatDEB

	return w.FS.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		name := info.Name()

		switch kind {
		case m.KindRelease:
			if w.isObject(path, name) {
				side.Files[m.FileObject] = append(side.Files[m.FileObject], m.Path(path))
			}
		case m.KindDebug:
			if IsDebugInfoName(name) || (debugFromDEB && w.isObject(path, name)) {
				side.Files[m.FileDebugInfo] = append(side.Files[m.FileDebugInfo], m.Path(path))
			}
		case m.KindDevel:
			rel, relErr := w.FS.RelPath(dir, m.Path(path))
			if relErr != nil {
				return relErr
			}

			if IsHeaderFile("/" + filepath.ToSlash(string(rel))) {
				side.Files[m.FileHeader] = append(side.Files[m.FileHeader], m.Path(path))
			}
		}

		return nil
	})
}

func (w *workflow) isObject(path, name string) bool {
	if !IsObjectName(name) {
		return false
	}

	ok, err := w.Objects.IsELF(m.Path(path))
	if err != nil {
		slog.Debug("Failed to read file header", "path", path, "error", err)
		return false
	}

	return ok
}

// dumpObjects reads SONAMEs and builds or reuses a dump for every object.
func (w *workflow) dumpObjects(ctx context.Context, r *run) error {
	cache := NewDumpCache(r.args.DumpsDir, w.FS, w.Dumper, w.DumpInspector, r.args.RebuildDumps)

	total := 0

	for _, age := range m.Ages {
		side := r.sides[age]

		paths := append([]m.Path(nil), side.Files[m.FileObject]...)
		sort.Slice(paths, func(i, j int) bool {
			bi, bj := filepath.Base(string(paths[i])), filepath.Base(string(paths[j]))
			if bi != bj {
				return m.LessFold(bi, bj)
			}

			return m.LessFold(string(paths[i]), string(paths[j]))
		})

		// Objects are keyed by file name from here on: dumps, matching and
		// report directories.
		kept := map[string]m.Path{}

		for _, path := range paths {
			name := filepath.Base(string(path))
			if first, dup := kept[name]; dup {
				slog.Warn("Skipping object with a duplicate file name", "age", age, "path", path, "kept", first)
				continue
			}

			kept[name] = path

			soname, err := w.Objects.ReadSONAME(path)
			if err != nil {
				slog.Warn("Failed to read SONAME", "path", path, "error", err)
			}

			side.Objects = append(side.Objects, NewSharedObject(name, path, soname))
		}

		total += len(side.Objects)
	}

	w.UI.DisplayStage(ctx, "Creating ABI dumps", total)

	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.args.Parallel)

	for _, age := range m.Ages {
		side := r.sides[age]

		req := adapter.DumpRequest{
			Version:      side.Attributes.Version,
			DebugInfoDir: side.ExtractDirs[m.KindDebug],
			Options:      r.args.Dumper,
		}

		if r.publicABI && len(side.Files[m.FileHeader]) > 0 {
			req.PublicHeadersDir = side.ExtractDirs[m.KindDevel]
		}

		for _, obj := range side.Objects {
			key := m.DumpKey{
				Arch:    side.Attributes.Arch,
				Package: side.Attributes.Name,
				Version: side.Attributes.Version,
				Object:  obj.Name,
			}

			objReq := req
			objReq.Object = obj.Path

			group.Go(func() error {
				dump, err := cache.Get(groupCtx, key, objReq)
				if ctxErr := groupCtx.Err(); ctxErr != nil {
					return ctxErr
				}

				switch {
				case err == nil:
					mu.Lock()
					side.Dumps[obj.Name] = dump
					mu.Unlock()
				case IsSkippedDump(err):
					slog.Debug("Object has no ABI", "object", obj.Name, "age", age)
				default:
					slog.Warn("Failed to create ABI dump", "object", obj.Name, "age", age, "error", err)
				}

				w.UI.DisplayDumpResult(ctx, age, obj.Name, dump, err)

				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		return err
	}

	for _, age := range m.Ages {
		if len(r.sides[age].Dumps) == 0 {
			return fmt.Errorf("%w (%s)", ErrEmptyDumps, age)
		}
	}

	return nil
}

// compareObjects matches objects, compares the pairs and aggregates scores.
func (w *workflow) compareObjects(ctx context.Context, r *run) (*m.RunSummary, error) {
	oldSide, newSide := r.sides[m.AgeOld], r.sides[m.AgeNew]

	match := MatchObjects(oldSide.DumpedObjects(), newSide.DumpedObjects())

	if err := w.FS.MkdirAll(r.reportDir); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	counts, err := NewSymbolCounts(w.Counter, SymbolCacheSize(len(oldSide.Objects)))
	if err != nil {
		return nil, err
	}

	journal, err := pkg.NewFileSpill[m.PairResult](string(w.FS.JoinPath(string(r.scratch), "journal")))
	if err != nil {
		return nil, err
	}

	defer func() { _ = journal.Close() }()

	w.UI.DisplayStage(ctx, "Comparing ABIs", len(match.Pairs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.args.Parallel)

	for _, pair := range match.Pairs {
		group.Go(func() error {
			result, err := w.comparePair(groupCtx, r, counts, pair)
			if ctxErr := groupCtx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				slog.Error("Failed to compare objects", "old", pair.Old.Name, "new", pair.New.Name, "error", err)
			} else if err := journal.Append(result); err != nil {
				return err
			}

			w.UI.DisplayComparison(ctx, result, err)

			return nil
		})
	}

	removedSymbols := make([]int, len(match.Removed))

	for i, obj := range match.Removed {
		group.Go(func() error {
			n, err := counts.Count(groupCtx, oldSide.Dumps[obj.Name].Path)
			if err != nil {
				if ctxErr := groupCtx.Err(); ctxErr != nil {
					return ctxErr
				}

				slog.Warn("Failed to count symbols of removed object", "object", obj.Name, "error", err)
			}

			removedSymbols[i] = n

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	compared := map[string]m.PairResult{}

	if err := journal.Range(func(_ uint64, result m.PairResult) error {
		compared[result.Pair.Old.Name] = result
		return nil
	}); err != nil {
		return nil, err
	}

	if len(match.Pairs) > 0 && len(compared) == 0 {
		return nil, ErrNoReports
	}

	input := ScoreInput{
		Mode:           r.args.Mode,
		RemovedSymbols: removedSymbols,
		ObjectsAdded:   len(match.Added),
		ObjectsRemoved: len(match.Removed),
		ChangedSoname:  match.ChangedSoname(),
	}

	for _, pair := range match.Pairs {
		if result, ok := compared[pair.Old.Name]; ok {
			input.Pairs = append(input.Pairs, result)
		}
	}

	score := AggregateScores(input)

	return w.buildSummary(r, match, compared, score), nil
}

func (w *workflow) comparePair(ctx context.Context, r *run, counts *SymbolCounts, pair m.ObjectPair) (m.PairResult, error) {
	result := m.PairResult{Pair: pair}

	objDir := w.FS.JoinPath(string(r.reportDir), pair.Old.Name)
	if err := w.FS.RemoveAll(objDir); err != nil {
		return result, fmt.Errorf("failed to clean report dir: %w", err)
	}

	oldDump := r.sides[m.AgeOld].Dumps[pair.Old.Name]

	record, err := w.Comparer.Compare(ctx, adapter.CompareRequest{
		Library:   pair.Old.Name,
		OldDump:   oldDump.Path,
		NewDump:   r.sides[m.AgeNew].Dumps[pair.New.Name].Path,
		BinReport: w.FS.JoinPath(string(objDir), BinaryReportName),
		SrcReport: w.FS.JoinPath(string(objDir), SourceReportName),
		Mode:      r.args.Mode,
	})
	if err != nil {
		return result, err
	}

	for _, stats := range []*m.CompatStats{record.Binary, record.Source} {
		if stats == nil {
			continue
		}

		rel, err := w.FS.RelPath(r.reportDir, m.Path(stats.ReportPath))
		if err != nil {
			return result, err
		}

		stats.ReportPath = filepath.ToSlash(string(rel))
	}

	result.Record = record

	symbols, err := counts.Count(ctx, oldDump.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		slog.Warn("Failed to count symbols of compared object", "object", pair.Old.Name, "error", err)
	}

	result.Symbols = symbols

	return result, nil
}

func (w *workflow) buildSummary(r *run, match MatchResult, compared map[string]m.PairResult, score m.PackageScore) *m.RunSummary {
	oldSide, newSide := r.sides[m.AgeOld], r.sides[m.AgeNew]

	summary := &m.RunSummary{
		ID:        uuid.NewString(),
		Old:       oldSide.Attributes,
		New:       newSide.Attributes,
		PublicABI: r.publicABI,
		Mode:      r.args.Mode,
		ReportDir: r.reportDir,
		Score:     score,
		Meta:      BuildMeta(score, r.args.Mode),
		Packages:  packageRows(oldSide, newSide, r.publicABI),
	}

	if summary.Meta.BCEffective != nil {
		summary.BinaryClass = CompatClass(score.BCEffective, score.Problems)
	}

	if summary.Meta.SourceBC != nil {
		summary.SourceClass = CompatClass(score.SourceBC, score.SrcProblems)
	}

	for _, obj := range newSide.DumpedObjects() {
		if containsObject(match.Added, obj.Name) {
			summary.Objects = append(summary.Objects, m.ObjectRow{Name: obj.Name, Status: m.ObjectAdded, NewSONAME: obj.SONAME})
		}
	}

	newNames := map[string]m.SharedObject{}
	for _, pair := range match.Pairs {
		newNames[pair.Old.Name] = pair.New
	}

	old := oldSide.DumpedObjects()
	sort.SliceStable(old, func(i, j int) bool { return m.LessFold(old[i].Name, old[j].Name) })

	for _, obj := range old {
		row := m.ObjectRow{Name: obj.Name, OldSONAME: obj.SONAME}

		newObj, mapped := newNames[obj.Name]
		if !mapped {
			row.Status = m.ObjectRemoved
			summary.Objects = append(summary.Objects, row)

			continue
		}

		row.NewName = newObj.Name
		row.NewSONAME = newObj.SONAME
		row.Renamed = match.IsRenamed(obj.Name)
		row.SONAMEChanged = m.ObjectPair{Old: obj, New: newObj}.SONAMEChanged()

		result, ok := compared[obj.Name]
		if !ok {
			row.Status = m.ObjectFailed
			summary.Objects = append(summary.Objects, row)

			continue
		}

		row.Status = m.ObjectCompared
		row.Symbols = result.Symbols
		row.Binary = rateCell(result.Record.Binary)
		row.Source = rateCell(result.Record.Source)

		summary.Objects = append(summary.Objects, row)
	}

	return summary
}

func rateCell(stats *m.CompatStats) *m.RateCell {
	if stats == nil {
		return nil
	}

	// The class follows the exact rate: 99.996 prints as "100" but is not ok.
	return &m.RateCell{
		Text:     m.FormatPercent(stats.Rate()),
		Class:    CompatClass(stats.Rate(), stats.Problems),
		Report:   stats.ReportPath,
		Added:    stats.Added,
		Removed:  stats.Removed,
		Problems: stats.Problems,
	}
}

var packageFileKinds = map[m.PackageKind]m.FileKind{
	m.KindRelease: m.FileObject,
	m.KindDebug:   m.FileDebugInfo,
	m.KindDevel:   m.FileHeader,
}

func packageRows(oldSide, newSide *m.ReleaseSide, publicABI bool) []m.PackageRow {
	var rows []m.PackageRow

	for _, kind := range m.PackageKinds {
		if kind == m.KindDevel && !publicABI {
			continue
		}

		oldNames := packageNames(oldSide.Packages[kind])
		newNames := packageNames(newSide.Packages[kind])

		for i := range oldNames {
			row := m.PackageRow{Kind: kind, Old: oldNames[i], Files: len(oldSide.Files[packageFileKinds[kind]])}
			if i < len(newNames) {
				row.New = newNames[i]
			}

			rows = append(rows, row)
		}
	}

	return rows
}

func packageNames(pkgs []m.Package) []string {
	names := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		names = append(names, filepath.Base(string(p.Path)))
	}

	sort.Slice(names, func(i, j int) bool { return m.LessFold(names[i], names[j]) })

	return names
}

func containsObject(objects []m.SharedObject, name string) bool {
	for _, obj := range objects {
		if obj.Name == name {
			return true
		}
	}

	return false
}

// cleanup removes a directory, logging errors if cleanup fails.
func (w *workflow) cleanup(dir m.Path) {
	if err := w.FS.RemoveAll(dir); err != nil {
		slog.Error("Failed to cleanup directory", "dir", dir, "error", err)
	}
}

// IsReportExists reports whether err only means the report was already present.
func IsReportExists(err error) bool {
	return errors.Is(err, ErrReportExists)
}
