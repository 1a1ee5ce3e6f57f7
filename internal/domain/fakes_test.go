package domain

import (
	"context"
	"path/filepath"

	"github.com/stretchr/testify/mock"

	"pkgabidiff.dev/pkg/pkgabidiff/internal/adapter"
	"pkgabidiff.dev/pkg/pkgabidiff/internal/controller"
	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

// mockDumpGenerator is a testify mock of adapter.DumpGenerator.
type mockDumpGenerator struct {
	mock.Mock
	// write creates the output file before returning.
	write func(path m.Path)
}

func (g *mockDumpGenerator) GenerateDump(ctx context.Context, req adapter.DumpRequest) error {
	args := g.Called(ctx, req)

	err := args.Error(0)
	if err == nil && g.write != nil {
		g.write(req.Output)
	}

	return err
}

type mockDumpInspector struct {
	mock.Mock
}

func (i *mockDumpInspector) InspectDump(path m.Path) (m.DumpAttributes, error) {
	args := i.Called(path)
	return args.Get(0).(m.DumpAttributes), args.Error(1)
}

type mockSymbolCounter struct {
	mock.Mock
}

func (c *mockSymbolCounter) CountSymbols(ctx context.Context, dump m.Path) (int, error) {
	args := c.Called(ctx, dump)
	return args.Int(0), args.Error(1)
}

type mockComparer struct {
	mock.Mock
}

func (c *mockComparer) Compare(ctx context.Context, req adapter.CompareRequest) (m.CompatibilityRecord, error) {
	args := c.Called(ctx, req)
	return args.Get(0).(m.CompatibilityRecord), args.Error(1)
}

type mockToolChecker struct {
	mock.Mock
}

func (c *mockToolChecker) CheckTools(ctx context.Context, tools []adapter.ToolRequirement) error {
	return c.Called(ctx, tools).Error(0)
}

type mockAttributeReader struct {
	mock.Mock
}

func (r *mockAttributeReader) ReadAttributes(ctx context.Context, path m.Path, format m.PackageFormat) (m.PackageAttributes, error) {
	args := r.Called(ctx, path, format)
	return args.Get(0).(m.PackageAttributes), args.Error(1)
}

type mockExtractor struct {
	mock.Mock
	// files maps a package path to the relative files it unpacks.
	files map[m.Path][]string
	fs    adapter.FSAdapter
}

func (e *mockExtractor) Extract(ctx context.Context, pkg m.Package, dest m.Path) error {
	if err := e.Called(ctx, pkg, dest).Error(0); err != nil {
		return err
	}

	for _, rel := range e.files[pkg.Path] {
		if err := e.fs.WriteFile(e.fs.JoinPath(string(dest), rel), []byte("\x7fELF"), 0o644); err != nil {
			return err
		}
	}

	return nil
}

// fakeObjectInspector treats every file as ELF and looks SONAMEs up by base name.
type fakeObjectInspector struct {
	sonames map[string]string
}

func (i fakeObjectInspector) IsELF(m.Path) (bool, error) {
	return true, nil
}

func (i fakeObjectInspector) ReadSONAME(path m.Path) (string, error) {
	return i.sonames[baseName(path)], nil
}

func baseName(path m.Path) string {
	return filepath.Base(string(path))
}

type mockReportStore struct {
	mock.Mock
}

func (s *mockReportStore) SaveMeta(dir m.Path, meta m.Meta) error {
	return s.Called(dir, meta).Error(0)
}

func (s *mockReportStore) LoadMeta(dir m.Path) (m.Meta, error) {
	args := s.Called(dir)
	return args.Get(0).(m.Meta), args.Error(1)
}

func (s *mockReportStore) SaveIndex(dir m.Path, summary *m.RunSummary) error {
	return s.Called(dir, summary).Error(0)
}

func (s *mockReportStore) RemoveIndex(dir m.Path) error {
	return s.Called(dir).Error(0)
}

type mockHistoryStore struct {
	mock.Mock
}

func (h *mockHistoryStore) Record(ctx context.Context, summary *m.RunSummary) error {
	return h.Called(ctx, summary).Error(0)
}

func (h *mockHistoryStore) List(ctx context.Context, limit int) ([]m.HistoryEntry, error) {
	args := h.Called(ctx, limit)
	return args.Get(0).([]m.HistoryEntry), args.Error(1)
}

func (h *mockHistoryStore) Close() error {
	return h.Called().Error(0)
}

type mockUI struct {
	mock.Mock
}

func (u *mockUI) Start(ctx context.Context, options ...controller.StartOption) error {
	return u.Called(ctx, options).Error(0)
}

func (u *mockUI) Close(ctx context.Context) {
	u.Called(ctx)
}

func (u *mockUI) DisplayStage(ctx context.Context, stage string, total int) {
	u.Called(ctx, stage, total)
}

func (u *mockUI) DisplayWarning(ctx context.Context, message string) {
	u.Called(ctx, message)
}

func (u *mockUI) DisplayDumpResult(ctx context.Context, age m.Age, object string, dump m.ABIDump, err error) {
	u.Called(ctx, age, object, dump, err)
}

func (u *mockUI) DisplayComparison(ctx context.Context, result m.PairResult, err error) {
	u.Called(ctx, result, err)
}

func (u *mockUI) DisplaySummary(ctx context.Context, summary *m.RunSummary) {
	u.Called(ctx, summary)
}

func (u *mockUI) DisplayReportExists(ctx context.Context, dir m.Path) {
	u.Called(ctx, dir)
}

// quietUI accepts every progress event.
func quietUI() *mockUI {
	ui := &mockUI{}
	ui.On("DisplayStage", mock.Anything, mock.Anything, mock.Anything).Maybe()
	ui.On("DisplayWarning", mock.Anything, mock.Anything).Maybe()
	ui.On("DisplayDumpResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	ui.On("DisplayComparison", mock.Anything, mock.Anything, mock.Anything).Maybe()

	return ui
}
