package adapter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

const (
	binReportHeader = "<!-- kind:binary;verdict:incompatible;affected:12.5;added:3;removed:2;type_problems_high:1;" +
		"type_problems_medium:0;type_problems_low:2;interface_problems_high:1;interface_problems_medium:0;" +
		"interface_problems_low:0;changed_constants:1;tool_version:2.3 -->\n<html>\n"
	srcReportHeader = "<!-- kind:source;verdict:compatible;affected:0;added:3;removed:0;type_problems_high:0;" +
		"changed_constants:0;tool_version:2.3 -->\n"
)

func TestCompareArgs(t *testing.T) {
	req := CompareRequest{
		Library:   "libfoo.so.1",
		OldDump:   "old/ABI.dump",
		NewDump:   "new/ABI.dump",
		BinReport: "r/abi_compat_report.html",
		SrcReport: "r/src_compat_report.html",
	}

	tests := []struct {
		name string
		mode m.CompareMode
		want []string
	}{
		{
			name: "both",
			mode: m.CompareMode{Binary: true, Source: true},
			want: []string{
				"-l", "libfoo.so.1", "-component", "object",
				"-bin", "-bin-report-path", "r/abi_compat_report.html",
				"-src", "-src-report-path", "r/src_compat_report.html",
				"-old", "old/ABI.dump", "-new", "new/ABI.dump",
			},
		},
		{
			name: "source only",
			mode: m.CompareMode{Source: true},
			want: []string{
				"-l", "libfoo.so.1", "-component", "object",
				"-src", "-src-report-path", "r/src_compat_report.html",
				"-old", "old/ABI.dump", "-new", "new/ABI.dump",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Mode = tt.mode
			assert.Equal(t, tt.want, CompareArgs(req))
		})
	}
}

func TestParseReportStats(t *testing.T) {
	stats, err := ParseReportStats(binReportHeader)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, stats.Affected, 0.0001)
	assert.Equal(t, 3, stats.Added)
	assert.Equal(t, 2, stats.Removed)
	assert.Equal(t, 5, stats.Problems)

	stats, err = ParseReportStats(srcReportHeader)
	require.NoError(t, err)
	assert.Zero(t, stats.Affected)
	assert.Zero(t, stats.Problems)

	_, err = ParseReportStats("<html>\n")
	require.Error(t, err)

	_, err = ParseReportStats("affected:lots;added:1")
	require.Error(t, err)
}

func TestReadReportStats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abi_compat_report.html")
	require.NoError(t, os.WriteFile(path, []byte(binReportHeader), 0o600))

	stats, err := ReadReportStats(m.Path(path))
	require.NoError(t, err)
	assert.Equal(t, path, stats.ReportPath)
	assert.Equal(t, 5, stats.Problems)

	empty := filepath.Join(dir, "empty.html")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	_, err = ReadReportStats(m.Path(empty))
	require.Error(t, err)

	_, err = ReadReportStats(m.Path(filepath.Join(dir, "missing.html")))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestABIComplianceChecker_Compare(t *testing.T) {
	dir := t.TempDir()
	req := CompareRequest{
		Library:   "libfoo.so.1",
		OldDump:   "old.dump",
		NewDump:   "new.dump",
		BinReport: m.Path(filepath.Join(dir, "abi_compat_report.html")),
		SrcReport: m.Path(filepath.Join(dir, "src_compat_report.html")),
		Mode:      m.CompareMode{Binary: true, Source: true},
	}

	writeReports := func(mock.Arguments) {
		require.NoError(t, os.WriteFile(string(req.BinReport), []byte(binReportHeader), 0o600))
		require.NoError(t, os.WriteFile(string(req.SrcReport), []byte(srcReportHeader), 0o600))
	}

	runner := &mockCommandRunner{}
	// The checker exits non-zero for incompatible libraries.
	runner.On("Run", mock.Anything, commandNamed(ABIComplianceCheckerTool)).
		Run(writeReports).
		Return(CommandResult{ExitCode: 1}, errors.New("exit status 1")).
		Once()

	record, err := NewABIComplianceChecker(runner).Compare(t.Context(), req)
	require.NoError(t, err)
	require.NotNil(t, record.Binary)
	require.NotNil(t, record.Source)
	assert.InDelta(t, 12.5, record.Binary.Affected, 0.0001)
	assert.Equal(t, string(req.SrcReport), record.Source.ReportPath)
	runner.AssertExpectations(t)
}

func TestABIComplianceChecker_Compare_MissingReport(t *testing.T) {
	dir := t.TempDir()

	runner := &mockCommandRunner{}
	runner.On("Run", mock.Anything, mock.Anything).Return(CommandResult{ExitCode: 2}, errors.New("exit status 2"))

	_, err := NewABIComplianceChecker(runner).Compare(t.Context(), CompareRequest{
		Library:   "libfoo.so.1",
		BinReport: m.Path(filepath.Join(dir, "abi_compat_report.html")),
		Mode:      m.CompareMode{Binary: true},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create BC report for object libfoo.so.1")
}

func TestABIComplianceChecker_CountSymbols(t *testing.T) {
	tests := []struct {
		name    string
		stdout  string
		runErr  error
		want    int
		wantErr bool
	}{
		{name: "count", stdout: "1520\n", want: 1520},
		{name: "garbage", stdout: "n/a", wantErr: true},
		{name: "tool failure", runErr: errors.New("exit status 1"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockCommandRunner{}
			runner.On("Run", mock.Anything, Command{
				Name: ABIComplianceCheckerTool,
				Args: []string{"-count-symbols", "old/ABI.dump"},
			}).Return(CommandResult{Stdout: tt.stdout}, tt.runErr)

			got, err := NewABIComplianceChecker(runner).CountSymbols(t.Context(), "old/ABI.dump")
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
