package adapter

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

// ABIComplianceCheckerTool compares dumps and counts their symbols.
const ABIComplianceCheckerTool = "abi-compliance-checker"

var reportStatPattern = regexp.MustCompile(`(\w+):([^\s]+)`)

// CompareRequest describes one comparison of two dumps.
type CompareRequest struct {
	Library   string
	OldDump   m.Path
	NewDump   m.Path
	BinReport m.Path
	SrcReport m.Path
	Mode      m.CompareMode
}

// CompatibilityComparer compares two dumps and returns their statistics.
// Report paths in the result are the ones given in the request.
type CompatibilityComparer interface {
	Compare(ctx context.Context, req CompareRequest) (m.CompatibilityRecord, error)
}

// SymbolCounter counts the public symbols recorded in a dump.
type SymbolCounter interface {
	CountSymbols(ctx context.Context, dump m.Path) (int, error)
}

// ABIComplianceChecker runs abi-compliance-checker.
type ABIComplianceChecker struct {
	runner CommandRunner
}

// NewABIComplianceChecker constructs an ABIComplianceChecker.
func NewABIComplianceChecker(runner CommandRunner) *ABIComplianceChecker {
	return &ABIComplianceChecker{runner: runner}
}

// CompareArgs assembles the abi-compliance-checker command line for req.
func CompareArgs(req CompareRequest) []string {
	args := []string{"-l", req.Library, "-component", "object"}

	if req.Mode.Binary {
		args = append(args, "-bin", "-bin-report-path", string(req.BinReport))
	}

	if req.Mode.Source {
		args = append(args, "-src", "-src-report-path", string(req.SrcReport))
	}

	return append(args, "-old", string(req.OldDump), "-new", string(req.NewDump))
}

// Compare runs the checker and reads the statistics from the written reports.
// The exit status is ignored: the checker exits non-zero for incompatible
// libraries, a missing report is what signals failure.
func (c *ABIComplianceChecker) Compare(ctx context.Context, req CompareRequest) (m.CompatibilityRecord, error) {
	cmd := Command{Name: ABIComplianceCheckerTool, Args: CompareArgs(req)}
	slog.Debug("Executing", "command", cmd.String())

	if _, err := c.runner.Run(ctx, cmd); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return m.CompatibilityRecord{}, ctxErr
		}

		slog.Debug("abi-compliance-checker exited with error", "library", req.Library, "error", err)
	}

	var record m.CompatibilityRecord

	if req.Mode.Binary {
		stats, err := ReadReportStats(req.BinReport)
		if err != nil {
			return m.CompatibilityRecord{}, fmt.Errorf("failed to create BC report for object %s: %w", req.Library, err)
		}

		record.Binary = &stats
	}

	if req.Mode.Source {
		stats, err := ReadReportStats(req.SrcReport)
		if err != nil {
			return m.CompatibilityRecord{}, fmt.Errorf("failed to create SC report for object %s: %w", req.Library, err)
		}

		record.Source = &stats
	}

	return record, nil
}

// CountSymbols runs "abi-compliance-checker -count-symbols".
func (c *ABIComplianceChecker) CountSymbols(ctx context.Context, dump m.Path) (int, error) {
	result, err := c.runner.Run(ctx, Command{Name: ABIComplianceCheckerTool, Args: []string{"-count-symbols", string(dump)}})
	if err != nil {
		return 0, fmt.Errorf("count symbols in %s: %w", dump, err)
	}

	count, err := strconv.Atoi(strings.TrimSpace(result.Stdout))
	if err != nil {
		return 0, fmt.Errorf("count symbols in %s: %w", dump, err)
	}

	return count, nil
}

// ReadReportStats parses the statistics comment on the first line of a
// compatibility report.
func ReadReportStats(path m.Path) (m.CompatStats, error) {
	//nolint:gosec // G304: report path is built from the report directory.
	f, err := os.Open(string(path))
	if err != nil {
		return m.CompatStats{}, err
	}

	defer func() { _ = f.Close() }()

	line, err := bufio.NewReader(f).ReadString('\n')
	if line == "" && err != nil {
		return m.CompatStats{}, fmt.Errorf("read report header: %w", err)
	}

	stats, err := ParseReportStats(line)
	if err != nil {
		return m.CompatStats{}, err
	}

	stats.ReportPath = string(path)

	return stats, nil
}

// ParseReportStats parses "key:value;key:value" pairs. Problems are the sum of
// every *_problems_* counter plus changed_constants.
func ParseReportStats(line string) (m.CompatStats, error) {
	values := map[string]string{}

	for _, element := range strings.Split(line, ";") {
		if match := reportStatPattern.FindStringSubmatch(element); match != nil {
			values[match[1]] = match[2]
		}
	}

	affected, ok := values["affected"]
	if !ok {
		return m.CompatStats{}, fmt.Errorf("report header has no affected rate: %q", strings.TrimSpace(line))
	}

	var (
		stats m.CompatStats
		err   error
	)

	if stats.Affected, err = strconv.ParseFloat(affected, 64); err != nil {
		return m.CompatStats{}, fmt.Errorf("parse affected rate: %w", err)
	}

	stats.Added = atoiOrZero(values["added"])
	stats.Removed = atoiOrZero(values["removed"])

	for key, value := range values {
		if strings.Contains(key, "_problems_") || key == "changed_constants" {
			stats.Problems += atoiOrZero(value)
		}
	}

	return stats, nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}

	return n
}
