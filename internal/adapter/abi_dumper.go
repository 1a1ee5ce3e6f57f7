package adapter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

// ABIDumperTool is the executable that produces ABI dumps.
const ABIDumperTool = "abi-dumper"

// abiDumperNoABIExit is the exit status abi-dumper uses for objects without ABI.
const abiDumperNoABIExit = 12

// ErrNoABI is returned when the dumper reports that an object exports no ABI.
var ErrNoABI = errors.New("object has no ABI")

var dumpLanguagePattern = regexp.MustCompile(`'Language' => '(.+)'`)

// DumperOptions are forwarded to abi-dumper unchanged.
type DumperOptions struct {
	Quiet                   bool
	UseTUDump               bool
	IncludePreamble         string
	IncludePaths            string
	IgnoreTags              string
	KeepRegistersAndOffsets bool
	// ExtraArgs are appended before the object path.
	ExtraArgs []string
}

// DumpRequest describes one dump to build.
type DumpRequest struct {
	Object       m.Path
	Output       m.Path
	Version      string
	DebugInfoDir m.Path
	// PublicHeadersDir restricts the dump to the public ABI when set.
	PublicHeadersDir m.Path
	Options          DumperOptions
}

// DumpGenerator builds an ABI dump for one shared object.
type DumpGenerator interface {
	GenerateDump(ctx context.Context, req DumpRequest) error
}

// DumpInspector reads the attributes recorded at the top of a dump.
type DumpInspector interface {
	InspectDump(path m.Path) (m.DumpAttributes, error)
}

// ABIDumper runs abi-dumper.
type ABIDumper struct {
	runner CommandRunner
}

// NewABIDumper constructs an ABIDumper.
func NewABIDumper(runner CommandRunner) *ABIDumper {
	return &ABIDumper{runner: runner}
}

// DumpArgs assembles the abi-dumper command line for req.
func DumpArgs(req DumpRequest) []string {
	args := []string{"-o", string(req.Output), "-lver", req.Version}

	opts := req.Options
	if opts.Quiet {
		args = append(args, "-quiet")
	}

	args = append(args, "-search-debuginfo", string(req.DebugInfoDir))

	if req.PublicHeadersDir != "" {
		args = append(args, "-public-headers", string(req.PublicHeadersDir))
	}

	if opts.UseTUDump {
		args = append(args, "-use-tu-dump")

		if opts.IncludePreamble != "" {
			args = append(args, "-include-preamble", opts.IncludePreamble)
		}

		if opts.IncludePaths != "" {
			args = append(args, "-include-paths", opts.IncludePaths)
		}
	} else if opts.IgnoreTags != "" {
		args = append(args, "-ignore-tags", opts.IgnoreTags)
	}

	if opts.KeepRegistersAndOffsets {
		args = append(args, "-keep-registers-and-offsets")
	}

	args = append(args, opts.ExtraArgs...)

	return append(args, string(req.Object))
}

// GenerateDump runs abi-dumper and checks that the dump was written.
func (d *ABIDumper) GenerateDump(ctx context.Context, req DumpRequest) error {
	cmd := Command{Name: ABIDumperTool, Args: DumpArgs(req)}
	slog.Debug("Executing", "command", cmd.String())

	result, runErr := d.runner.Run(ctx, cmd)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if result.Stdout != "" {
		slog.Debug("abi-dumper output", "object", req.Object, "output", result.Stdout)
	}

	if _, err := os.Stat(string(req.Output)); err == nil {
		return nil
	}

	if result.ExitCode == abiDumperNoABIExit {
		return ErrNoABI
	}

	if runErr != nil {
		return fmt.Errorf("failed to create ABI dump: %w", runErr)
	}

	return errors.New("failed to create ABI dump: no output written")
}

// LocalDumpInspector scans dump files on disk.
type LocalDumpInspector struct{}

// NewLocalDumpInspector constructs a LocalDumpInspector.
func NewLocalDumpInspector() *LocalDumpInspector {
	return &LocalDumpInspector{}
}

// InspectDump reads the language and whether SymbolInfo is empty. Reading
// stops at the SymbolInfo line.
func (i *LocalDumpInspector) InspectDump(path m.Path) (m.DumpAttributes, error) {
	//nolint:gosec // G304: dump path is built by the dump cache.
	f, err := os.Open(string(path))
	if err != nil {
		return m.DumpAttributes{}, err
	}

	defer func() { _ = f.Close() }()

	return ParseDumpAttributes(f)
}

// ParseDumpAttributes scans a dump stream for its language and SymbolInfo.
func ParseDumpAttributes(r io.Reader) (m.DumpAttributes, error) {
	var attrs m.DumpAttributes

	reader := bufio.NewReader(r)

	for {
		line, err := reader.ReadString('\n')

		if strings.Contains(line, "'Language' =>") {
			if match := dumpLanguagePattern.FindStringSubmatch(line); match != nil {
				attrs.Language = match[1]
			}
		} else if strings.Contains(line, "'SymbolInfo' =>") {
			attrs.Empty = strings.Contains(line, "'SymbolInfo' => {}")
			return attrs, nil
		}

		if errors.Is(err, io.EOF) {
			return attrs, nil
		}

		if err != nil {
			return attrs, err
		}
	}
}
