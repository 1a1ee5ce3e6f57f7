package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cosiner/argv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pkgabidiff.dev/pkg/pkgabidiff/internal/adapter"
	"pkgabidiff.dev/pkg/pkgabidiff/internal/controller"
	"pkgabidiff.dev/pkg/pkgabidiff/internal/domain"
	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

const compareLongDescription = `Compare the old and new releases of a package.

Each side takes exactly one release package and one debuginfo package. Devel
packages are optional; when given for both sides (same count) only the public
ABI declared in their headers is checked.

Package paths follow --old or --new up to the next option; repeating an
option appends to its list.

Example:
  pkgabidiff compare \
    --old libfoo-1.0-1.x86_64.rpm libfoo-debuginfo-1.0-1.x86_64.rpm \
    --new libfoo-1.1-1.x86_64.rpm libfoo-debuginfo-1.1-1.x86_64.rpm`

// compareFlags holds the compare command line.
type compareFlags struct {
	old []string
	new []string

	// lastList is the package list option parsed most recently. Bare
	// arguments that follow it are its values.
	lastList *packageList

	binary bool
	source bool

	rebuild       bool
	rebuildDumps  bool
	rebuildReport bool

	reportDir string
	dumpsDir  string
	tmpDir    string
	parallel  int
	noHistory bool
	noTUI     bool

	quiet                   bool
	useTUDump               bool
	includePreamble         string
	includePaths            string
	ignoreTags              string
	keepRegistersAndOffsets bool
	dumperArgs              string
}

// compareCmd represents the compare command.
var compareCmd = newCompareCmd()

func newCompareCmd() *cobra.Command {
	return newCompareCommand(&compareFlags{})
}

func newCompareCommand(flags *compareFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare --old PKG... --new PKG...",
		Short: "Check ABI compatibility of two package releases",
		Long:  compareLongDescription,
		Args:  flags.collectPackages,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, err := flags.compareArgs()
			if err != nil {
				return err
			}

			ui := newUI(cmd.OutOrStdout())
			if flags.noTUI {
				ui = controller.NewSimpleUI(cmd.OutOrStdout())
			}

			history := openHistory(flags.noHistory)
			if history != nil {
				defer func() { _ = history.Close() }()
			}

			workflow := newWorkflow(ui, history)

			if err := ui.Start(cmd.Context(), controller.WithTitle("Checking ABI compatibility")); err != nil {
				return err
			}
			defer ui.Close(cmd.Context())

			_, err = workflow.Compare(cmd.Context(), args)
			if err != nil && !domain.IsReportExists(err) {
				slog.Error("Compare failed", "error", err)
			}

			return err
		},
	}

	configureCompareFlags(cmd, flags)

	return cmd
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func configureCompareFlags(cmd *cobra.Command, flags *compareFlags) {
	f := cmd.Flags()

	f.Var(&packageList{paths: &flags.old, last: &flags.lastList}, "old", "old release packages: release, debuginfo and optional devel")
	f.Var(&packageList{paths: &flags.new, last: &flags.lastList}, "new", "new release packages: release, debuginfo and optional devel")
	// Stop at the first bare argument so collectPackages can hand it to the
	// list option in front of it.
	f.SetInterspersed(false)
	cobra.CheckErr(cmd.MarkFlagRequired("old"))
	cobra.CheckErr(cmd.MarkFlagRequired("new"))

	f.BoolVar(&flags.binary, "bin", false, "check binary compatibility only")
	f.BoolVar(&flags.source, "src", false, "check source compatibility only")

	f.BoolVarP(&flags.rebuild, "rebuild", "r", false, "rebuild ABI dumps and report")
	f.BoolVar(&flags.rebuildDumps, "rebuild-dumps", false, "rebuild ABI dumps")
	f.BoolVar(&flags.rebuildReport, "rebuild-report", false, "rebuild the report")

	f.StringVar(&flags.reportDir, "report-dir", "", "report directory (default <output>/<arch>/<name>/<old version>/<new version>)")

	f.StringVar(&flags.dumpsDir, dumpsDirFlagName, viper.GetString(dumpsDirConfigKey), "ABI dump cache directory")
	bindFlagToConfig(f.Lookup(dumpsDirFlagName), dumpsDirConfigKey)

	f.StringVar(&flags.tmpDir, tmpDirFlagName, viper.GetString(tmpDirConfigKey), "parent directory for temporary files")
	bindFlagToConfig(f.Lookup(tmpDirFlagName), tmpDirConfigKey)

	f.IntVarP(&flags.parallel, parallelFlagName, "p", viper.GetInt(parallelConfigKey), "number of parallel workers (0 means one per CPU)")
	bindFlagToConfig(f.Lookup(parallelFlagName), parallelConfigKey)

	f.BoolVar(&flags.noHistory, noHistoryFlagName, false, "do not record the run in the history database")
	f.BoolVar(&flags.noTUI, noTUIFlagName, false, "print plain progress lines instead of the interactive display")

	f.BoolVar(&flags.quiet, "quiet", false, "abi-dumper: do not warn about incompatible build options")
	f.BoolVar(&flags.useTUDump, "use-tu-dump", false, "abi-dumper: use the translation unit dump for public ABI")
	f.StringVar(&flags.includePreamble, "include-preamble", "", "abi-dumper: headers to include before the others")
	f.StringVar(&flags.includePaths, "include-paths", "", "abi-dumper: extra include paths")
	f.StringVar(&flags.ignoreTags, "ignore-tags", "", "abi-dumper: file with ctags kinds to ignore")
	f.BoolVar(&flags.keepRegistersAndOffsets, "keep-registers-and-offsets", false, "abi-dumper: keep registers and offsets in the dump")

	f.StringVar(&flags.dumperArgs, "dumper-args", viper.GetString(dumperArgsKey), "extra shell-quoted arguments for abi-dumper")
	bindFlagToConfig(f.Lookup("dumper-args"), dumperArgsKey)
}

// packageList is a pflag.Value collecting package paths. Unlike a string
// slice flag it never splits on commas.
type packageList struct {
	paths *[]string
	last  **packageList
}

func (l *packageList) String() string {
	if l.paths == nil || len(*l.paths) == 0 {
		return ""
	}

	return "[" + strings.Join(*l.paths, " ") + "]"
}

func (l *packageList) Set(value string) error {
	*l.paths = append(*l.paths, value)
	*l.last = l

	return nil
}

func (l *packageList) Type() string {
	return "paths"
}

// collectPackages assigns the bare arguments left after flag parsing to the
// --old or --new option in front of them, so that
// "--old a b --new c d" reads as old=[a b] and new=[c d]. Options after a
// package list are parsed here as well.
func (f *compareFlags) collectPackages(cmd *cobra.Command, args []string) error {
	for len(args) > 0 {
		if f.lastList == nil {
			return fmt.Errorf("unexpected argument %q, package paths follow --old or --new", args[0])
		}

		next := len(args)
		for i, arg := range args {
			if len(arg) > 1 && strings.HasPrefix(arg, "-") {
				next = i
				break
			}
		}

		for _, arg := range args[:next] {
			if err := f.lastList.Set(arg); err != nil {
				return err
			}
		}

		if next == len(args) {
			break
		}

		if err := cmd.Flags().Parse(args[next:]); err != nil {
			return cmd.FlagErrorFunc()(cmd, err)
		}

		if help, _ := cmd.Flags().GetBool("help"); help {
			return pflag.ErrHelp
		}

		args = cmd.Flags().Args()
	}

	return nil
}

// compareArgs converts the command line into workflow arguments.
func (f *compareFlags) compareArgs() (domain.CompareArgs, error) {
	if f.binary && f.source {
		return domain.CompareArgs{}, errors.New("--bin and --src are mutually exclusive")
	}

	extra, err := parseDumperArgs(viper.GetString(dumperArgsKey))
	if err != nil {
		return domain.CompareArgs{}, err
	}

	parallel := viper.GetInt(parallelConfigKey)
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}

	mode := m.CompareMode{Binary: !f.source, Source: !f.binary}

	return domain.CompareArgs{
		Old:           parsePaths(f.old),
		New:           parsePaths(f.new),
		Mode:          mode,
		RebuildDumps:  f.rebuild || f.rebuildDumps,
		RebuildReport: f.rebuild || f.rebuildReport,
		ReportsRoot:   m.Path(viper.GetString(outputFlagName)),
		ReportDir:     m.Path(f.reportDir),
		DumpsDir:      m.Path(viper.GetString(dumpsDirConfigKey)),
		TmpDir:        m.Path(viper.GetString(tmpDirConfigKey)),
		Parallel:      parallel,
		Dumper: adapter.DumperOptions{
			Quiet:                   f.quiet,
			UseTUDump:               f.useTUDump,
			IncludePreamble:         f.includePreamble,
			IncludePaths:            f.includePaths,
			IgnoreTags:              f.ignoreTags,
			KeepRegistersAndOffsets: f.keepRegistersAndOffsets,
			ExtraArgs:               extra,
		},
	}, nil
}

// parseDumperArgs splits a shell-quoted argument string. Pipes and
// backticks are rejected.
func parseDumperArgs(line string) ([]string, error) {
	if line == "" {
		return nil, nil
	}

	v, err := argv.Argv(line,
		func(s string) (string, error) {
			return "", fmt.Errorf("backtick not supported in '%s'", s)
		},
		nil)
	if err != nil {
		return nil, fmt.Errorf("invalid --dumper-args: %w", err)
	}

	if len(v) != 1 {
		return nil, fmt.Errorf("invalid --dumper-args '%s'", line)
	}

	return v[0], nil
}

// newWorkflow wires the local adapters into a compare workflow.
func newWorkflow(ui controller.UI, history adapter.HistoryStore) domain.Workflow {
	checker := adapter.NewABIComplianceChecker(commandRunner)

	return domain.NewWorkflow(domain.Dependencies{
		FS:            fsAdapter,
		Tools:         adapter.NewLocalToolChecker(commandRunner),
		Attributes:    adapter.NewLocalAttributeReader(commandRunner),
		Extractor:     adapter.NewLocalPackageExtractor(commandRunner),
		Objects:       adapter.NewELFObjectInspector(),
		Dumper:        adapter.NewABIDumper(commandRunner),
		DumpInspector: adapter.NewLocalDumpInspector(),
		Comparer:      checker,
		Counter:       checker,
		Reports:       reportStore,
		History:       history,
		UI:            ui,
	})
}

// openHistory opens the run history database, or returns nil when history is
// disabled or cannot be opened.
func openHistory(disabled bool) adapter.HistoryStore {
	if disabled || !viper.GetBool(historyConfigKey) {
		return nil
	}

	store, err := adapter.OpenHistoryStore(m.Path(filepath.Join(configFolderPath, historyDirName)))
	if err != nil {
		slog.Warn("Run history is unavailable", "error", err)
		return nil
	}

	return store
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
