// Package cmd provides the root command and CLI setup for pkgabidiff.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pkgabidiff.dev/pkg/pkgabidiff/internal/adapter"
	"pkgabidiff.dev/pkg/pkgabidiff/internal/controller"
	"pkgabidiff.dev/pkg/pkgabidiff/internal/domain"
)

var fsAdapter adapter.FSAdapter
var reportStore adapter.ReportStore
var commandRunner adapter.CommandRunner

// reportsOutputDirFlag is the root of the default report directory layout.
var reportsOutputDirFlag string

var verboseFlag bool
var logFileFlag string

func init() {
	// Initialize shared dependencies.
	fsAdapter = adapter.NewLocalFSAdapter()
	commandRunner = adapter.NewLocalCommandRunner()
	reportStore = adapter.NewLocalReportStore(toolVersion())
}

const rootLongDescription = `pkgabidiff checks backward API/ABI compatibility between two releases of
a Linux package.

Each release is given as a release package, its debuginfo package and,
optionally, its devel packages (rpm, deb, apk, tbz2 or xpak). Shared objects
are dumped with abi-dumper, matched across releases and compared with
abi-compliance-checker; the per-object results are aggregated into package
level compatibility scores and an HTML report.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pkgabidiff",
		Short:         "Package ABI compatibility checker",
		Long:          rootLongDescription,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag || viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"root directory for compatibility reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, "", "log file path (default from log.filename)")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, rootCmd, os.Stderr)

	stop()
	os.Exit(code)
}

// execute runs cmd and maps its error to an exit status.
func execute(ctx context.Context, cmd *cobra.Command, errOut io.Writer) int {
	err := cmd.ExecuteContext(ctx)

	code := domain.ExitCode(err)
	if code != domain.ExitOK {
		_, _ = fmt.Fprintln(errOut, "ERROR:", err)
	}

	return code
}

// newUI picks the progress display for a run.
func newUI(out io.Writer) controller.UI {
	return controller.NewUI(out, viper.GetBool(uiTUIKey))
}

// toolVersion returns the module version embedded at build time.
func toolVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "devel"
	}

	return info.Main.Version
}
