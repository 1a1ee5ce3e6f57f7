package cmd

import (
	"runtime"

	"github.com/spf13/cobra"

	"pkgabidiff.dev/pkg/pkgabidiff/internal/adapter"
	"pkgabidiff.dev/pkg/pkgabidiff/internal/domain"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long:  "Displays the build version, the Go version and the minimum versions of the external ABI tools.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("pkgabidiff\t", toolVersion())
			cmd.Println("go version\t", runtime.Version())
			cmd.Println(adapter.ABIDumperTool+"\t >=", domain.MinABIDumperVersion)
			cmd.Println(adapter.ABIComplianceCheckerTool+"\t >=", domain.MinABIComplianceCheckerVersion)
		},
	}
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
