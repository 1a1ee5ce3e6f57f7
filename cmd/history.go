package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"pkgabidiff.dev/pkg/pkgabidiff/internal/adapter"
	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

const defaultHistoryLimit = 20

// historyCmd represents the history command.
var historyCmd = newHistoryCmd()

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded compare runs",
		Long:  "List the most recent compare runs recorded in " + filepath.Join(historyDirName, adapter.HistoryFileName) + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := adapter.OpenHistoryStore(m.Path(filepath.Join(configFolderPath, historyDirName)))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			renderHistory(cmd.OutOrStdout(), entries)

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "number of runs to show (0 shows all)")

	return cmd
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func renderHistory(out io.Writer, entries []m.HistoryEntry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "No recorded runs.")
		return
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Started", "Package", "Arch", "Old", "New", "BC", "BC eff.", "SC", "Problems", "Duration", "Report"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for _, e := range entries {
		table.Append([]string{
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Name,
			e.Arch,
			e.OldVersion,
			e.NewVersion,
			percentOrNA(e.BC),
			percentOrNA(e.BCEffective),
			percentOrNA(e.SourceBC),
			strconv.Itoa(e.Problems),
			e.Duration.Round(time.Second).String(),
			string(e.ReportDir),
		})
	}

	table.Render()
}

func percentOrNA(value string) string {
	if value == "" {
		return "N/A"
	}

	return value + "%"
}
