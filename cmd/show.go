package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

const (
	showFormatTable = "table"
	showFormatYAML  = "yaml"
)

// showCmd represents the show command.
var showCmd = newShowCmd()

func newShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show REPORT_DIR",
		Short: "Print the scores of an existing report",
		Long:  "Print the package scores stored in the meta.json of a report directory.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := reportStore.LoadMeta(m.Path(args[0]))
			if err != nil {
				return err
			}

			return renderMeta(cmd.OutOrStdout(), meta, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", showFormatTable, "output format: table or yaml")

	return cmd
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func renderMeta(out io.Writer, meta m.Meta, format string) error {
	switch format {
	case showFormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)

		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("failed to encode meta: %w", err)
		}

		return enc.Close()
	case showFormatTable:
		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"Metric", "Value"})
		table.SetBorder(false)
		table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

		for _, row := range metaRows(meta) {
			table.Append(row)
		}

		table.Render()

		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func metaRows(meta m.Meta) [][]string {
	var rows [][]string

	if meta.BC != nil {
		rows = append(rows, []string{"BC", string(*meta.BC) + "%"})
	}

	if meta.BCEffective != nil {
		rows = append(rows, []string{"BC_Effective", string(*meta.BCEffective) + "%"})
	}

	if meta.SourceBC != nil {
		rows = append(rows, []string{"Source_BC", string(*meta.SourceBC) + "%"})
	}

	rows = append(rows,
		[]string{"Added", strconv.Itoa(meta.Added)},
		[]string{"Removed", strconv.Itoa(meta.Removed)},
	)

	if meta.TotalProblems != nil {
		rows = append(rows, []string{"TotalProblems", strconv.Itoa(*meta.TotalProblems)})
	}

	if meta.SourceTotalProblem != nil {
		rows = append(rows, []string{"Source_TotalProblems", strconv.Itoa(*meta.SourceTotalProblem)})
	}

	return append(rows,
		[]string{"ObjectsAdded", strconv.Itoa(meta.ObjectsAdded)},
		[]string{"ObjectsRemoved", strconv.Itoa(meta.ObjectsRemoved)},
		[]string{"ChangedSoname", strconv.Itoa(meta.ChangedSoname)},
	)
}
