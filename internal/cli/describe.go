package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/javajack/xlform"
)

// describeResult is the JSON form of describe.
type describeResult struct {
	Sheets []sheetSummary      `json:"sheets"`
	Cells  []xlform.MappedCell `json:"cells"`
}

type sheetSummary struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	var mappingPath string
	cmd := &cobra.Command{
		Use:           "describe <workbook>",
		Short:         "Print a workbook's sheets and mapped cells",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := readWorkbook(args[0])
			if err != nil {
				return err
			}
			cells, err := readMapping(mappingPath)
			if err != nil {
				return err
			}
			m := xlform.BuildMappingSet(cells)

			res := describeResult{Cells: m.Cells()}
			for _, s := range wb.Sheets {
				res.Sheets = append(res.Sheets, sheetSummary{Name: s.Name, Rows: len(s.Rows)})
			}
			return printer{rootOpts.Format, cmd.OutOrStdout()}.print(res, func(w io.Writer) {
				io.WriteString(w, xlform.Describe(wb, m))
			})
		},
	}
	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "YAML mapping set to overlay")
	return cmd
}
