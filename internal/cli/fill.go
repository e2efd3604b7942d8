package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/javajack/xlform"
)

// NewFillCommand creates the fill command.
func NewFillCommand(rootOpts *RootOptions) *cobra.Command {
	var valuesPath, mappingPath, outPath string
	cmd := &cobra.Command{
		Use:           "fill <template.xlsx>",
		Short:         "Write values into a copy of a workbook",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "read workbook", err)
			}
			values, err := readValues(valuesPath)
			if err != nil {
				return err
			}
			cells, err := readMapping(mappingPath)
			if err != nil {
				return err
			}
			if xlform.DetectFormat(data) == "ods" {
				wb, err := xlform.LoadWorkbook(data)
				if err != nil {
					return WrapExitError(ExitCommandError, args[0], err)
				}
				if data, err = xlform.EncodeXLSX(wb); err != nil {
					return WrapExitError(ExitCommandError, "convert ods", err)
				}
			}
			out, err := xlform.FillValues(data, values, cells...)
			if err != nil {
				return WrapExitError(ExitCommandError, "fill", err)
			}
			if err := os.WriteFile(outPath, out, 0o644); err != nil {
				return WrapExitError(ExitCommandError, "write output", err)
			}
			res := map[string]any{"output": outPath, "values": len(values)}
			return printer{rootOpts.Format, cmd.OutOrStdout()}.print(res, func(w io.Writer) {
				fmt.Fprintf(w, "wrote %d value(s) to %s\n", len(values), outPath)
			})
		},
	}
	cmd.Flags().StringVar(&valuesPath, "values", "", "YAML values file (required)")
	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "YAML mapping set; number cells are written as numbers")
	cmd.Flags().StringVarP(&outPath, "output", "o", "filled.xlsx", "output path")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}
