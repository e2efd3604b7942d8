package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/javajack/xlform"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []validationIssue `json:"issues,omitempty"`
}

type validationIssue struct {
	Severity string `json:"severity"`
	Index    int    `json:"index"`
	Sheet    string `json:"sheet"`
	Cell     string `json:"cell"`
	Message  string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var mappingPath string
	cmd := &cobra.Command{
		Use:   "validate <workbook>",
		Short: "Check a mapping set against a workbook",
		Long: `Check every mapped cell against the workbook. Invalid addresses and
unknown sheets are errors; duplicates and unknown data types are warnings.
Exits 1 when any error is found.`,
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
			issues := xlform.ValidateMapping(wb, cells)

			res := ValidationResult{Valid: !xlform.HasErrors(issues)}
			for _, is := range issues {
				sev := "error"
				if is.Severity == xlform.SeverityWarning {
					sev = "warning"
				}
				res.Issues = append(res.Issues, validationIssue{
					Severity: sev,
					Index:    is.Index,
					Sheet:    is.Cell.SheetName,
					Cell:     is.Cell.CellRef,
					Message:  is.Message,
				})
			}
			err = printer{rootOpts.Format, cmd.OutOrStdout()}.print(res, func(w io.Writer) {
				for _, is := range issues {
					fmt.Fprintln(w, is.String())
				}
				if res.Valid {
					fmt.Fprintf(w, "OK: %d mapped cell(s)\n", len(cells))
				}
			})
			if err != nil {
				return err
			}
			if !res.Valid {
				return &ExitError{Code: ExitFailure, Message: "mapping has errors"}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "YAML mapping set (required)")
	_ = cmd.MarkFlagRequired("mapping")
	return cmd
}
