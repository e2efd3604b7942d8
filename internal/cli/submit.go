package cli

import (
	"cmp"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/javajack/xlform"
	"github.com/javajack/xlform/client"
)

type submitOptions struct {
	server     string
	email      string
	password   string
	templateID int64
	title      string
	valuesPath string
	exportPath string
}

// submitResult is the JSON form of submit.
type submitResult struct {
	InstanceID int64         `json:"instance_id"`
	Saves      []saveSummary `json:"saves"`
	Rejected   []string      `json:"rejected,omitempty"`
	Export     string        `json:"export,omitempty"`
}

type saveSummary struct {
	Sheet  string `json:"sheet"`
	Values int    `json:"values"`
	Events int    `json:"events"`
}

// NewSubmitCommand creates the submit command. It opens a session against a
// server, edits the listed cells sheet by sheet, saves after each sheet and
// optionally exports the result.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	o := &submitOptions{}
	cmd := &cobra.Command{
		Use:           "submit",
		Short:         "Fill a new instance of a template on a server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, rootOpts, o)
		},
	}
	cmd.Flags().StringVar(&o.server, "server", "http://localhost:8000", "server base URL")
	cmd.Flags().StringVar(&o.email, "email", os.Getenv("XLFORM_EMAIL"), "login email")
	cmd.Flags().StringVar(&o.password, "password", "", "login password (default $XLFORM_PASSWORD)")
	cmd.Flags().Int64Var(&o.templateID, "template", 0, "template ID (required)")
	cmd.Flags().StringVar(&o.title, "title", "", "instance title")
	cmd.Flags().StringVar(&o.valuesPath, "values", "", "YAML values file (required)")
	cmd.Flags().StringVar(&o.exportPath, "export", "", "write the exported PDF here")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func runSubmit(cmd *cobra.Command, rootOpts *RootOptions, o *submitOptions) error {
	ctx := cmd.Context()
	logger := cliLogger(cmd, rootOpts)

	values, err := readValues(o.valuesPath)
	if err != nil {
		return err
	}
	password := cmp.Or(o.password, os.Getenv("XLFORM_PASSWORD"))
	token, err := client.Login(ctx, o.server, o.email, password, client.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "login", err)
	}
	c := client.New(o.server, token, client.WithLogger(logger))

	sess, err := xlform.OpenSession(ctx, c, c, o.templateID, o.title, xlform.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "open session", err)
	}

	res := submitResult{InstanceID: sess.Instance().ID}
	for _, group := range groupBySheet(values, sess.Sheet()) {
		if group.sheet != sess.Sheet() {
			if err := sess.SwitchSheet(group.sheet); err != nil {
				return WrapExitError(ExitCommandError, "switch sheet", err)
			}
		}
		for _, v := range group.values {
			ok, err := sess.Set(v.CellRef, xlform.Text(v.Value))
			if err != nil {
				return WrapExitError(ExitCommandError, "edit", err)
			}
			if !ok {
				res.Rejected = append(res.Rejected, group.sheet+"!"+v.CellRef)
			}
		}
		saved, err := sess.Save(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "save", err)
		}
		res.Saves = append(res.Saves, saveSummary{Sheet: group.sheet, Values: saved.Values, Events: saved.EventsFlushed})
	}

	if o.exportPath != "" {
		doc, err := sess.Export(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "export", err)
		}
		if err := os.WriteFile(o.exportPath, doc.Data, 0o644); err != nil {
			return WrapExitError(ExitCommandError, "write export", err)
		}
		res.Export = o.exportPath
	}

	return printer{rootOpts.Format, cmd.OutOrStdout()}.print(res, func(w io.Writer) {
		fmt.Fprintf(w, "instance %d\n", res.InstanceID)
		for _, s := range res.Saves {
			fmt.Fprintf(w, "  saved %s: %d value(s), %d event(s)\n", s.Sheet, s.Values, s.Events)
		}
		for _, r := range res.Rejected {
			fmt.Fprintf(w, "  rejected %s: not a mapped cell\n", r)
		}
		if res.Export != "" {
			fmt.Fprintf(w, "  exported %s\n", res.Export)
		}
	})
}

type sheetValues struct {
	sheet  string
	values xlform.ValueSet
}

// groupBySheet groups values by sheet in first-seen order. Entries without a
// sheet belong to the session's initial sheet, which is always visited first.
func groupBySheet(values xlform.ValueSet, initial string) []sheetValues {
	groups := []sheetValues{{sheet: initial}}
	index := map[string]int{initial: 0}
	for _, v := range values {
		sheet := cmp.Or(v.SheetName, initial)
		i, ok := index[sheet]
		if !ok {
			i = len(groups)
			index[sheet] = i
			groups = append(groups, sheetValues{sheet: sheet})
		}
		groups[i].values = append(groups[i].values, v)
	}
	if len(groups[0].values) == 0 {
		groups = groups[1:]
	}
	return groups
}
