package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/javajack/xlform/internal/auth"
	"github.com/javajack/xlform/internal/config"
	"github.com/javajack/xlform/internal/store"
)

// NewBootstrapCommand creates the bootstrap command, which creates the schema
// and the configured admin account.
func NewBootstrapCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "bootstrap",
		Short:         "Create the database schema and the admin account",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return WrapExitError(ExitCommandError, "open database", err)
			}
			defer st.Close()

			svc := auth.NewService(st, cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
			created, err := svc.Bootstrap(cmd.Context(), cfg.Admin.Email, cfg.Admin.Password)
			if err != nil {
				return WrapExitError(ExitCommandError, "bootstrap", err)
			}
			res := map[string]any{"email": cfg.Admin.Email, "created": created}
			return printer{rootOpts.Format, cmd.OutOrStdout()}.print(res, func(w io.Writer) {
				if created {
					fmt.Fprintf(w, "created admin %s\n", cfg.Admin.Email)
				} else {
					fmt.Fprintf(w, "admin %s already exists\n", cfg.Admin.Email)
				}
			})
		},
	}
}

func loadConfig(rootOpts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(rootOpts.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "load config", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}
