package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewReapCommand runs every cleanup sweep once and exits. Useful from cron
// when serve runs with --no-reaper.
func NewReapCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Run the expiry sweeps once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			app, err := Build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close(ctx) }()

			removed, err := app.Reaper.RunOnce(ctx, time.Now())
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired item(s)\n", removed)
			return err
		},
	}
}
