package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stagecap/internal/notifications"
	"stagecap/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, directories, and free space",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintf(out, "Config: %s", ctx.configPath)
			if !ctx.configExists {
				fmt.Fprint(out, " (not found, defaults in use)")
			}
			fmt.Fprintln(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			if notify {
				sendCtx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
				defer cancel()
				svc := notifications.NewService(cfg, logger)
				defer svc.Close()
				if err := svc.Publish(sendCtx, notifications.EventTest, nil); err != nil {
					fmt.Fprintln(out, renderStatusLine("Notifications", statusError, err.Error(), colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, "test sent", colorize))
				}
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "Also send a test notification")
	return cmd
}
