package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazyvibe/websmith/internal/store"
)

// announceWait bounds how long a finished open waits for its notification.
const announceWait = 6 * time.Second

func newOpenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <id|nickname>",
		Short: "Open a site in its own browser window",
		Long: `Open launches the site with its profile applied and waits until the
window is closed or the command is interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := opts.services(announceEnded)
			if err != nil {
				return err
			}
			defer svc.Close()

			p, err := store.Find(ctx, svc.store, args[0])
			if err != nil {
				return err
			}

			// The session outlives ctx cancellation long enough to be closed below.
			sess, err := svc.engine.Open(context.WithoutCancel(ctx), p)
			if err != nil {
				return fmt.Errorf("open %s: %w", p.DisplayName(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened %s. Close the window or press Ctrl+C to stop.\n", p.DisplayName())

			select {
			case <-sess.Done():
				// Let the notification go out before the process exits.
				select {
				case <-svc.announced:
				case <-time.After(announceWait):
				}
			case <-ctx.Done():
				svc.quiet.Store(true)
			}

			svc.logger.Info("Session finished",
				zap.String("profile", p.ID),
				zap.Int("blocked", sess.Blocked()))
			fmt.Fprintf(cmd.OutOrStdout(), "%s closed, %d navigations blocked.\n", p.DisplayName(), sess.Blocked())
			return nil
		},
	}
}
