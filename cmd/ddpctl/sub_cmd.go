package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/ddp-client/internal/session"
)

func newSubCommand(root *rootOptions) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "sub <name> [json-arg...]",
		Short: "Subscribe and print data events until interrupted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, params := args[0], parseArgs(args[1:])
			return runSession(cmd.Context(), root, newPrintSink(cmd.OutOrStdout(), root.logger), func(ctx context.Context, s *session.Session) error {
				id, err := s.Subscribe(name, params)
				if err != nil {
					return fmt.Errorf("subscribe %s: %w", name, err)
				}
				defer func() { _ = s.Unsubscribe(id) }()

				select {
				case <-s.Ready(id):
				case <-ctx.Done():
					return nil
				}
				if info, ok := s.Subscription(id); ok && info.Err != nil {
					return fmt.Errorf("subscribe %s: %w", name, info.Err)
				}
				root.logger.Info("subscription ready", "id", id, "name", name)

				if duration > 0 {
					timer := time.NewTimer(duration)
					defer timer.Stop()
					select {
					case <-timer.C:
					case <-ctx.Done():
					}
					return nil
				}
				<-ctx.Done()
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long, 0 runs until interrupted")
	return cmd
}
