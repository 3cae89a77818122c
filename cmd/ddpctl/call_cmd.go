package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/ddp-client/internal/session"
)

func newCallCommand(root *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "call <method> [json-arg...]",
		Short: "Call a method and print its result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, params := args[0], parseArgs(args[1:])
			return runSession(cmd.Context(), root, nil, func(ctx context.Context, s *session.Session) error {
				if timeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, timeout)
					defer cancel()
				}

				result, err := s.Call(name, params).Await(ctx)
				if err != nil {
					return fmt.Errorf("call %s: %w", name, err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(result))
				return err
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "give up waiting for the result after this long, 0 waits forever")
	return cmd
}
