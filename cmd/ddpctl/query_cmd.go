package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/ddp-client/internal/session"
)

func newQueryCommand(root *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "query <method> [json-arg...]",
		Short: "Run a query method and print the entities it returns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, params := args[0], parseArgs(args[1:])
			return runSession(cmd.Context(), root, nil, func(ctx context.Context, s *session.Session) error {
				if timeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, timeout)
					defer cancel()
				}

				id, err := s.RequestQuery(name, params)
				if err != nil {
					return fmt.Errorf("query %s: %w", name, err)
				}
				defer func() { _ = s.ReleaseQuery(id) }()

				select {
				case <-s.Ready(id):
				case <-ctx.Done():
					return fmt.Errorf("query %s: %w", name, ctx.Err())
				}

				info, ok := s.Query(id)
				if !ok {
					return fmt.Errorf("query %s: %w", name, session.ErrUnknownQuery)
				}
				if info.Err != nil {
					return fmt.Errorf("query %s: %w", name, info.Err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(info.Entities))
				return err
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "give up waiting for the result after this long, 0 waits forever")
	return cmd
}
