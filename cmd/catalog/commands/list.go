package commands

import (
	"context"

	"github.com/spf13/cobra"
)

func listCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Load and print the product list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer opts.teardown()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			states := opts.store.ListState().Watch(ctx)
			opts.store.LoadList()

			return follow(ctx, cmd.OutOrStdout(), states, renderList)
		},
	}
	return cmd
}
