package commands

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
)

func showCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Load and print one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer opts.teardown()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Errorf("invalid product id %q", args[0])
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			states := opts.store.DetailState().Watch(ctx)
			opts.store.LoadDetail(id)

			return follow(ctx, cmd.OutOrStdout(), states, renderDetail)
		},
	}
	return cmd
}
