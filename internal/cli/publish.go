package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"productmd/internal/app"
)

type publishOptions struct {
	Output  string
	BaseURL string
}

func newPublishCommand() *cobra.Command {
	opts := publishOptions{}
	cmd := &cobra.Command{
		Use:   "publish PATH",
		Short: "Rewrite artifact locations to a remote base url and write 2.0 metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output path")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "Base url artifacts are served from")
	_ = cmd.MarkFlagRequired("output")
	_ = viper.BindPFlag("base_url", cmd.Flags().Lookup("base-url"))
	return cmd
}

func runPublish(ctx context.Context, cmd *cobra.Command, path string, opts publishOptions) error {
	service := newAppService()
	result, err := service.Publish(ctx, app.PublishRequest{
		Path:    path,
		Output:  opts.Output,
		BaseURL: resolveString(cmd, opts.BaseURL, "base_url", "base-url"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published %s: %d locations -> %s\n", result.Kind, result.Locations, result.Output)
	return nil
}
