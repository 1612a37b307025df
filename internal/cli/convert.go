package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"productmd/internal/app"
	"productmd/internal/types"
)

type convertOptions struct {
	Output   string
	Version  string
	Encoding string
}

func newConvertCommand() *cobra.Command {
	opts := convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert PATH",
		Short: "Convert a metadata file to another version or encoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output path")
	cmd.Flags().StringVar(&opts.Version, "version", "", "Target metadata version (default: the source version)")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", "Output encoding: json, yaml or cbor (default: from the output name)")
	_ = cmd.MarkFlagRequired("output")
	_ = viper.BindPFlag("output_version", cmd.Flags().Lookup("version"))
	_ = viper.BindPFlag("encoding", cmd.Flags().Lookup("encoding"))
	return cmd
}

func runConvert(ctx context.Context, cmd *cobra.Command, path string, opts convertOptions) error {
	service := newAppService()
	result, err := service.Convert(ctx, app.ConvertRequest{
		Path:     path,
		Output:   opts.Output,
		Version:  resolveString(cmd, opts.Version, "output_version", "version"),
		Encoding: types.Encoding(resolveString(cmd, opts.Encoding, "encoding", "encoding")),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "converted %s %s -> %s (%s): %s\n",
		result.Kind, result.From, result.To, result.Encoding, result.Output)
	return nil
}
