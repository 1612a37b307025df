package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"productmd/internal/app"
	"productmd/internal/core"
	"productmd/internal/types"
)

func newComposeIDCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose-id ID",
		Short: "Split a compose id into its parts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComposeID(cmd.Context(), cmd, args[0])
		},
	}
	return cmd
}

func runComposeID(ctx context.Context, cmd *cobra.Command, composeID string) error {
	service := newAppService()
	result, err := service.ParseComposeID(ctx, composeID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printRelease(cmd, "", result.ID.Release)
	if result.ID.Variant != "" {
		fmt.Fprintf(out, "variant: %s\n", result.ID.Variant)
	}
	fmt.Fprintf(out, "date: %s\n", result.ID.Date)
	fmt.Fprintf(out, "compose_type: %s\n", result.ID.Type)
	fmt.Fprintf(out, "respin: %d\n", result.ID.Respin)
	return nil
}

type releaseIDOptions struct {
	Short       string
	Version     string
	Type        string
	BaseShort   string
	BaseVersion string
	BaseType    string
}

func newReleaseIDCommand() *cobra.Command {
	opts := releaseIDOptions{}
	cmd := &cobra.Command{
		Use:   "release-id [ID]",
		Short: "Split a release id, or build one from --short and --version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runParseReleaseID(cmd.Context(), cmd, args[0])
			}
			return runCreateReleaseID(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Short, "short", "", "Release short name")
	cmd.Flags().StringVar(&opts.Version, "version", "", "Release version")
	cmd.Flags().StringVar(&opts.Type, "type", "ga", "Release type")
	cmd.Flags().StringVar(&opts.BaseShort, "base-short", "", "Base product short name of a layered product")
	cmd.Flags().StringVar(&opts.BaseVersion, "base-version", "", "Base product version")
	cmd.Flags().StringVar(&opts.BaseType, "base-type", "ga", "Base product type")
	return cmd
}

func runParseReleaseID(ctx context.Context, cmd *cobra.Command, releaseID string) error {
	service := newAppService()
	parsed, err := service.ParseReleaseID(ctx, releaseID)
	if err != nil {
		return err
	}
	printRelease(cmd, "", parsed)
	return nil
}

func runCreateReleaseID(ctx context.Context, cmd *cobra.Command, opts releaseIDOptions) error {
	service := newAppService()
	releaseID, err := service.CreateReleaseID(ctx, app.ReleaseIDRequest{
		Short:       opts.Short,
		Version:     opts.Version,
		Type:        types.ReleaseType(opts.Type),
		BaseShort:   opts.BaseShort,
		BaseVersion: opts.BaseVersion,
		BaseType:    types.ReleaseType(opts.BaseType),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), releaseID)
	return nil
}

func printRelease(cmd *cobra.Command, prefix string, release core.ReleaseID) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%sshort: %s\n", prefix, release.Short)
	fmt.Fprintf(out, "%sversion: %s\n", prefix, release.Version)
	fmt.Fprintf(out, "%stype: %s\n", prefix, release.Type)
	if release.Base != nil {
		printRelease(cmd, prefix+"base_", *release.Base)
	}
}
