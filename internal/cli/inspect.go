package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"productmd/internal/app"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect PATH",
		Short: "Summarize a metadata file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), cmd, args[0])
		},
	}
	return cmd
}

func runInspect(ctx context.Context, cmd *cobra.Command, path string) error {
	service := newAppService()
	result, err := service.Inspect(ctx, app.InspectRequest{Path: path})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "type: %s\n", result.Kind)
	if result.Revision.String() != "unset" {
		fmt.Fprintf(out, "version: %s\n", result.Revision)
	}
	if result.ComposeID != "" {
		fmt.Fprintf(out, "compose: %s\n", result.ComposeID)
	}
	if result.Release != "" {
		fmt.Fprintf(out, "release: %s\n", result.Release)
	}
	fmt.Fprintf(out, "entries: %d\n", result.Entries)
	if result.TotalSize > 0 {
		fmt.Fprintf(out, "size: %s\n", result.HumanSize)
	}
	fmt.Fprintln(out, "variants:")
	for _, variant := range result.Variants {
		line := "- " + variant.UID
		if variant.Type != "" {
			line += " (" + string(variant.Type) + ")"
		}
		if len(variant.Arches) > 0 {
			line += " [" + strings.Join(variant.Arches, ", ") + "]"
		}
		if variant.Count > 0 {
			line += fmt.Sprintf(": %d", variant.Count)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
