package cli

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"

	"productmd/internal/app"
)

func newVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify COMPOSE",
		Short: "Check compose artifacts against their recorded size and checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), cmd, args[0])
		},
	}
	return cmd
}

func runVerify(ctx context.Context, cmd *cobra.Command, composePath string) error {
	service := newAppService()
	result, err := service.Verify(ctx, app.VerifyRequest{ComposePath: composePath})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, failure := range result.Failures {
		fmt.Fprintf(out, "FAIL %s: %s (%s)\n", failure.Artifact, failure.Reason, failure.Path)
	}
	fmt.Fprintf(out, "%s: %d checked, %d failed\n", result.ComposeID, result.Checked, len(result.Failures))
	if len(result.Failures) > 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("%d artifacts failed verification", len(result.Failures)))
	}
	return nil
}
