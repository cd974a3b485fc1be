package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mr-nozko/rag-mcp/internal/eval"
)

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval",
		Short: "Run the offline evaluation harness against the live index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd)
		},
	}
}

func runEval(cmd *cobra.Command) error {
	ctx := cmd.Context()

	suite, err := eval.LoadSuite()
	if err != nil {
		return fmt.Errorf("load evaluation suite: %w", err)
	}

	b, err := openBootstrap(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer b.Close()

	runner := eval.NewRunner(newSearchEngine(b))
	report := runner.RunAll(ctx, suite)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tier1:    %d/%d\n", report.Tier1Pass, report.Tier1Total)
	fmt.Fprintf(out, "tier2:    %d/%d\n", report.Tier2Pass, report.Tier2Total)
	fmt.Fprintf(out, "negative: %d/%d\n", report.NegPass, report.NegTotal)

	for _, r := range append(append(append([]eval.QueryResult{}, report.Tier1...), report.Tier2...), report.Negative...) {
		if !r.Passed {
			fmt.Fprintf(out, "  FAIL %s: %q (error: %s)\n", r.Spec.ID, r.Spec.Query, r.Error)
		}
	}
	return nil
}
