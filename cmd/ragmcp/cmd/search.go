package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mr-nozko/rag-mcp/internal/cliui"
	"github.com/mr-nozko/rag-mcp/internal/search"
)

func newSearchCmd() *cobra.Command {
	var namespace, agentFilter string
	var k int
	var minScore float64

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid search query against the index",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("search requires exactly one query argument")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], namespace, agentFilter, k, minScore)
		},
	}
	cmd.Flags().StringVar(&namespace, "namespace", "", "restrict results to a namespace")
	cmd.Flags().StringVar(&agentFilter, "agent_filter", "", "restrict results to an agent name")
	cmd.Flags().IntVar(&k, "k", 0, "number of results to return (0 uses the configured default)")
	cmd.Flags().Float64Var(&minScore, "min_score", 0, "drop results scoring below this threshold")
	return cmd
}

func runSearch(cmd *cobra.Command, query, namespace, agent string, k int, minScore float64) error {
	ctx := cmd.Context()

	b, err := openBootstrap(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer b.Close()

	engine := newSearchEngine(b)
	results, err := engine.Search(ctx, search.Query{
		Text:      query,
		K:         k,
		Namespace: namespace,
		Agent:     agent,
		MinScore:  minScore,
	})
	if err != nil {
		return err
	}

	cliui.PrintResults(cmd.OutOrStdout(), query, results)
	return nil
}
