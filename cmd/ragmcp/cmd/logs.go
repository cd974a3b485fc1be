package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mr-nozko/rag-mcp/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var follow bool
	var lines int
	var level string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show or follow the ragmcp log file (~/.ragmcp/logs/server.log)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd, follow, lines, level)
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream new log entries as they are written")
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "number of recent entries to show")
	cmd.Flags().StringVar(&level, "level", "", "only show entries at or above this level")
	return cmd
}

func runLogs(cmd *cobra.Command, follow bool, lines int, level string) error {
	path, err := logging.FindLogFile("")
	if err != nil {
		return err
	}

	viewer := logging.NewViewer(logging.ViewerConfig{Level: level, NoColor: false}, cmd.OutOrStdout())

	entries, err := viewer.Tail(path, lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !follow {
		return nil
	}

	ctx := cmd.Context()
	ch := make(chan logging.LogEntry)
	go func() {
		for entry := range ch {
			viewer.Print([]logging.LogEntry{entry})
		}
	}()
	return viewer.Follow(ctx, path, ch)
}
