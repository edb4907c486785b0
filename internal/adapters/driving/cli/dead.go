package cli

import (
	"github.com/spf13/cobra"
)

var deadLimit int64

var deadCmd = &cobra.Command{
	Use:   "dead",
	Short: "List dead-lettered ingestion jobs",
	Long: `Prints jobs that exhausted their retries or hit a permanent
failure, newest first. Each entry carries the original job payload and
the failure reason.`,
	Args: cobra.NoArgs,
	RunE: runDead,
}

func init() {
	deadCmd.Flags().Int64VarP(&deadLimit, "limit", "n", 20, "maximum number of entries")
	rootCmd.AddCommand(deadCmd)
}

func runDead(cmd *cobra.Command, _ []string) error {
	queue := buildQueue(appConfig)
	defer queue.Close()

	entries, err := queue.DeadLetters(cmd.Context(), deadLimit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		cmd.Println("No dead-lettered jobs.")
		return nil
	}

	for _, entry := range entries {
		cmd.Println(entry)
	}
	return nil
}
