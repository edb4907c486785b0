package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vellum-labs/vellum/internal/chunker"
	"github.com/vellum-labs/vellum/internal/core/services"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the ingestion worker pool",
	Long: `Consumes ingestion jobs from the queue and runs each through the
pipeline: extract, chunk, embed, index. Runs until interrupted;
in-flight jobs left unsettled at shutdown are redelivered after the
visibility timeout.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg := appConfig

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()

	collections, err := buildCollectionStore(cfg, embedder)
	if err != nil {
		return err
	}
	defer collections.Close()

	docs, err := buildDocumentStore(cfg)
	if err != nil {
		return err
	}
	defer docs.Close()

	files, err := buildFileStore(cfg)
	if err != nil {
		return err
	}

	queue := buildQueue(cfg)
	defer queue.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := queue.Ping(ctx); err != nil {
		return fmt.Errorf("queue unreachable: %w", err)
	}

	splitter, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return err
	}

	worker := services.NewWorker(
		services.WorkerConfig{
			Concurrency:    cfg.Queue.Concurrency,
			MaxAttempts:    cfg.Queue.MaxAttempts,
			EmbedBatchSize: cfg.Embedding.BatchSize,
		},
		queue,
		newExtractor(),
		splitter,
		embedder,
		collections,
		docs,
		files,
	)

	return worker.Run(ctx)
}
