package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vellum-labs/vellum/internal/config"
	"github.com/vellum-labs/vellum/internal/core/services"
)

var (
	enqueueDocumentID string
	enqueueUserID     string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [pdf-file]",
	Short: "Queue a PDF for ingestion",
	Long: `Copies the PDF into the uploads directory, records a pending
document, and queues its ingestion job. The command returns as soon as
the job is queued; run "vellum status" to follow progress.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnqueue,
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueDocumentID, "document-id", "", "document ID (generated when omitted)")
	enqueueCmd.Flags().StringVar(&enqueueUserID, "user-id", "", "owning user ID (required)")
	_ = enqueueCmd.MarkFlagRequired("user-id")
	rootCmd.AddCommand(enqueueCmd)
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	source := args[0]
	if !strings.EqualFold(filepath.Ext(source), ".pdf") {
		return fmt.Errorf("%s is not a PDF file", source)
	}

	docID := enqueueDocumentID
	if docID == "" {
		docID = uuid.NewString()
	}

	if ingestService == nil {
		svc, cleanup, err := buildIngestService(appConfig)
		if err != nil {
			return err
		}
		defer cleanup()
		ingestService = svc
	}

	files, err := buildFileStore(appConfig)
	if err != nil {
		return err
	}

	// Stage the upload inside the managed root so the worker's cleanup
	// guard accepts the path.
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("reading %s: %w", source, err)
	}
	root, ok := files.(rooted)
	if !ok {
		return fmt.Errorf("file store does not expose an uploads root")
	}
	staged := filepath.Join(root.Root(), docID+".pdf")
	if err := os.WriteFile(staged, data, 0o600); err != nil {
		return fmt.Errorf("staging upload: %w", err)
	}

	jobID, err := ingestService.EnqueueIngestion(cmd.Context(), docID, enqueueUserID, staged, filepath.Base(source))
	if err != nil {
		return err
	}

	cmd.Printf("Queued ingestion for document %s (job %s)\n", docID, jobID)
	return nil
}

// rooted is the slice of the file store surface enqueue needs.
type rooted interface {
	Root() string
}

// buildIngestService wires the queue-facing ingest entrypoint.
func buildIngestService(cfg *config.Config) (*services.IngestService, func(), error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}

	collections, err := buildCollectionStore(cfg, embedder)
	if err != nil {
		embedder.Close()
		return nil, nil, err
	}

	docs, err := buildDocumentStore(cfg)
	if err != nil {
		embedder.Close()
		collections.Close()
		return nil, nil, err
	}

	queue := buildQueue(cfg)

	cleanup := func() {
		queue.Close()
		docs.Close()
		collections.Close()
		embedder.Close()
	}
	return services.NewIngestService(queue, docs, collections), cleanup, nil
}
