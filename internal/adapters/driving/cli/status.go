package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/vellum-labs/vellum/internal/core/domain"
)

var statusDocumentID string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a document's ingestion state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusDocumentID, "document-id", "", "document to inspect (required)")
	_ = statusCmd.MarkFlagRequired("document-id")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	docs, err := buildDocumentStore(appConfig)
	if err != nil {
		return err
	}
	defer docs.Close()

	rec, err := docs.Get(cmd.Context(), statusDocumentID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotReady) {
			cmd.Printf("No record for document %s.\n", statusDocumentID)
			return nil
		}
		return err
	}

	cmd.Printf("Document:   %s\n", rec.DocumentID)
	cmd.Printf("Owner:      %s\n", rec.UserID)
	cmd.Printf("Filename:   %s\n", rec.Filename)
	cmd.Printf("Status:     %s\n", rec.Status)
	if rec.CollectionRef != "" {
		cmd.Printf("Collection: %s\n", rec.CollectionRef)
	}
	if rec.Error != "" {
		cmd.Printf("Error:      %s\n", rec.Error)
	}
	cmd.Printf("Updated:    %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}
