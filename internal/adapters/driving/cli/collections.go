package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Administer per-document vector collections",
}

var collectionsDeleteUserID string

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document's collection and metadata",
	Long: `Removes the document's vector collection and its metadata record.
The document stops being queryable immediately; re-ingesting the PDF
rebuilds it from scratch.`,
	Args: cobra.ExactArgs(1),
	RunE: runCollectionsDelete,
}

func init() {
	collectionsDeleteCmd.Flags().StringVar(&collectionsDeleteUserID, "user-id", "", "owning user ID (required)")
	_ = collectionsDeleteCmd.MarkFlagRequired("user-id")
	collectionsCmd.AddCommand(collectionsDeleteCmd)
	rootCmd.AddCommand(collectionsCmd)
}

func runCollectionsDelete(cmd *cobra.Command, args []string) error {
	documentID := args[0]

	embedder, err := buildEmbedder(appConfig)
	if err != nil {
		return err
	}
	defer embedder.Close()

	collections, err := buildCollectionStore(appConfig, embedder)
	if err != nil {
		return err
	}
	defer collections.Close()

	docs, err := buildDocumentStore(appConfig)
	if err != nil {
		return err
	}
	defer docs.Close()

	if err := collections.Delete(cmd.Context(), documentID); err != nil {
		return err
	}

	// Metadata cleanup is keyed by owner like every other write.
	if deleter, ok := docs.(recordDeleter); ok {
		if err := deleter.Delete(cmd.Context(), documentID, collectionsDeleteUserID); err != nil {
			return err
		}
	}

	cmd.Printf("Deleted collection for document %s\n", documentID)
	return nil
}

// recordDeleter is the optional metadata removal surface.
type recordDeleter interface {
	Delete(ctx context.Context, documentID, userID string) error
}
