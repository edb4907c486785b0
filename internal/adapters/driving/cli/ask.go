package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vellum-labs/vellum/internal/adapters/driven/config/file"
	"github.com/vellum-labs/vellum/internal/config"
	"github.com/vellum-labs/vellum/internal/core/domain"
	"github.com/vellum-labs/vellum/internal/core/ports/driven"
	"github.com/vellum-labs/vellum/internal/core/services"
)

var (
	askDocumentID string
	askJSON       bool
	askSources    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about an ingested document",
	Long: `Retrieves the most relevant chunks from the document's collection,
grounds a chat model prompt on them, and prints the answer.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askDocumentID, "document-id", "", "document to query (required)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the full exchange as JSON")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "print the supporting chunks")
	_ = askCmd.MarkFlagRequired("document-id")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := args[0]

	if chatService == nil {
		svc, cleanup, err := buildChatService(appConfig)
		if err != nil {
			return err
		}
		defer cleanup()
		chatService = svc
	}

	exchange, err := chatService.Answer(cmd.Context(), query, askDocumentID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotReady) {
			cmd.Printf("Document %s is not ready yet. Run \"vellum status --document-id %s\" to check progress.\n", askDocumentID, askDocumentID)
			return nil
		}
		return err
	}

	if askJSON {
		return outputExchangeJSON(cmd, exchange)
	}

	cmd.Println(exchange.Answer)

	if askSources && len(exchange.Retrieved) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, hit := range exchange.Retrieved {
			cmd.Printf("  [%d] chunk %d (%.3f)\n", i+1, hit.Sequence, hit.Score)
			cmd.Printf("      %s\n", snippet(hit.Text, 160))
		}
	}
	return nil
}

func outputExchangeJSON(cmd *cobra.Command, exchange *domain.ChatExchange) error {
	data, err := json.MarshalIndent(exchange, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal exchange: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// snippet shortens text for terminal display.
func snippet(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

// buildChatService wires the query path.
func buildChatService(cfg *config.Config) (*services.ChatService, func(), error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}

	llm, err := buildLLM(cfg)
	if err != nil {
		embedder.Close()
		return nil, nil, err
	}

	collections, err := buildCollectionStore(cfg, embedder)
	if err != nil {
		embedder.Close()
		llm.Close()
		return nil, nil, err
	}

	svc := services.NewChatService(collections, embedder, llm, cfg.Retrieval.TopK)

	// Prompt customisation is optional; a failure to set it up should
	// not stop the query path.
	if prompts, promptErr := file.NewPromptStore(""); promptErr == nil {
		var aware driven.PromptStoreAware = svc
		aware.SetPromptStore(prompts)
	}

	cleanup := func() {
		collections.Close()
		llm.Close()
		embedder.Close()
	}
	return svc, cleanup, nil
}
