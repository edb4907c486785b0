package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vellum-labs/vellum/internal/core/domain"
	"github.com/vellum-labs/vellum/internal/core/ports/driven"
	"github.com/vellum-labs/vellum/internal/core/ports/driving"
	"github.com/vellum-labs/vellum/internal/logger"
)

// Ensure ChatService implements the interfaces.
var (
	_ driving.Answerer        = (*ChatService)(nil)
	_ driven.PromptStoreAware = (*ChatService)(nil)
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 4

// emptyContextPlaceholder stands in for the retrieved context when the
// search returns nothing usable; the prompt tells the model to say so.
const emptyContextPlaceholder = "No relevant information found in the PDF context."

// defaultGroundingTemplate is the built-in grounding prompt, used when
// no prompt store is injected. The first placeholder receives the
// retrieved context, the second the user question.
const defaultGroundingTemplate = `You are a helpful AI Assistant. Your primary goal is to answer questions based on the provided "Context from PDF File".

If the user's question can be directly and comprehensively answered using ONLY the provided "Context from PDF File", then provide that answer. Do not add information that is not in the context.

If the user's question CANNOT be directly and comprehensively answered from the "Context from PDF File", then:
1. First, state what you *can* find in the PDF related to the query (if anything relevant but insufficient).
2. Then, proceed to answer the question using your general knowledge.
3. **Important:** When you use your general knowledge, clearly indicate this by starting that part of your answer with "However, based on my general knowledge: " or "Outside the PDF context, I know that: ".

Do not invent information. If the context is empty or irrelevant, you should rely entirely on your general knowledge and state that the answer is from general knowledge.

---
Context from PDF File:
%s
---
User Question: %s`

// ChatService answers queries grounded on a single document's chunks.
type ChatService struct {
	collections driven.CollectionStore
	embedder    driven.EmbeddingService
	llm         driven.LLMService
	prompts     driven.PromptStore
	topK        int
}

// NewChatService creates a new chat service. topK <= 0 selects the
// default retrieval depth.
func NewChatService(
	collections driven.CollectionStore,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	topK int,
) *ChatService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ChatService{
		collections: collections,
		embedder:    embedder,
		llm:         llm,
		topK:        topK,
	}
}

// SetPromptStore sets the prompt store for loading a customised
// grounding template. Without one the built-in template is used.
func (s *ChatService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Answer retrieves the most relevant chunks for the query, grounds a
// chat prompt on them, and returns the model's answer with the
// supporting chunks.
func (s *ChatService) Answer(ctx context.Context, query, documentID string) (*domain.ChatExchange, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}
	if documentID == "" {
		return nil, errors.New("missing document ID")
	}

	// The existence check runs before any provider call so "not ready"
	// answers cost nothing.
	exists, err := s.collections.Exists(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("checking document: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotReady, documentID)
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.collections.Search(ctx, documentID, vector, s.topK)
	if err != nil {
		// The collection can vanish between the existence check and the
		// search; that still reads as "not ready", not a server fault.
		if errors.Is(err, domain.ErrCollectionNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotReady, documentID)
		}
		return nil, fmt.Errorf("searching document: %w", err)
	}

	logger.Debug("chunks retrieved",
		zap.String("document_id", documentID),
		zap.Int("count", len(hits)),
	)

	prompt := fmt.Sprintf(s.groundingTemplate(), contextBlock(hits), query)

	answer, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: prompt},
		{Role: "user", Content: query},
	}, driven.ChatOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrChatModel, err)
	}

	return &domain.ChatExchange{
		Query:      query,
		DocumentID: documentID,
		Retrieved:  hits,
		Answer:     answer,
	}, nil
}

// groundingTemplate returns the active grounding template, preferring a
// prompt store override.
func (s *ChatService) groundingTemplate() string {
	if s.prompts != nil {
		if tmpl, err := s.prompts.Load(driven.PromptGrounding); err == nil && strings.Count(tmpl, "%s") == 2 {
			return tmpl
		}
		logger.Warn("custom grounding prompt unusable, using built-in default")
	}
	return defaultGroundingTemplate
}

// contextBlock concatenates retrieved chunk texts for the prompt,
// falling back to an explicit placeholder when nothing useful came back.
func contextBlock(hits []domain.ScoredChunk) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		if t := strings.TrimSpace(h.Text); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return emptyContextPlaceholder
	}
	return strings.Join(parts, "\n\n")
}
