package cli

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellum-labs/vellum/internal/core/domain"
)

// answererStub satisfies driving.Answerer with a canned exchange.
type answererStub struct {
	exchange *domain.ChatExchange
	err      error

	gotQuery      string
	gotDocumentID string
}

func (a *answererStub) Answer(_ context.Context, query, documentID string) (*domain.ChatExchange, error) {
	a.gotQuery = query
	a.gotDocumentID = documentID
	if a.err != nil {
		return nil, a.err
	}
	return a.exchange, nil
}

// runAskCommand executes the ask command against a stubbed answerer and
// returns the captured output.
func runAskCommand(t *testing.T, stub *answererStub, args ...string) (string, error) {
	t.Helper()

	originalService := chatService
	chatService = stub
	defer func() { chatService = originalService }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs(append([]string{"ask"}, args...))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestAskCmd_PrintsAnswer(t *testing.T) {
	stub := &answererStub{
		exchange: &domain.ChatExchange{
			Query:      "what changed?",
			DocumentID: "doc-1",
			Answer:     "Revenue grew 12%.",
			Retrieved: []domain.ScoredChunk{
				{Chunk: domain.Chunk{DocumentID: "doc-1", Text: "Revenue grew 12% in Q3.", Sequence: 2}, Score: 0.91},
			},
		},
	}

	out, err := runAskCommand(t, stub, "what changed?", "--document-id", "doc-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Revenue grew 12%.")
	assert.Equal(t, "what changed?", stub.gotQuery)
	assert.Equal(t, "doc-1", stub.gotDocumentID)
}

func TestAskCmd_SourcesFlag(t *testing.T) {
	stub := &answererStub{
		exchange: &domain.ChatExchange{
			Answer: "An answer.",
			Retrieved: []domain.ScoredChunk{
				{Chunk: domain.Chunk{Text: "supporting text", Sequence: 4}, Score: 0.88},
			},
		},
	}

	out, err := runAskCommand(t, stub, "q", "--document-id", "doc-1", "--sources")
	require.NoError(t, err)

	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "chunk 4")
	assert.Contains(t, out, "supporting text")
}

func TestAskCmd_DocumentNotReadyIsFriendly(t *testing.T) {
	stub := &answererStub{
		err: fmt.Errorf("%w: doc-1", domain.ErrDocumentNotReady),
	}

	out, err := runAskCommand(t, stub, "q", "--document-id", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "not ready yet")
}

func TestAskCmd_OtherErrorsPropagate(t *testing.T) {
	stub := &answererStub{
		err: fmt.Errorf("%w: model overloaded", domain.ErrChatModel),
	}

	_, err := runAskCommand(t, stub, "q", "--document-id", "doc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrChatModel)
}

func TestAskCmd_JSONOutput(t *testing.T) {
	stub := &answererStub{
		exchange: &domain.ChatExchange{
			Query:      "q",
			DocumentID: "doc-1",
			Answer:     "the answer",
		},
	}

	out, err := runAskCommand(t, stub, "q", "--document-id", "doc-1", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"answer": "the answer"`)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 10))
	assert.Equal(t, "0123456789...", snippet("0123456789abcdef", 10))
}
