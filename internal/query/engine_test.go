package query

import (
	"context"
	"testing"

	"github.com/FreddyJ01/CodeSleuth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1, 2, 3}}, nil
}

type fakeSearcher struct {
	hits []models.Hit
}

func (f fakeSearcher) Search(ctx context.Context, vector []float32, limit int, filter map[string]string) ([]models.Hit, error) {
	return f.hits, nil
}

type fakeChat struct {
	reply string
	err   error
}

func (f fakeChat) Chat(ctx context.Context, system, user string) (string, error) {
	return f.reply, f.err
}

func twoHits() []models.Hit {
	return []models.Hit{
		{ID: "1", Score: 0.7, Payload: map[string]any{
			"file_path": "b.cs", "start_line": int64(1), "end_line": int64(5), "content": "class B{}",
		}},
		{ID: "2", Score: 0.9, Payload: map[string]any{
			"file_path": "a.cs", "start_line": int64(1), "end_line": int64(5), "content": "class A{}",
		}},
	}
}

func TestAsk_OrdersReferencesDescendingByScore(t *testing.T) {
	eng := New(fakeEmbedder{}, fakeSearcher{hits: twoHits()}, fakeChat{reply: "OK"})
	result, err := eng.Ask(context.Background(), "what does A do?", "repo", 5)
	require.NoError(t, err)
	assert.Equal(t, "OK", result.Answer)
	require.Len(t, result.References, 2)
	assert.Equal(t, 0.9, result.References[0].Score)
	assert.Equal(t, 0.7, result.References[1].Score)
}

func TestAsk_EmptyHitsReturnsNoContextAnswer(t *testing.T) {
	eng := New(fakeEmbedder{}, fakeSearcher{hits: nil}, fakeChat{reply: "unused"})
	result, err := eng.Ask(context.Background(), "anything?", "repo", 5)
	require.NoError(t, err)
	assert.Empty(t, result.References)
	assert.NotEmpty(t, result.Answer)
}

func TestAsk_HitsMissingPayloadKeysAreDropped(t *testing.T) {
	hits := []models.Hit{
		{ID: "1", Score: 0.9, Payload: map[string]any{"file_path": "a.cs"}}, // missing keys
		{ID: "2", Score: 0.5, Payload: map[string]any{
			"file_path": "b.cs", "start_line": int64(1), "end_line": int64(2), "content": "x",
		}},
	}
	eng := New(fakeEmbedder{}, fakeSearcher{hits: hits}, fakeChat{reply: "OK"})
	result, err := eng.Ask(context.Background(), "q", "repo", 5)
	require.NoError(t, err)
	require.Len(t, result.References, 1)
	assert.Equal(t, "b.cs", result.References[0].FilePath)
}

func TestAsk_ChatFailureReturnsBestEffortResult(t *testing.T) {
	eng := New(fakeEmbedder{}, fakeSearcher{hits: twoHits()}, fakeChat{err: assert.AnError})
	result, err := eng.Ask(context.Background(), "q", "repo", 5)
	require.NoError(t, err)
	assert.Empty(t, result.References)
	assert.NotEmpty(t, result.Answer)
}

func TestAsk_BlankQuestionIsInvalidArgument(t *testing.T) {
	eng := New(fakeEmbedder{}, fakeSearcher{}, fakeChat{})
	_, err := eng.Ask(context.Background(), "   ", "repo", 5)
	require.Error(t, err)
}

func TestAsk_BlankRepoNameIsInvalidArgument(t *testing.T) {
	eng := New(fakeEmbedder{}, fakeSearcher{}, fakeChat{})
	_, err := eng.Ask(context.Background(), "q", "", 5)
	require.Error(t, err)
}

func TestAsk_NonPositiveMaxResultsIsInvalidArgument(t *testing.T) {
	eng := New(fakeEmbedder{}, fakeSearcher{}, fakeChat{})
	_, err := eng.Ask(context.Background(), "q", "repo", 0)
	require.Error(t, err)
}

func TestIsManagedChatEndpoint(t *testing.T) {
	assert.True(t, isManagedChatEndpoint("https://my-resource.openai.azure.com/chat"))
	assert.False(t, isManagedChatEndpoint("https://api.openai.com/v1/chat/completions"))
}
