package rag

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lectern/internal/assistant"
	"lectern/internal/ingest"
	"lectern/internal/session"
	"lectern/internal/vectorstore"
)

// wordEmbedder gives deterministic embeddings so ingestion and search work
// without a real model.
type wordEmbedder struct{}

func (wordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return wordVector(text), nil
}

func (wordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = wordVector(t)
	}
	return vecs, nil
}

func wordVector(text string) []float32 {
	vec := make([]float32, 64)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(word, ".,:;!?")))
		vec[h.Sum32()%64]++
	}
	return vec
}

// scriptedProvider replays canned assistant replies.
type scriptedProvider struct {
	replies []*assistant.Message
	calls   int
	systems []string
}

func (p *scriptedProvider) Chat(_ context.Context, system string, _ []assistant.Message, _ []assistant.ToolDefinition) (*assistant.Message, error) {
	p.systems = append(p.systems, system)
	reply := p.replies[p.calls%len(p.replies)]
	p.calls++
	return reply, nil
}

const testCourseDoc = `Course Title: Streams and Buffers
Course Link: https://example.com/streams
Course Instructor: Kay Patel

Lesson 1: Backpressure
Lesson Link: https://example.com/streams/1
Backpressure keeps fast producers from drowning slow consumers.
`

func newTestSystem(t *testing.T, provider assistant.LLMProvider) *System {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store, err := vectorstore.New(filepath.Join(t.TempDir(), "rag.db"), wordEmbedder{}, 5, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return New(
		store,
		ingest.NewProcessor(800, 100),
		session.NewManager(2),
		assistant.NewGenerator(provider, 2, logger),
		logger,
	)
}

func writeCourseDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestQueryReturnsToolSourcesOnce(t *testing.T) {
	provider := &scriptedProvider{replies: []*assistant.Message{
		{
			Role: assistant.RoleAssistant,
			ToolCalls: []assistant.ToolCall{{
				ID:        "c1",
				Name:      "search_course_content",
				Arguments: `{"query":"backpressure producers consumers"}`,
			}},
			StopReason: assistant.StopReasonToolUse,
		},
		{
			Role:       assistant.RoleAssistant,
			Content:    "Backpressure throttles producers.",
			StopReason: assistant.StopReasonEndTurn,
		},
	}}
	sys := newTestSystem(t, provider)
	ctx := context.Background()

	dir := t.TempDir()
	path := writeCourseDoc(t, dir, "streams.txt", testCourseDoc)
	course, n, err := sys.AddCourseDocument(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "Streams and Buffers", course.Title)
	assert.Equal(t, 1, n)

	answer, sources := sys.Query(ctx, "what is backpressure?", "")
	assert.Equal(t, "Backpressure throttles producers.", answer)
	require.Len(t, sources, 1)
	assert.Equal(t, "Streams and Buffers - Lesson 1", sources[0].Text)
	assert.Equal(t, "https://example.com/streams/1", sources[0].URL)

	// Citations belong to one query only: the next answer without tool use
	// carries none.
	provider.replies = []*assistant.Message{{
		Role:       assistant.RoleAssistant,
		Content:    "No search needed.",
		StopReason: assistant.StopReasonEndTurn,
	}}
	provider.calls = 0
	_, sources = sys.Query(ctx, "thanks", "")
	assert.Empty(t, sources)
}

func TestQueryRecordsSessionHistory(t *testing.T) {
	provider := &scriptedProvider{replies: []*assistant.Message{{
		Role:       assistant.RoleAssistant,
		Content:    "First answer.",
		StopReason: assistant.StopReasonEndTurn,
	}}}
	sys := newTestSystem(t, provider)
	ctx := context.Background()

	id := sys.CreateSession()
	require.NotEmpty(t, id)

	sys.Query(ctx, "first question", id)
	sys.Query(ctx, "second question", id)

	require.Equal(t, 2, provider.calls)
	assert.NotContains(t, provider.systems[0], "Previous conversation")
	assert.Contains(t, provider.systems[1], "User: first question\nAssistant: First answer.")

	sys.ClearSession(id)
	sys.Query(ctx, "third question", id)
	assert.NotContains(t, provider.systems[2], "Previous conversation")
}

func TestQueryWithoutSessionKeepsNoHistory(t *testing.T) {
	provider := &scriptedProvider{replies: []*assistant.Message{{
		Role:       assistant.RoleAssistant,
		Content:    "Answer.",
		StopReason: assistant.StopReasonEndTurn,
	}}}
	sys := newTestSystem(t, provider)

	sys.Query(context.Background(), "one", "")
	sys.Query(context.Background(), "two", "")
	assert.NotContains(t, provider.systems[1], "Previous conversation")
}

func TestAddCourseFolder(t *testing.T) {
	provider := &scriptedProvider{replies: []*assistant.Message{{
		Role: assistant.RoleAssistant, Content: "x", StopReason: assistant.StopReasonEndTurn,
	}}}
	sys := newTestSystem(t, provider)
	ctx := context.Background()

	dir := t.TempDir()
	writeCourseDoc(t, dir, "streams.txt", testCourseDoc)
	writeCourseDoc(t, dir, "notes.md", "Course Title: Side Notes\n\nShort body text.")
	writeCourseDoc(t, dir, "ignored.pdf", "binary-ish")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	courses, chunks, err := sys.AddCourseFolder(ctx, dir, false)
	require.NoError(t, err)
	assert.Equal(t, 2, courses)
	assert.Equal(t, 2, chunks)

	// Re-ingesting skips titles already stored.
	courses, chunks, err = sys.AddCourseFolder(ctx, dir, false)
	require.NoError(t, err)
	assert.Zero(t, courses)
	assert.Zero(t, chunks)

	analytics, err := sys.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, analytics.TotalCourses)
	assert.ElementsMatch(t, []string{"Streams and Buffers", "Side Notes"}, analytics.CourseTitles)

	// clearExisting wipes the corpus before ingesting anew.
	courses, _, err = sys.AddCourseFolder(ctx, dir, true)
	require.NoError(t, err)
	assert.Equal(t, 2, courses)
}

func TestAddCourseFolderMissingDir(t *testing.T) {
	provider := &scriptedProvider{replies: []*assistant.Message{{
		Role: assistant.RoleAssistant, Content: "x", StopReason: assistant.StopReasonEndTurn,
	}}}
	sys := newTestSystem(t, provider)

	_, _, err := sys.AddCourseFolder(context.Background(), filepath.Join(t.TempDir(), "absent"), false)
	assert.Error(t, err)
}
