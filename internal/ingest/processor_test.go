package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `Course Title: Building Search Systems
Course Link: https://example.com/search
Course Instructor: Dana Ruiz

Lesson 0: Introduction
Lesson Link: https://example.com/search/0
Welcome to the course. This lesson covers the basics.

Lesson 1: Tokenization
Text is split into tokens. Tokens feed the index.
`

func TestProcessParsesHeaderAndLessons(t *testing.T) {
	p := NewProcessor(800, 100)

	course, chunks, err := p.Process("fallback", sampleDocument)
	require.NoError(t, err)

	assert.Equal(t, "Building Search Systems", course.Title)
	assert.Equal(t, "https://example.com/search", course.Link)
	assert.Equal(t, "Dana Ruiz", course.Instructor)

	require.Len(t, course.Lessons, 2)
	assert.Equal(t, 0, course.Lessons[0].Number)
	assert.Equal(t, "Introduction", course.Lessons[0].Title)
	assert.Equal(t, "https://example.com/search/0", course.Lessons[0].Link)
	assert.Equal(t, 1, course.Lessons[1].Number)
	assert.Equal(t, "Tokenization", course.Lessons[1].Title)
	assert.Empty(t, course.Lessons[1].Link)

	require.Len(t, chunks, 2)
	assert.Equal(t,
		"Course Building Search Systems Lesson 0 content: Welcome to the course. This lesson covers the basics.",
		chunks[0].Content)
	require.NotNil(t, chunks[0].LessonNumber)
	assert.Equal(t, 0, *chunks[0].LessonNumber)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
	assert.Equal(t, "Building Search Systems", chunks[1].CourseTitle)
}

func TestProcessFallbackTitle(t *testing.T) {
	p := NewProcessor(800, 100)

	course, chunks, err := p.Process("my_course", "Just some body text without any headers.")
	require.NoError(t, err)

	assert.Equal(t, "my_course", course.Title)
	assert.Empty(t, course.Lessons)
	require.Len(t, chunks, 1)
	assert.Nil(t, chunks[0].LessonNumber, "content before any lesson marker has no lesson number")
	assert.Equal(t, "Just some body text without any headers.", chunks[0].Content)
}

func TestProcessEmptyDocument(t *testing.T) {
	p := NewProcessor(800, 100)

	_, _, err := p.Process("", "")
	assert.Error(t, err, "no header title and no fallback means no course")

	course, chunks, err := p.Process("untitled", "")
	require.NoError(t, err)
	assert.Equal(t, "untitled", course.Title)
	assert.Empty(t, chunks)
}

func TestProcessLessonLinkOnlyBeforeContent(t *testing.T) {
	p := NewProcessor(800, 100)

	doc := "Course Title: T\n\nLesson 1: A\nSome content first.\nLesson Link: https://example.com/late\n"
	course, chunks, err := p.Process("", doc)
	require.NoError(t, err)

	require.Len(t, course.Lessons, 1)
	assert.Empty(t, course.Lessons[0].Link, "a link line after content is treated as content")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "Lesson Link: https://example.com/late")
}

func TestChunkTextRespectsSizeAndOverlap(t *testing.T) {
	p := NewProcessor(60, 25)

	text := "Alpha sentence one. Beta sentence two. Gamma sentence three. Delta sentence four."
	chunks := p.chunkText(text)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 60)
	}
	// The last sentence of the first chunk carries into the second.
	assert.True(t, strings.HasSuffix(chunks[0], "Gamma sentence three."), chunks[0])
	assert.Contains(t, chunks[1], "Gamma sentence three.")
	// All sentences appear somewhere.
	joined := strings.Join(chunks, " ")
	for _, s := range []string{"Alpha", "Beta", "Gamma", "Delta"} {
		assert.Contains(t, joined, s)
	}
}

func TestChunkTextOversizedSentence(t *testing.T) {
	p := NewProcessor(20, 5)

	long := "This single sentence is far longer than the chunk size limit."
	chunks := p.chunkText(long)

	require.Len(t, chunks, 1, "a sentence never splits mid-way")
	assert.Equal(t, long, chunks[0])
}

func TestChunkTextCollapsesWhitespace(t *testing.T) {
	p := NewProcessor(800, 100)

	chunks := p.chunkText("First  line.\nSecond\tline here.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "First line. Second line here.", chunks[0])
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{`He said "stop." Then left.`, []string{`He said "stop."`, "Then left."}},
		{"No terminal punctuation here", []string{"No terminal punctuation here"}},
		{"", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, splitSentences(tt.text), tt.text)
	}
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intro_course.txt")
	require.NoError(t, os.WriteFile(path, []byte("Hello from a headerless file."), 0o644))

	p := NewProcessor(800, 100)
	course, chunks, err := p.ProcessFile(path)
	require.NoError(t, err)

	assert.Equal(t, "intro_course", course.Title, "the filename stands in for a missing title header")
	require.Len(t, chunks, 1)

	_, _, err = p.ProcessFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
