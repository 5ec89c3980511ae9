// Package ingest parses course documents into course metadata and embedded
// searchable chunks.
//
// The expected document format is a short header followed by lesson sections:
//
//	Course Title: Advanced Retrieval
//	Course Link: https://example.com/course
//	Course Instructor: Dr. Smith
//
//	Lesson 0: Introduction
//	Lesson Link: https://example.com/lesson0
//	<lesson content...>
//
//	Lesson 1: Embeddings
//	<lesson content...>
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"lectern/internal/models"
)

var lessonHeaderRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// Processor turns course documents into a Course plus its content chunks.
type Processor struct {
	chunkSize    int
	chunkOverlap int
}

// NewProcessor creates a processor with the given chunking parameters.
// chunkSize is the maximum chunk length in characters; chunkOverlap is how
// many trailing characters carry over into the next chunk.
func NewProcessor(chunkSize, chunkOverlap int) *Processor {
	return &Processor{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// ProcessFile reads and parses one course document.
func (p *Processor) ProcessFile(path string) (*models.Course, []models.CourseChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read course document: %w", err)
	}
	fallbackTitle := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p.Process(fallbackTitle, string(data))
}

// Process parses document text. fallbackTitle names the course when the
// document has no "Course Title:" header.
func (p *Processor) Process(fallbackTitle, text string) (*models.Course, []models.CourseChunk, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	course := &models.Course{Title: fallbackTitle}

	// Header: course metadata lines in any order, ending at the first lesson
	// marker (or the first line that is neither metadata nor blank).
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case line == "":
		case strings.HasPrefix(line, "Course Title:"):
			course.Title = strings.TrimSpace(strings.TrimPrefix(line, "Course Title:"))
		case strings.HasPrefix(line, "Course Link:"):
			course.Link = strings.TrimSpace(strings.TrimPrefix(line, "Course Link:"))
		case strings.HasPrefix(line, "Course Instructor:"):
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, "Course Instructor:"))
		default:
			goto body
		}
	}
body:
	if course.Title == "" {
		return nil, nil, fmt.Errorf("course document has no title")
	}

	var chunks []models.CourseChunk
	chunkIndex := 0

	var currentLesson *models.Lesson
	var content []string

	flush := func() {
		sectionText := strings.TrimSpace(strings.Join(content, "\n"))
		content = nil
		if currentLesson != nil {
			course.Lessons = append(course.Lessons, *currentLesson)
		}
		if sectionText == "" {
			return
		}
		var lessonNumber *int
		prefix := ""
		if currentLesson != nil {
			n := currentLesson.Number
			lessonNumber = &n
			prefix = fmt.Sprintf("Course %s Lesson %d content: ", course.Title, n)
		}
		for j, piece := range p.chunkText(sectionText) {
			chunkContent := piece
			if j == 0 && prefix != "" {
				chunkContent = prefix + piece
			}
			chunks = append(chunks, models.CourseChunk{
				Content:      chunkContent,
				CourseTitle:  course.Title,
				LessonNumber: lessonNumber,
				ChunkIndex:   chunkIndex,
			})
			chunkIndex++
		}
	}

	for ; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if m := lessonHeaderRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			number, _ := strconv.Atoi(m[1])
			currentLesson = &models.Lesson{Number: number, Title: strings.TrimSpace(m[2])}
			continue
		}
		if currentLesson != nil && len(content) == 0 && strings.HasPrefix(trimmed, "Lesson Link:") {
			currentLesson.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Lesson Link:"))
			continue
		}
		if trimmed == "" && len(content) == 0 {
			continue
		}
		content = append(content, line)
	}
	flush()

	return course, chunks, nil
}

// chunkText splits text into sentence-aligned chunks of at most chunkSize
// characters, with roughly chunkOverlap characters repeated between
// consecutive chunks. A single sentence longer than chunkSize becomes its own
// chunk rather than being split mid-sentence.
func (p *Processor) chunkText(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(sentences) {
		size := 0
		end := start
		for end < len(sentences) {
			sentenceLen := len(sentences[end])
			if size > 0 {
				sentenceLen++ // joining space
			}
			if size+sentenceLen > p.chunkSize && size > 0 {
				break
			}
			size += sentenceLen
			end++
		}
		chunks = append(chunks, strings.Join(sentences[start:end], " "))

		if end == len(sentences) {
			break
		}

		// Step back far enough to carry ~chunkOverlap characters forward,
		// always advancing by at least one sentence.
		next := end
		overlap := 0
		for next > start+1 && overlap+len(sentences[next-1]) <= p.chunkOverlap {
			next--
			overlap += len(sentences[next]) + 1
		}
		start = next
	}
	return chunks
}

// splitSentences breaks text on terminal punctuation followed by whitespace.
// Whitespace runs (including newlines) inside a sentence collapse to single
// spaces.
func splitSentences(text string) []string {
	fields := strings.Fields(text)
	var sentences []string
	var current []string
	for _, word := range fields {
		current = append(current, word)
		if endsSentence(word) {
			sentences = append(sentences, strings.Join(current, " "))
			current = nil
		}
	}
	if len(current) > 0 {
		sentences = append(sentences, strings.Join(current, " "))
	}
	return sentences
}

func endsSentence(word string) bool {
	trimmed := strings.TrimRight(word, `"')]`)
	return strings.HasSuffix(trimmed, ".") ||
		strings.HasSuffix(trimmed, "!") ||
		strings.HasSuffix(trimmed, "?")
}
