package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"lectern/internal/models"
	"lectern/internal/vectorstore"
)

// CourseStore is the slice of the vector store the tools depend on.
type CourseStore interface {
	Search(ctx context.Context, query, courseName string, lessonNumber, limit *int) vectorstore.SearchResults
	ResolveCourseName(ctx context.Context, name string) string
	CourseMetadata(ctx context.Context, title string) (*vectorstore.CourseMeta, error)
	CourseLink(ctx context.Context, title string) string
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) string
}

// --- Content search tool ---

// CourseSearchTool searches course content with fuzzy course name matching
// and optional lesson filtering, recording one citation per returned chunk.
type CourseSearchTool struct {
	store       CourseStore
	lastSources []models.Source
}

// NewCourseSearchTool creates the content search tool.
func NewCourseSearchTool(store CourseStore) *CourseSearchTool {
	return &CourseSearchTool{store: store}
}

type courseSearchArgs struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name"`
	LessonNumber *int   `json:"lesson_number"`
}

func (t *CourseSearchTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "What to search for in the course content"},
				"course_name": {"type": "string", "description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')"},
				"lesson_number": {"type": "integer", "description": "Specific lesson number to search within (e.g. 1, 2, 3)"}
			},
			"required": ["query"]
		}`),
	}
}

func (t *CourseSearchTool) Execute(ctx context.Context, args string) (string, error) {
	var a courseSearchArgs
	if err := parseArgs(args, &a); err != nil {
		return "", fmt.Errorf("invalid search arguments: %w", err)
	}

	results := t.store.Search(ctx, a.Query, a.CourseName, a.LessonNumber, nil)

	// An error from the search layer is a valid tool answer, surfaced verbatim.
	if results.Error != "" {
		return results.Error, nil
	}

	if results.IsEmpty() {
		filterInfo := ""
		if a.CourseName != "" {
			filterInfo += fmt.Sprintf(" in course '%s'", a.CourseName)
		}
		if a.LessonNumber != nil {
			filterInfo += fmt.Sprintf(" in lesson %d", *a.LessonNumber)
		}
		return fmt.Sprintf("No relevant content found%s.", filterInfo), nil
	}

	return t.formatResults(ctx, results), nil
}

// formatResults renders each chunk under a course/lesson header and records
// the matching citations.
func (t *CourseSearchTool) formatResults(ctx context.Context, results vectorstore.SearchResults) string {
	var formatted []string
	var sources []models.Source

	for i, doc := range results.Documents {
		meta := results.Metadata[i]
		courseTitle, _ := meta["course_title"].(string)
		if courseTitle == "" {
			courseTitle = "unknown"
		}
		var lessonNumber *int
		if n, ok := meta["lesson_number"].(int); ok {
			lessonNumber = &n
		}

		header := "[" + courseTitle
		if lessonNumber != nil {
			header += fmt.Sprintf(" - Lesson %d", *lessonNumber)
		}
		header += "]"

		source := models.Source{Text: models.SourceLabel(courseTitle, lessonNumber)}
		if lessonNumber != nil {
			source.URL = t.store.LessonLink(ctx, courseTitle, *lessonNumber)
		} else {
			source.URL = t.store.CourseLink(ctx, courseTitle)
		}
		sources = append(sources, source)

		formatted = append(formatted, header+"\n"+doc)
	}

	t.lastSources = sources
	return strings.Join(formatted, "\n\n")
}

func (t *CourseSearchTool) LastSources() []models.Source { return t.lastSources }
func (t *CourseSearchTool) ResetSources()                { t.lastSources = nil }

// --- Course outline tool ---

// CourseOutlineTool renders a course's full outline: title, instructor,
// link, and the lesson list in stored order.
type CourseOutlineTool struct {
	store       CourseStore
	lastSources []models.Source
}

// NewCourseOutlineTool creates the course outline tool.
func NewCourseOutlineTool(store CourseStore) *CourseOutlineTool {
	return &CourseOutlineTool{store: store}
}

type courseOutlineArgs struct {
	CourseName string `json:"course_name"`
}

func (t *CourseOutlineTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "get_course_outline",
		Description: "Get complete course outline including course title, link, and all lessons",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"course_name": {"type": "string", "description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')"}
			},
			"required": ["course_name"]
		}`),
	}
}

func (t *CourseOutlineTool) Execute(ctx context.Context, args string) (string, error) {
	var a courseOutlineArgs
	if err := parseArgs(args, &a); err != nil {
		return "", fmt.Errorf("invalid outline arguments: %w", err)
	}

	resolvedTitle := t.store.ResolveCourseName(ctx, a.CourseName)
	if resolvedTitle == "" {
		return fmt.Sprintf("No course found matching '%s'", a.CourseName), nil
	}

	meta, err := t.store.CourseMetadata(ctx, resolvedTitle)
	if err != nil || meta == nil {
		return fmt.Sprintf("Could not retrieve metadata for course '%s'", resolvedTitle), nil
	}

	t.lastSources = []models.Source{{Text: meta.Title, URL: meta.CourseLink}}
	return formatCourseOutline(meta), nil
}

func formatCourseOutline(meta *vectorstore.CourseMeta) string {
	outline := []string{
		fmt.Sprintf("**Course:** %s", meta.Title),
		fmt.Sprintf("**Instructor:** %s", meta.Instructor),
		fmt.Sprintf("**Course Link:** %s", meta.CourseLink),
		"",
		"**Lessons:**",
	}

	var lessons []models.Lesson
	if err := json.Unmarshal([]byte(meta.LessonsJSON), &lessons); err != nil {
		// Malformed stored data degrades to a marker line instead of failing.
		outline = append(outline, "- Error parsing lesson data")
	} else if len(lessons) == 0 {
		outline = append(outline, "- No lessons found")
	} else {
		for _, lesson := range lessons {
			outline = append(outline, fmt.Sprintf("- Lesson %d: %s", lesson.Number, lesson.Title))
		}
	}

	return strings.Join(outline, "\n")
}

func (t *CourseOutlineTool) LastSources() []models.Source { return t.lastSources }
func (t *CourseOutlineTool) ResetSources()                { t.lastSources = nil }
