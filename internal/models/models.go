// Package models holds the shared data types for courses, lessons, content
// chunks, and answer sources.
package models

import "fmt"

// Lesson is a single lesson within a course.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course is the full metadata for one course. Title is the unique key across
// the whole system: the catalog collection is keyed by it and content chunks
// reference it.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"course_link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// CourseChunk is one searchable piece of course content.
type CourseChunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int // nil when the chunk precedes any lesson marker
	ChunkIndex   int
}

// Source is a citation pointing back at the material a tool used to answer.
type Source struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// SourceLabel builds the human-readable citation label for a course and an
// optional lesson number.
func SourceLabel(courseTitle string, lessonNumber *int) string {
	if lessonNumber != nil {
		return fmt.Sprintf("%s - Lesson %d", courseTitle, *lessonNumber)
	}
	return courseTitle
}
