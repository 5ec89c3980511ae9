package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"lectern/internal/models"
)

// AddCourseMetadata upserts one catalog record. The title doubles as both the
// record key and the embedded document, so fuzzy name resolution searches
// over titles directly.
func (s *VectorStore) AddCourseMetadata(ctx context.Context, course models.Course) error {
	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("encode lessons for %q: %w", course.Title, err)
	}
	vec, err := s.embedder.EmbedQuery(ctx, course.Title)
	if err != nil {
		return fmt.Errorf("embed course title %q: %w", course.Title, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO course_catalog (title, instructor, course_link, lessons_json, embedding)
		 VALUES (?, ?, ?, ?, ?)`,
		course.Title, course.Instructor, course.Link, string(lessonsJSON), encodeVector(vec))
	if err != nil {
		return fmt.Errorf("store course metadata %q: %w", course.Title, err)
	}
	s.logger.Info("stored course metadata",
		zap.String("title", course.Title), zap.Int("lessons", len(course.Lessons)))
	return nil
}

// AddCourseContent embeds and stores a batch of content chunks.
func (s *VectorStore) AddCourseContent(ctx context.Context, chunks []models.CourseChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for i, c := range chunks {
		var lessonNum sql.NullInt64
		if c.LessonNumber != nil {
			lessonNum = sql.NullInt64{Int64: int64(*c.LessonNumber), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO course_content (course_title, lesson_number, chunk_index, content, embedding)
			 VALUES (?, ?, ?, ?, ?)`,
			c.CourseTitle, lessonNum, c.ChunkIndex, c.Content, encodeVector(vectors[i])); err != nil {
			tx.Rollback()
			return fmt.Errorf("store chunk %d of %q: %w", c.ChunkIndex, c.CourseTitle, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks: %w", err)
	}
	return nil
}

// ExistingCourseTitles lists every stored course title.
func (s *VectorStore) ExistingCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT title FROM course_catalog ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("list course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// CourseCount returns the number of stored courses.
func (s *VectorStore) CourseCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM course_catalog").Scan(&n); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return n, nil
}

// ClearAll removes every stored course and chunk, used when re-ingesting a
// corpus from scratch.
func (s *VectorStore) ClearAll(ctx context.Context) error {
	for _, stmt := range []string{"DELETE FROM course_content", "DELETE FROM course_catalog"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear store: %w", err)
		}
	}
	return nil
}
