// Package vectorstore implements the two-collection semantic index backing
// the assistant's search tools: a catalog collection keyed by exact course
// title (used to resolve fuzzy user-supplied course names) and a content
// collection of embedded text chunks queryable with course/lesson filters.
//
// Storage is SQLite with embeddings held as float32 blobs; similarity is
// cosine distance computed over the candidate rows after the SQL equality
// filters are applied. A brute-force scan is deliberate: the corpus is a
// handful of courses, not millions of vectors.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS course_catalog (
	title        TEXT PRIMARY KEY,
	instructor   TEXT NOT NULL DEFAULT '',
	course_link  TEXT NOT NULL DEFAULT '',
	lessons_json TEXT NOT NULL DEFAULT '[]',
	embedding    BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS course_content (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	course_title  TEXT NOT NULL,
	lesson_number INTEGER,
	chunk_index   INTEGER NOT NULL,
	content       TEXT NOT NULL,
	embedding     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_content_course ON course_content(course_title, lesson_number);
`

// CourseMeta is the stored catalog record for one course. Lessons stay
// JSON-encoded, matching the wire shape handed to the outline tool; parsing
// failures are the tool's concern, not the store's.
type CourseMeta struct {
	Title       string
	Instructor  string
	CourseLink  string
	LessonsJSON string
}

// lessonRef is the subset of lesson fields needed for link lookups.
type lessonRef struct {
	Number int    `json:"lesson_number"`
	Link   string `json:"lesson_link"`
}

// VectorStore provides course-aware semantic search over the catalog and
// content collections.
type VectorStore struct {
	db         *sql.DB
	embedder   embeddings.Embedder
	maxResults int
	logger     *zap.Logger
}

// New opens (or creates) the store at path. maxResults caps content searches
// when the caller passes no explicit limit and must be positive; the
// configuration layer validates that before constructing the store.
func New(path string, embedder embeddings.Embedder, maxResults int, logger *zap.Logger) (*VectorStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// SQLite performs best with a single write connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &VectorStore{db: db, embedder: embedder, maxResults: maxResults, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *VectorStore) Close() error {
	return s.db.Close()
}

// contentFilter is the metadata constraint applied to a content search:
// an optional SQL clause plus its arguments.
type contentFilter struct {
	clause string
	args   []any
}

// buildContentFilter maps the optional course/lesson constraints onto a WHERE
// clause: nothing, a single equality, or the AND of both.
func buildContentFilter(courseTitle string, lessonNumber *int) contentFilter {
	var f contentFilter
	if courseTitle != "" {
		f.clause = " WHERE course_title = ?"
		f.args = append(f.args, courseTitle)
	}
	if lessonNumber != nil {
		if f.clause == "" {
			f.clause = " WHERE lesson_number = ?"
		} else {
			f.clause += " AND lesson_number = ?"
		}
		f.args = append(f.args, *lessonNumber)
	}
	return f
}

// Search runs a relevance-ranked content query, optionally narrowed to one
// course (resolved from a fuzzy name) and/or one lesson. It never returns an
// error through Go's error channel: every failure mode lands in
// SearchResults.Error so callers can hand the text straight to the model.
func (s *VectorStore) Search(ctx context.Context, query, courseName string, lessonNumber, limit *int) SearchResults {
	resolvedTitle := ""
	if courseName != "" {
		resolvedTitle = s.ResolveCourseName(ctx, courseName)
		if resolvedTitle == "" {
			return Empty(fmt.Sprintf("No course found matching '%s'", courseName))
		}
	}

	n := s.maxResults
	if limit != nil {
		n = *limit
	}

	results, err := s.queryContent(ctx, query, buildContentFilter(resolvedTitle, lessonNumber), n)
	if err != nil {
		s.logger.Error("content search failed", zap.String("query", query), zap.Error(err))
		return Empty(fmt.Sprintf("Search error: %v", err))
	}
	return results
}

func (s *VectorStore) queryContent(ctx context.Context, query string, filter contentFilter, limit int) (SearchResults, error) {
	queryVec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return SearchResults{}, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT content, course_title, lesson_number, chunk_index, embedding FROM course_content"+filter.clause,
		filter.args...)
	if err != nil {
		return SearchResults{}, fmt.Errorf("query content: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		doc      string
		meta     map[string]any
		distance float64
	}
	var candidates []candidate
	for rows.Next() {
		var (
			content, courseTitle string
			lessonNum            sql.NullInt64
			chunkIndex           int
			blob                 []byte
		)
		if err := rows.Scan(&content, &courseTitle, &lessonNum, &chunkIndex, &blob); err != nil {
			return SearchResults{}, fmt.Errorf("scan content row: %w", err)
		}
		meta := map[string]any{
			"course_title": courseTitle,
			"chunk_index":  chunkIndex,
		}
		if lessonNum.Valid {
			meta["lesson_number"] = int(lessonNum.Int64)
		}
		candidates = append(candidates, candidate{
			doc:      content,
			meta:     meta,
			distance: cosineDistance(queryVec, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return SearchResults{}, fmt.Errorf("iterate content rows: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if limit < len(candidates) {
		candidates = candidates[:limit]
	}

	var results SearchResults
	for _, c := range candidates {
		results.Documents = append(results.Documents, c.doc)
		results.Metadata = append(results.Metadata, c.meta)
		results.Distances = append(results.Distances, c.distance)
	}
	return results, nil
}

// ResolveCourseName maps a possibly partial course name to the exact stored
// title via a top-1 semantic lookup against the catalog. The empty string
// means "not found"; absence is a normal outcome, never an error.
func (s *VectorStore) ResolveCourseName(ctx context.Context, name string) string {
	nameVec, err := s.embedder.EmbedQuery(ctx, name)
	if err != nil {
		s.logger.Warn("course name embedding failed", zap.String("name", name), zap.Error(err))
		return ""
	}

	rows, err := s.db.QueryContext(ctx, "SELECT title, embedding FROM course_catalog")
	if err != nil {
		s.logger.Warn("catalog query failed", zap.Error(err))
		return ""
	}
	defer rows.Close()

	best := ""
	bestDistance := 0.0
	for rows.Next() {
		var title string
		var blob []byte
		if err := rows.Scan(&title, &blob); err != nil {
			s.logger.Warn("catalog scan failed", zap.Error(err))
			return ""
		}
		d := cosineDistance(nameVec, decodeVector(blob))
		if best == "" || d < bestDistance {
			best = title
			bestDistance = d
		}
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("catalog iteration failed", zap.Error(err))
		return ""
	}
	return best
}

// CourseMetadata fetches the catalog record stored under the exact title.
func (s *VectorStore) CourseMetadata(ctx context.Context, title string) (*CourseMeta, error) {
	meta := &CourseMeta{Title: title}
	err := s.db.QueryRowContext(ctx,
		"SELECT instructor, course_link, lessons_json FROM course_catalog WHERE title = ?", title).
		Scan(&meta.Instructor, &meta.CourseLink, &meta.LessonsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load course metadata %q: %w", title, err)
	}
	return meta, nil
}

// CourseLink returns the course's link, or "" if unknown.
func (s *VectorStore) CourseLink(ctx context.Context, title string) string {
	var link string
	if err := s.db.QueryRowContext(ctx,
		"SELECT course_link FROM course_catalog WHERE title = ?", title).Scan(&link); err != nil {
		return ""
	}
	return link
}

// LessonLink returns the link of one lesson within a course, or "" if the
// course, the lesson, or the link is unknown.
func (s *VectorStore) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) string {
	meta, err := s.CourseMetadata(ctx, courseTitle)
	if err != nil || meta == nil {
		return ""
	}
	var lessons []lessonRef
	if err := json.Unmarshal([]byte(meta.LessonsJSON), &lessons); err != nil {
		return ""
	}
	for _, l := range lessons {
		if l.Number == lessonNumber {
			return l.Link
		}
	}
	return ""
}
