// Package rag wires the vector store, tools, generator, and sessions into
// the question-answering system the HTTP API and TUI sit on.
package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"lectern/internal/assistant"
	"lectern/internal/ingest"
	"lectern/internal/models"
	"lectern/internal/session"
	"lectern/internal/vectorstore"
)

// System answers questions about the ingested course corpus.
type System struct {
	store     *vectorstore.VectorStore
	processor *ingest.Processor
	sessions  *session.Manager
	generator *assistant.Generator
	registry  *assistant.ToolRegistry
	logger    *zap.Logger

	// The registry's citation state belongs to one query at a time: it is
	// drained and reset before the next query may run.
	mu sync.Mutex
}

// Analytics summarizes the stored corpus.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// New builds the system and registers the content search and course outline
// tools.
func New(store *vectorstore.VectorStore, processor *ingest.Processor, sessions *session.Manager, generator *assistant.Generator, logger *zap.Logger) *System {
	registry := assistant.NewToolRegistry()
	registry.Register(assistant.NewCourseSearchTool(store))
	registry.Register(assistant.NewCourseOutlineTool(store))

	return &System{
		store:     store,
		processor: processor,
		sessions:  sessions,
		generator: generator,
		registry:  registry,
		logger:    logger,
	}
}

// Query answers one user question, returning the answer text and the
// citations collected by whichever tool ran last. The exchange is recorded
// against sessionID when one is given.
func (s *System) Query(ctx context.Context, query, sessionID string) (string, []models.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompt := fmt.Sprintf("Answer this question about course materials: %s", query)
	history := s.sessions.History(sessionID)

	answer := s.generator.Generate(ctx, prompt, history, s.registry)

	sources := s.registry.LastSources()
	s.registry.ResetSources()

	if sessionID != "" {
		s.sessions.AddExchange(sessionID, query, answer)
	}
	return answer, sources
}

// CreateSession starts a new conversation session.
func (s *System) CreateSession() string { return s.sessions.CreateSession() }

// ClearSession drops a session's history.
func (s *System) ClearSession(sessionID string) { s.sessions.ClearSession(sessionID) }

// AddCourseDocument ingests a single course document, returning the parsed
// course and the number of stored chunks.
func (s *System) AddCourseDocument(ctx context.Context, path string) (*models.Course, int, error) {
	course, chunks, err := s.processor.ProcessFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("process %q: %w", path, err)
	}
	if err := s.store.AddCourseMetadata(ctx, *course); err != nil {
		return nil, 0, err
	}
	if err := s.store.AddCourseContent(ctx, chunks); err != nil {
		return nil, 0, err
	}
	return course, len(chunks), nil
}

// AddCourseFolder ingests every course document in a directory, skipping
// titles already present in the store. With clearExisting set, the store is
// emptied first. Returns the number of courses and chunks added.
func (s *System) AddCourseFolder(ctx context.Context, dir string, clearExisting bool) (int, int, error) {
	if clearExisting {
		if err := s.store.ClearAll(ctx); err != nil {
			return 0, 0, err
		}
		s.logger.Info("cleared existing course data")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read course folder: %w", err)
	}

	existing, err := s.store.ExistingCourseTitles(ctx)
	if err != nil {
		return 0, 0, err
	}
	known := make(map[string]bool, len(existing))
	for _, title := range existing {
		known[title] = true
	}

	coursesAdded, chunksAdded := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !isCourseDocument(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		course, chunks, err := s.processor.ProcessFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable course document",
				zap.String("path", path), zap.Error(err))
			continue
		}
		if known[course.Title] {
			s.logger.Debug("course already stored", zap.String("title", course.Title))
			continue
		}

		if err := s.store.AddCourseMetadata(ctx, *course); err != nil {
			return coursesAdded, chunksAdded, err
		}
		if err := s.store.AddCourseContent(ctx, chunks); err != nil {
			return coursesAdded, chunksAdded, err
		}
		known[course.Title] = true
		coursesAdded++
		chunksAdded += len(chunks)
		s.logger.Info("ingested course",
			zap.String("title", course.Title), zap.Int("chunks", len(chunks)))
	}
	return coursesAdded, chunksAdded, nil
}

// Analytics reports how many courses are stored and their titles.
func (s *System) Analytics(ctx context.Context) (Analytics, error) {
	titles, err := s.store.ExistingCourseTitles(ctx)
	if err != nil {
		return Analytics{}, err
	}
	return Analytics{TotalCourses: len(titles), CourseTitles: titles}, nil
}

func isCourseDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	}
	return false
}
