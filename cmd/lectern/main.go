// Command lectern answers questions about a corpus of course material using
// an LLM with retrieval tools. It serves a JSON API, runs an interactive
// terminal chat, and ingests course documents into the vector store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lectern/internal/assistant"
	"lectern/internal/config"
	"lectern/internal/ingest"
	"lectern/internal/rag"
	"lectern/internal/server"
	"lectern/internal/session"
	"lectern/internal/ui"
	"lectern/internal/vectorstore"
)

func main() {
	root := &cobra.Command{
		Use:           "lectern",
		Short:         "Course materials assistant: retrieval-backed Q&A over ingested courses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), chatCmd(), ingestCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lectern: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the full system.
func bootstrap() (*rag.System, *config.Config, *zap.Logger, func(), error) {
	cfg, v, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger, err := config.NewLogger(v)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	embedder, err := vectorstore.NewEmbedder(
		cfg.EmbeddingProvider, cfg.EmbeddingModel, cfg.OpenAIAPIKey, cfg.EmbeddingServerURL)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	store, err := vectorstore.New(cfg.DBPath, embedder, cfg.MaxResults, logger.Named("store"))
	if err != nil {
		return nil, nil, nil, nil, err
	}

	system := rag.New(
		store,
		ingest.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap),
		session.NewManager(cfg.MaxHistory),
		assistant.NewGenerator(provider, cfg.MaxToolRounds, logger.Named("generator")),
		logger.Named("rag"),
	)

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("store close", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return system, cfg, logger, cleanup, nil
}

func newProvider(cfg *config.Config) (assistant.LLMProvider, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set (export it or put it in .env)")
		}
		return assistant.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set (export it or put it in .env)")
		}
		return assistant.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case "ollama":
		return assistant.NewOllamaProvider(cfg.OllamaHost, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func serveCmd() *cobra.Command {
	var skipIngest bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON question-answering API",
		RunE: func(cmd *cobra.Command, args []string) error {
			system, cfg, logger, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Pick up any new course documents before serving, matching the
			// ingest-on-startup behavior of the original deployment.
			if !skipIngest {
				if _, err := os.Stat(cfg.DocsDir); err == nil {
					courses, chunks, err := system.AddCourseFolder(ctx, cfg.DocsDir, false)
					if err != nil {
						return err
					}
					logger.Info("startup ingestion complete",
						zap.Int("courses_added", courses), zap.Int("chunks_added", chunks))
				}
			}

			return server.New(system, cfg.ListenAddr, logger.Named("server")).Start(ctx)
		},
	}
	cmd.Flags().BoolVar(&skipIngest, "skip-ingest", false, "do not ingest the docs directory on startup")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			system, _, _, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			program := tea.NewProgram(ui.NewModel(system), tea.WithAltScreen())
			_, err = program.Run()
			return err
		},
	}
}

func ingestCmd() *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Ingest course documents from a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			system, cfg, logger, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			dir := cfg.DocsDir
			if len(args) == 1 {
				dir = args[0]
			}

			courses, chunks, err := system.AddCourseFolder(cmd.Context(), dir, clear)
			if err != nil {
				return err
			}
			logger.Info("ingestion complete",
				zap.String("dir", dir),
				zap.Int("courses_added", courses),
				zap.Int("chunks_added", chunks))
			fmt.Printf("Added %d courses (%d chunks) from %s\n", courses, chunks, dir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "clear existing course data before ingesting")
	return cmd
}
