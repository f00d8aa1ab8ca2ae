package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mzhuang1/chanyeops-sub000/internal/api"
	"github.com/mzhuang1/chanyeops-sub000/internal/config"
	"github.com/mzhuang1/chanyeops-sub000/internal/extract"
	"github.com/mzhuang1/chanyeops-sub000/internal/llm"
	"github.com/mzhuang1/chanyeops-sub000/internal/parser"
	"github.com/mzhuang1/chanyeops-sub000/internal/pipeline"
	"github.com/mzhuang1/chanyeops-sub000/internal/planning"
	"github.com/mzhuang1/chanyeops-sub000/internal/render"
	"github.com/mzhuang1/chanyeops-sub000/internal/templates"
	"github.com/mzhuang1/chanyeops-sub000/internal/websearch"
)

// generationClient is what both provider clients offer.
type generationClient interface {
	llm.Generator
	Model() string
	Close()
}

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Template catalog.
	reg := templates.NewBuiltinRegistry()
	if cfg.TemplatesFile != "" {
		n, err := reg.LoadFile(cfg.TemplatesFile)
		if err != nil {
			log.Error("load templates failed", "path", cfg.TemplatesFile, "error", err)
			os.Exit(1)
		}
		log.Info("templates loaded", "path", cfg.TemplatesFile, "count", n)
	}

	// Text generation client.
	var (
		client generationClient
		stats  *llm.Stats
	)
	switch cfg.LLMProvider {
	case "anthropic":
		c := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		client, stats = c, c.Stats
	default:
		c := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		client, stats = c, c.Stats
	}
	gen := llm.NewRetrying(client, cfg.LLMMaxRetries, log.With("component", "llm"))

	assembler := &planning.Assembler{
		Templates: reg,
		Extractor: extract.NewExtractor(parser.Options{
			FallbackPdftotext: cfg.PDFFallbackPdftotext,
			MaxSheetRows:      cfg.MaxSheetRows,
		}, cfg.ExtractConcurrency, log.With("component", "extract")),
		Sections: &planning.SectionGenerator{
			LLM:         gen,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
		},
		Log:                log.With("component", "assembler"),
		SectionConcurrency: cfg.SectionConcurrency,
		ExcerptRunes:       cfg.ExcerptRunes,
	}

	var search *websearch.SerpAPIClient
	if cfg.WebSearchEnabled() {
		search = websearch.NewSerpAPIClient(cfg.SerpAPIKey, cfg.SearchEngine)
		assembler.Augmenter = websearch.NewAugmenter(search, log.With("component", "websearch"))
	} else {
		log.Info("web search disabled, SERPAPI_API_KEY not set")
	}

	// Run store.
	var store pipeline.RunStore
	switch cfg.StoreDriver {
	case "sqlite", "postgres":
		s, err := pipeline.OpenSQLStore(cfg.StoreDriver, cfg.DatabaseURL, log.With("component", "store"))
		if err != nil {
			log.Error("open run store failed", "driver", cfg.StoreDriver, "error", err)
			os.Exit(1)
		}
		store = s
	default:
		store = pipeline.NewMemoryStore()
	}

	// Initialize pipeline.
	printer := &render.ChromePrinter{ExecPath: cfg.ChromePath, Timeout: cfg.PrintTimeout}
	orch := pipeline.NewOrchestrator(pipeline.Options{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		RunTTL:       cfg.RunTTL,
	}, store, assembler, printer, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, reg, api.LLMInfo{
		Provider: cfg.LLMProvider,
		Model:    client.Model(),
		Stats:    stats,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Drain HTTP first so no handler submits to a closed queue.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}

		orch.Stop()

		client.Close()
		if search != nil {
			search.Close()
		}
		if err := store.Close(); err != nil {
			log.Warn("close run store", "error", err)
		}
	}()

	log.Info("starting planning service", "port", cfg.Port, "provider", cfg.LLMProvider, "model", client.Model(), "store", cfg.StoreDriver)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
