package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel string

	// Auth
	APIKey string

	// Text generation
	LLMProvider     string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	LLMTemperature  float64
	LLMMaxTokens    int
	LLMMaxRetries   int

	// Web search
	SerpAPIKey   string
	SearchEngine string

	// Templates
	TemplatesFile string

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	SectionConcurrency int
	ExtractConcurrency int

	// Extraction
	ReferenceDir         string
	ExcerptRunes         int
	MaxSheetRows         int
	PDFFallbackPdftotext bool

	// Run state
	RunTTL      time.Duration
	StoreDriver string
	DatabaseURL string

	// Rendering
	ChromePath   string
	PrintTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:     envOr("PORT", "8090"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		APIKey: os.Getenv("API_KEY"),

		LLMProvider:     strings.ToLower(envOr("LLM_PROVIDER", "openai")),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     envOr("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:   envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		LLMTemperature:  envFloat("LLM_TEMPERATURE", 0.7),
		LLMMaxTokens:    envInt("LLM_MAX_TOKENS", 4000),
		LLMMaxRetries:   envInt("LLM_MAX_RETRIES", 3),

		SerpAPIKey:   os.Getenv("SERPAPI_API_KEY"),
		SearchEngine: envOr("SEARCH_ENGINE", "google"),

		TemplatesFile: os.Getenv("TEMPLATES_FILE"),

		WorkerCount:        envInt("WORKER_COUNT", 2),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 50),
		SectionConcurrency: envInt("SECTION_CONCURRENCY", 1),
		ExtractConcurrency: envInt("EXTRACT_CONCURRENCY", 4),

		ReferenceDir:         envOr("REFERENCE_DIR", "uploads"),
		ExcerptRunes:         envInt("EXCERPT_RUNES", 2000),
		MaxSheetRows:         envInt("MAX_SHEET_ROWS", 100),
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		RunTTL:      envDuration("RUN_TTL", 24*time.Hour),
		StoreDriver: strings.ToLower(envOr("STORE_DRIVER", "memory")),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		ChromePath:   os.Getenv("CHROME_PATH"),
		PrintTimeout: envDuration("PDF_PRINT_TIMEOUT", 60*time.Second),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.SectionConcurrency <= 0 {
		cfg.SectionConcurrency = 1
	}
	if cfg.ExtractConcurrency <= 0 {
		cfg.ExtractConcurrency = 4
	}
	if cfg.ExcerptRunes <= 0 {
		cfg.ExcerptRunes = 2000
	}
	if cfg.MaxSheetRows <= 0 {
		cfg.MaxSheetRows = 100
	}
	if cfg.LLMMaxTokens <= 0 {
		cfg.LLMMaxTokens = 4000
	}
	if cfg.LLMMaxRetries < 0 {
		cfg.LLMMaxRetries = 0
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 24 * time.Hour
	}
	if cfg.PrintTimeout <= 0 {
		cfg.PrintTimeout = 60 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	switch c.LLMProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q (want anthropic or openai)", c.LLMProvider)
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be within [0, 2], got %v", c.LLMTemperature)
	}
	switch c.StoreDriver {
	case "memory":
	case "sqlite", "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want memory, sqlite or postgres)", c.StoreDriver)
	}
	return nil
}

// WebSearchEnabled reports whether a search provider key is configured.
func (c Config) WebSearchEnabled() bool {
	return c.SerpAPIKey != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
