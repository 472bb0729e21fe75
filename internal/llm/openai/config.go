package openai

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/fleet-tracker/constants"
	"github.com/joseph-ayodele/fleet-tracker/internal/llm"
)

// Config for the OpenAI client.
type Config struct {
	APIKey      string
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g., "gpt-4o-mini"
	Temperature float32       // 0..2
	Timeout     time.Duration // http client timeout
}

type Client struct {
	cfg      Config
	http     *http.Client
	schema   map[string]any
	compiled *jsonschema.Schema
	logger   *slog.Logger
}

// NewClient builds a chat/completions client. The response schema is
// compiled once here.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema := llm.BuildMaintenanceJSONSchema(constants.AsStringSlice())
	compiled, err := llm.CompileSchema(schema)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		schema:   schema,
		compiled: compiled,
		logger:   logger,
	}, nil
}
