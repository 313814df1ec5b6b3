// Package ollama implements the HTTP client for the local Ollama inference
// server. The server exposes POST /api/generate for completions and
// GET /api/tags for its model catalog; both are treated as an opaque
// collaborator.
//
// Failure policy: a chat UI must always receive a displayable string, so
// Generate never returns an error. Transport failures and non-200 responses
// are converted into fixed Vietnamese fallback messages and the underlying
// error is logged for operators. Probe and catalog calls likewise degrade to
// false / an empty list instead of erroring. Every call is a single attempt;
// there are no retries.
package ollama

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/vietchat/ollama-chat-backend/internal/domain"
	"github.com/vietchat/ollama-chat-backend/internal/prompt"
)

// Fixed decoding configuration for /api/generate. Kept as constants so the
// prompt → reply mapping only varies with model state, never with request
// parameters.
const (
	temperature = 0.7
	topP        = 0.9
	numPredict  = 1000
)

// User-facing fallback replies (never errors). Which one is returned encodes
// where the call failed, which helps operators triage from user reports alone.
const (
	// FallbackTransport is returned when the inference server cannot be
	// reached at all (connection refused, timeout, DNS).
	FallbackTransport = "Xin lỗi, có lỗi xảy ra khi xử lý yêu cầu của bạn."
	// FallbackUpstream is returned when the server answered with a non-200
	// status.
	FallbackUpstream = "Xin lỗi, có lỗi xảy ra khi kết nối với AI model."
	// FallbackEmpty is returned when the server answered 200 but produced no
	// text.
	FallbackEmpty = "Xin lỗi, tôi không thể tạo phản hồi lúc này."
)

// Config holds the client settings. Zero values are replaced with defaults
// suitable for a local Ollama install.
type Config struct {
	BaseURL string        // e.g. "http://localhost:11434"
	Model   string        // e.g. "llama3.2:1b"
	GenTime time.Duration // generation timeout; inference can be slow
	ProbeT  time.Duration // health-probe timeout; must not block UIs
	ListT   time.Duration // catalog timeout
}

// Client talks to one Ollama server. It is safe for concurrent use.
type Client struct {
	baseURL string
	model   string
	genT    time.Duration
	probeT  time.Duration
	listT   time.Duration
	rc      *resty.Client
}

// NewClient constructs a Client, applying defaults for unset config fields.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2:1b"
	}
	if cfg.GenTime <= 0 {
		cfg.GenTime = 60 * time.Second
	}
	if cfg.ProbeT <= 0 {
		cfg.ProbeT = 5 * time.Second
	}
	if cfg.ListT <= 0 {
		cfg.ListT = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		genT:    cfg.GenTime,
		probeT:  cfg.ProbeT,
		listT:   cfg.ListT,
		rc:      resty.New(),
	}
}

// Model returns the configured generation model name.
func (c *Client) Model() string { return c.model }

// generateRequest is the /api/generate payload. Streaming is always disabled;
// the handler returns one complete reply per request.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Generate builds the context-windowed prompt from history and the new
// message, issues a single generation request, and returns the reply text.
// On any failure it returns one of the fallback messages instead of an error.
func (c *Client) Generate(ctx context.Context, message string, history []domain.Conversation) string {
	p := prompt.BuildPrompt(prompt.BuildContext(history), message)

	ctx, cancel := context.WithTimeout(ctx, c.genT)
	defer cancel()

	var out generateResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(generateRequest{
			Model:  c.model,
			Prompt: p,
			Stream: false,
			Options: generateOptions{
				Temperature: temperature,
				TopP:        topP,
				NumPredict:  numPredict,
			},
		}).
		SetResult(&out).
		Post(c.baseURL + "/api/generate")
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("ollama generate transport failure")
		return FallbackTransport
	}
	if !resp.IsSuccess() {
		log.Error().
			Int("status", resp.StatusCode()).
			Str("model", c.model).
			Msg("ollama generate non-success status")
		return FallbackUpstream
	}
	if out.Response == "" {
		return FallbackEmpty
	}
	return out.Response
}

// CheckConnection probes the server's catalog endpoint. It returns false (not
// an error) on any failure, including timeout.
func (c *Client) CheckConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.probeT)
	defer cancel()

	resp, err := c.rc.R().SetContext(ctx).Get(c.baseURL + "/api/tags")
	return err == nil && resp.IsSuccess()
}

// ListModels returns the names in the server's model catalog. On any failure
// it returns an empty (non-nil) slice so callers can serialize it directly.
func (c *Client) ListModels(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, c.listT)
	defer cancel()

	var out tagsResponse
	resp, err := c.rc.R().SetContext(ctx).SetResult(&out).Get(c.baseURL + "/api/tags")
	if err != nil {
		log.Warn().Err(err).Msg("ollama list models failed")
		return []string{}
	}
	if !resp.IsSuccess() {
		log.Warn().Int("status", resp.StatusCode()).Msg("ollama list models non-success status")
		return []string{}
	}

	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names
}
