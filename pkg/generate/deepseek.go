package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codecraft/aidoc/pkg/core"
)

// DeepSeekConfig configures the DeepSeek provider client.
type DeepSeekConfig struct {
	BaseURL string // default https://api.deepseek.com
	APIKey  string
	Model   string // default deepseek-chat
	Timeout time.Duration
}

// DeepSeek calls the DeepSeek OpenAI-compatible chat-completions API.
type DeepSeek struct {
	config DeepSeekConfig
	client *http.Client
	logger *slog.Logger
}

// Compile-time interface check.
var _ core.Generator = (*DeepSeek)(nil)

// NewDeepSeek creates the provider client.
func NewDeepSeek(cfg DeepSeekConfig) *DeepSeek {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepseek.com"
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &DeepSeek{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: slog.Default(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends the prompt and parses the completion.
func (d *DeepSeek) Generate(ctx context.Context, req *core.Request) (*core.Result, error) {
	if d.config.APIKey == "" {
		return nil, core.NewError(core.CodeUpstreamFailure, "deepseek api key not configured")
	}

	format := ResolveFormat(req.Language, req.Format)
	body, err := json.Marshal(chatRequest{
		Model: d.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a precise technical writer. Produce only the documentation comment, no surrounding prose."},
			{Role: "user", Content: buildPrompt(req, format)},
		},
		Temperature: temperatureFor(req.Quality),
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, core.WrapError(core.CodeInternal, err, "encode provider request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(d.config.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, core.WrapError(core.CodeInternal, err, "build provider request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(d.config.APIKey))
	httpReq.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, core.WrapError(core.CodeUpstreamFailure, err, "deepseek call failed")
	}
	defer resp.Body.Close()
	latency := time.Since(started).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, core.Errorf(core.CodeUpstreamFailure, "deepseek returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, core.WrapError(core.CodeUpstreamFailure, err, "decode deepseek response")
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, core.NewError(core.CodeUpstreamFailure, "deepseek returned no content")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	return &core.Result{
		Text:      text,
		Preview:   Preview(text, previewLength),
		Provider:  "deepseek",
		Format:    format,
		LatencyMs: latency,
	}, nil
}

func buildPrompt(req *core.Request, format string) string {
	syn := Analyze(req.Input())
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s documentation comment for the following %s code.\n", format, req.Language)
	if syn.Kind != "snippet" {
		fmt.Fprintf(&b, "The %s is named %q.\n", syn.Kind, syn.Name)
	}
	if len(syn.Params) > 0 {
		fmt.Fprintf(&b, "Document these parameters: %s.\n", strings.Join(syn.Params, ", "))
	}
	if req.Width > 0 {
		fmt.Fprintf(&b, "Keep lines under %d characters.\n", req.Width)
	}
	b.WriteString("\nCode:\n")
	b.WriteString(req.Input())
	if req.Content != "" && req.Context != "" {
		b.WriteString("\n\nSurrounding context:\n")
		b.WriteString(req.Context)
	}
	return b.String()
}

func temperatureFor(quality string) float64 {
	switch quality {
	case "deep":
		return 0.2
	case "fast":
		return 0.7
	default:
		return 0.4
	}
}
