package core

import "context"

// Request is the serialized input for one documentation generation. Once a
// job is persisted its payload is this struct, and recovery reconstructs
// the exact request from it.
type Request struct {
	Content   string `json:"content,omitempty"` // source snippet; Context is the fallback
	Context   string `json:"context,omitempty"` // surrounding file or module text
	Language  string `json:"language"`
	Format    string `json:"format,omitempty"` // requested doc format, empty = auto
	Commented bool   `json:"commented,omitempty"`
	Width     int    `json:"width,omitempty"`
	Quality   string `json:"quality,omitempty"` // fast/balanced/deep hint
}

// Input returns the text a generator should document: the snippet when
// present, otherwise the contextual fallback.
func (r *Request) Input() string {
	if r.Content != "" {
		return r.Content
	}
	return r.Context
}

// Result is the output of one documentation generation.
type Result struct {
	Text       string `json:"text"`
	Preview    string `json:"preview,omitempty"`
	Provider   string `json:"provider"`
	Format     string `json:"format,omitempty"`
	LatencyMs  int64  `json:"latencyMs"`
	FeedbackID string `json:"feedbackId,omitempty"`
}

// Generator produces documentation for a request. Implementations are
// selected once at configuration time, not re-resolved per call.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Result, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req *Request) (*Result, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req *Request) (*Result, error) {
	return f(ctx, req)
}
