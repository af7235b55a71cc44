package schemas

import "context"

// -- LLM Client Schemas & Interface --

// GenerationOptions provides detailed parameters to control the text
// generation process, such as creativity (temperature) and sampling.
type GenerationOptions struct {
	Temperature float64 `json:"temperature"` // Controls randomness. Lower is more deterministic.
	TopP        float64 `json:"top_p"`       // Nucleus sampling parameter.
	TopK        int     `json:"top_k"`       // Top-k sampling parameter.
	MaxTokens   int     `json:"max_tokens"`  // Hard cap on generated tokens. 0 uses the provider default.
}

// GenerationRequest encapsulates a complete request to the LLM, including
// the system and user prompts and generation options.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"` // Instructions for the model's persona and task.
	UserPrompt   string            `json:"user_prompt"`   // The specific input to respond to.
	Options      GenerationOptions `json:"options"`       // Advanced generation parameters.
}

// LLMClient defines a standard interface for interacting with a Large
// Language Model, abstracting the specifics of the underlying provider.
type LLMClient interface {
	// Generate produces a text completion based on the provided request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close cleans up any resources held by the client.
	Close() error
}

// -- Comment Generator Interface --

// CommentGenerator is the boundary to the text-generation collaborator.
// Implementations return the comment text alone; any failure means the
// caller must abort the comment action rather than post a fallback.
type CommentGenerator interface {
	Generate(ctx context.Context, post PostContext, tone CommentTone) (string, error)
}

// -- Cookie Store Interface --

// CookieStore persists one cookie jar per account identity. Load on a
// missing or unreadable record returns the store's not-found error; callers
// treat that identically to "no saved session".
type CookieStore interface {
	Load(ctx context.Context, accountID string) (*CookieJar, error)
	Save(ctx context.Context, accountID string, jar *CookieJar) error
	// Delete removes the saved jar, tolerating absence.
	Delete(ctx context.Context, accountID string) error
}
