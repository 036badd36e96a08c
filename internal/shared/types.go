package shared

import "time"

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// StreamChunk is one newline-delimited record of the upstream chat stream.
// The final record carries Done=true plus the eval counters; intermediate
// records carry only the message delta.
type StreamChunk struct {
	Model              string       `json:"model,omitempty"`
	CreatedAt          string       `json:"created_at,omitempty"`
	Message            *ChatMessage `json:"message,omitempty"`
	Done               bool         `json:"done"`
	DoneReason         string       `json:"done_reason,omitempty"`
	TotalDuration      int64        `json:"total_duration,omitempty"`
	LoadDuration       int64        `json:"load_duration,omitempty"`
	PromptEvalCount    int          `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64        `json:"prompt_eval_duration,omitempty"`
	EvalCount          int          `json:"eval_count,omitempty"`
	EvalDuration       int64        `json:"eval_duration,omitempty"`

	// Set only on the synthetic terminal frame written when the upstream
	// drops after streaming has begun.
	Error string `json:"error,omitempty"`
}

// Identity is the verified subject attached to a request after the bearer
// token passes verification.
type Identity struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type UploadResponse struct {
	Filename     string `json:"filename"`
	DownloadPath string `json:"download_path"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	UpstreamURL string `json:"upstream_url"`
}
