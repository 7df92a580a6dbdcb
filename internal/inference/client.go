package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrEmptyResponse  = errors.New("empty response from model")
	ErrInvalidNewick  = errors.New("response is not a valid newick")
	ErrUnknownBackend = errors.New("unknown inference backend")
	ErrMissingAPIKey  = errors.New("api key is required")
)

// Request is a single image description request.
type Request struct {
	Image        []byte
	MIMEType     string
	Instructions string
	Prompt       string
}

// Client sends requests to a multimodal model.
type Client interface {
	// Extract returns the text answered by the model.
	Extract(ctx context.Context, req Request) (string, error)
}

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	// Body holds the first bytes of the response body.
	Body       string
	retryAfter string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Backend names.
const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

// Settings configures a backend.
type Settings struct {
	Backend string
	Model   string
	APIKey  string
	// BaseURL overrides the endpoint of the openai backend.
	BaseURL     string
	Timeout     time.Duration
	Temperature *float32
}

// NewClient creates the client of the configured backend.
func NewClient(ctx context.Context, settings Settings) (Client, error) {
	if settings.APIKey == "" {
		return nil, errors.Wrapf(ErrMissingAPIKey, "backend %s", settings.Backend)
	}

	switch strings.ToLower(settings.Backend) {
	case BackendGemini, "":
		return NewGemini(ctx, settings)
	case BackendOpenAI:
		opts := []OpenAIOption{}
		if settings.Timeout > 0 {
			opts = append(opts, WithHTTPTimeout(settings.Timeout))
		}

		if settings.Temperature != nil {
			opts = append(opts, WithTemperature(*settings.Temperature))
		}

		return NewOpenAI(settings.BaseURL, settings.APIKey, settings.Model, opts...), nil
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", settings.Backend)
	}
}
