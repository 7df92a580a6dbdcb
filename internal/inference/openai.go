package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultOpenAIBaseURL is the endpoint used when no base URL is configured.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "gpt-4.1"

	maxRetries    = 3
	maxErrorBody  = 512
	maxAnswerBody = 4 << 20
)

// OpenAI sends requests to an OpenAI compatible chat completions endpoint with Bearer auth.
// It retries on 429, honouring Retry-After, and on 5xx with exponential backoff.
type OpenAI struct {
	baseURL     string
	token       string
	model       string
	temperature *float32
	backoff     time.Duration
	httpClient  *http.Client
}

// OpenAIOption configures an OpenAI client.
type OpenAIOption func(*OpenAI)

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) OpenAIOption {
	return func(c *OpenAI) {
		c.httpClient.Timeout = d
	}
}

// WithTemperature sets the sampling temperature. Without it the field is omitted, which reasoning
// models require.
func WithTemperature(temperature float32) OpenAIOption {
	return func(c *OpenAI) {
		c.temperature = &temperature
	}
}

// WithBackoff sets the first retry delay, doubled at every retry.
func WithBackoff(d time.Duration) OpenAIOption {
	return func(c *OpenAI) {
		c.backoff = d
	}
}

// NewOpenAI creates a client for baseURL.
func NewOpenAI(baseURL, token, model string, opts ...OpenAIOption) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	if model == "" {
		model = DefaultOpenAIModel
	}

	c := &OpenAI{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		model:   model,
		backoff: time.Second,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract sends the image as a base64 data URL.
func (c *OpenAI) Extract(ctx context.Context, req Request) (string, error) {
	messages := []chatMessage{}
	if req.Instructions != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.Instructions})
	}

	dataURL := "data:" + req.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(req.Image)
	messages = append(messages, chatMessage{Role: "user", Content: []chatPart{
		{Type: "text", Text: req.Prompt},
		{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
	}})

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages, Temperature: c.temperature})
	if err != nil {
		return "", errors.Wrap(err, "unable to encode chat request")
	}

	var resp chatResponse

	err = c.postJSON(ctx, "/chat/completions", body, &resp)
	if err != nil {
		return "", errors.Wrapf(err, "openai %s request failed", c.model)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.Wrapf(ErrEmptyResponse, "openai %s", c.model)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// postJSON sends body and unmarshals the JSON response into dest.
// Returns *APIError for non-2xx responses once retries are exhausted.
func (c *OpenAI) postJSON(ctx context.Context, path string, body []byte, dest any) error {
	var lastErr *APIError

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(c.backoffDelay(attempt, lastErr))
			select {
			case <-ctx.Done():
				timer.Stop()

				return errors.Wrap(ctx.Err(), "retry interrupted")
			case <-timer.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return errors.Wrap(err, "unable to create request")
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errors.Wrap(err, "unable to send request")
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxAnswerBody))
		resp.Body.Close()

		if err != nil {
			return errors.Wrap(err, "unable to read response")
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return errors.Wrap(json.Unmarshal(data, dest), "unable to decode response")
		}

		text := string(data)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Body: text}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			apiErr.retryAfter = resp.Header.Get("Retry-After")
			lastErr = apiErr
		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = apiErr
		default:
			return apiErr
		}
	}

	return lastErr
}

// backoffDelay returns the wait before a retry: Retry-After when the server sent one, otherwise
// the base delay doubled at every attempt.
func (c *OpenAI) backoffDelay(attempt int, lastErr *APIError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}

	return c.backoff << (attempt - 1)
}

var _ Client = (*OpenAI)(nil)
