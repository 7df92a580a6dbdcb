package inference_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/askiada/phylobench/internal/inference"
)

var testRequest = inference.Request{
	Image:        []byte("png"),
	MIMEType:     "image/png",
	Instructions: "be precise",
	Prompt:       "describe",
}

func chatAnswer(content string) string {
	data, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
	})

	return string(data)
}

func TestOpenAIRequest(t *testing.T) {
	t.Parallel()

	var (
		gotAuth string
		gotBody map[string]any
		gotPath string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(chatAnswer(" ((A,B),C); ")))
	}))
	defer srv.Close()

	client := inference.NewOpenAI(srv.URL+"/v1/", "secret", "gpt-test", inference.WithTemperature(0))

	answer, err := client.Extract(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, "((A,B),C);", answer)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "gpt-test", gotBody["model"])
	assert.InDelta(t, 0.0, gotBody["temperature"], 1e-9)

	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	user, ok := messages[1].(map[string]any)
	require.True(t, ok)

	parts, ok := user["content"].([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)

	image, ok := parts[1].(map[string]any)["image_url"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "data:image/png;base64,cG5n", image["url"])
}

func TestOpenAIRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))

			return
		}

		_, _ = w.Write([]byte(chatAnswer("(A,B);")))
	}))
	defer srv.Close()

	client := inference.NewOpenAI(srv.URL, "tok", "", inference.WithBackoff(time.Millisecond))

	answer, err := client.Extract(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, "(A,B);", answer)
	assert.EqualValues(t, 3, calls.Load())
}

func TestOpenAIHonoursRetryAfter(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		_, _ = w.Write([]byte(chatAnswer("(A,B);")))
	}))
	defer srv.Close()

	client := inference.NewOpenAI(srv.URL, "tok", "", inference.WithBackoff(time.Hour))

	start := time.Now()
	_, err := client.Extract(context.Background(), testRequest)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
	assert.Less(t, time.Since(start), time.Minute)
}

func TestOpenAIGivesUp(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer srv.Close()

	client := inference.NewOpenAI(srv.URL, "tok", "", inference.WithBackoff(time.Millisecond))

	_, err := client.Extract(context.Background(), testRequest)
	require.Error(t, err)

	var apiErr *inference.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Len(t, apiErr.Body, 512)
	assert.EqualValues(t, 4, calls.Load())
}

func TestOpenAIClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad image"}`))
	}))
	defer srv.Close()

	_, err := inference.NewOpenAI(srv.URL, "tok", "").Extract(context.Background(), testRequest)

	var apiErr *inference.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.EqualValues(t, 1, calls.Load())
}

func TestOpenAIEmptyAnswer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := inference.NewOpenAI(srv.URL, "tok", "").Extract(context.Background(), testRequest)
	assert.ErrorIs(t, err, inference.ErrEmptyResponse)
}

func TestOpenAICancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := inference.NewOpenAI(srv.URL, "tok", "", inference.WithBackoff(time.Hour)).Extract(ctx, testRequest)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type fakeGenerator struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	answer   string
	err      error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config

	if f.err != nil {
		return nil, f.err
	}

	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: f.answer}}}}},
	}, nil
}

func TestGemini(t *testing.T) {
	t.Parallel()

	fake := &fakeGenerator{answer: "((A,B),C);\n"}
	gemini := inference.NewGeminiWithGenerator(fake, "")

	answer, err := gemini.Extract(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, "((A,B),C);", answer)
	assert.Equal(t, inference.DefaultGeminiModel, fake.model)

	require.Len(t, fake.contents, 1)
	parts := fake.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "describe", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte("png"), parts[1].InlineData.Data)

	require.NotNil(t, fake.config.SystemInstruction)
	assert.Equal(t, "be precise", fake.config.SystemInstruction.Parts[0].Text)
}

func TestGeminiEmptyAnswer(t *testing.T) {
	t.Parallel()

	_, err := inference.NewGeminiWithGenerator(&fakeGenerator{answer: "  "}, "m").Extract(context.Background(), testRequest)
	assert.ErrorIs(t, err, inference.ErrEmptyResponse)
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	_, err := inference.NewClient(context.Background(), inference.Settings{Backend: "openai"})
	assert.ErrorIs(t, err, inference.ErrMissingAPIKey)

	_, err = inference.NewClient(context.Background(), inference.Settings{Backend: "claude", APIKey: "k"})
	assert.ErrorIs(t, err, inference.ErrUnknownBackend)

	client, err := inference.NewClient(context.Background(), inference.Settings{Backend: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &inference.OpenAI{}, client)
}
