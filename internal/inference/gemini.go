package inference

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ContentGenerator is the part of the genai models service used by Gemini.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini sends requests to the Gemini API.
type Gemini struct {
	models      ContentGenerator
	model       string
	temperature float32
}

// NewGemini creates a Gemini client from settings.
func NewGemini(ctx context.Context, settings Settings) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  settings.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to create genai client")
	}

	gemini := NewGeminiWithGenerator(client.Models, settings.Model)
	if settings.Temperature != nil {
		gemini.temperature = *settings.Temperature
	}

	return gemini, nil
}

// NewGeminiWithGenerator creates a Gemini client over an existing generator.
func NewGeminiWithGenerator(models ContentGenerator, model string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}

	return &Gemini{models: models, model: model}
}

// Extract sends the image inline along with the prompt.
func (g *Gemini) Extract(ctx context.Context, req Request) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.Prompt),
			genai.NewPartFromBytes(req.Image, req.MIMEType),
		}, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}

	if req.Instructions != "" {
		config.SystemInstruction = genai.NewContentFromText(req.Instructions, genai.RoleUser)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", errors.Wrapf(err, "gemini %s request failed", g.model)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.Wrapf(ErrEmptyResponse, "gemini %s", g.model)
	}

	return text, nil
}

var _ Client = (*Gemini)(nil)
