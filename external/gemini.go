package external

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"policydesk-backend/models"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultModel is the Gemini model used when none is configured
const DefaultModel = "gemini-2.0-flash"

// ErrEmptyGeneration is returned when the model produced no text
var ErrEmptyGeneration = errors.New("generation returned empty content")

// GenerateRequest is one call to the generation service. History holds the
// prior conversation; Prompt is the final user message.
type GenerateRequest struct {
	SystemInstruction string
	History           []models.Turn
	Prompt            string
	Temperature       float32
}

// Generator is the generation service contract
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GeminiGenerator calls Gemini through the genai SDK
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGeminiClient creates a genai client authenticated with apiKey
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiGenerator creates a generator over client. Each call is bounded by timeout.
func NewGeminiGenerator(client *genai.Client, model string, timeout time.Duration, logger *zap.Logger) *GeminiGenerator {
	if model == "" {
		model = DefaultModel
	}
	return &GeminiGenerator{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "gemini_generator")),
	}
}

// Generate runs one chat turn over the request history.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	model := g.client.GenerativeModel(g.model)
	if req.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemInstruction))
	}
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}

	cs := model.StartChat()
	cs.History = toContents(req.History)

	start := time.Now()
	resp, err := cs.SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		ce := classifyGemini(err)
		g.logger.Warn("generation call failed",
			zap.String("kind", string(ce.Kind)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ce
	}

	text := responseText(resp)
	if text == "" {
		return "", &CallError{Service: ServiceGeneration, Kind: KindMalformed, Err: ErrEmptyGeneration}
	}
	g.logger.Debug("generation call completed", zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

// toContents maps conversation turns onto Gemini roles. Gemini requires
// alternating roles, so consecutive turns of the same role are merged.
func toContents(turns []models.Turn) []*genai.Content {
	var out []*genai.Content
	for _, t := range turns {
		role := "user"
		if t.Role == models.RoleAssistant {
			role = "model"
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, genai.Text(t.Content))
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Content)}})
	}
	return out
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func classifyGemini(err error) *CallError {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &CallError{Service: ServiceGeneration, Kind: KindMalformed, Err: err}
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &CallError{Service: ServiceGeneration, Kind: KindStatus, StatusCode: apiErr.Code, Err: err}
	}
	return classify(ServiceGeneration, err)
}
