package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/staymatch/backend/internal/storage/models"
)

// DefaultTimeout bounds every oracle round-trip. Calls that exceed it fail.
const DefaultTimeout = 60 * time.Second

// Config configures an OpenAI-compatible chat completion endpoint.
type Config struct {
	APIKey        string
	BaseURL       string // empty for api.openai.com
	Model         string
	Temperature   float32
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// chatClient is the part of *openai.Client the oracle uses.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIOracle resolves terms, dates and whole requests with a chat model.
// Calls block until answered or timed out and are never retried.
type OpenAIOracle struct {
	client      chatClient
	model       string
	temperature float32
	timeout     time.Duration
	limiter     *rate.Limiter
}

// NewOpenAIOracle creates an oracle for the configured endpoint.
func NewOpenAIOracle(cfg Config) *OpenAIOracle {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newOpenAIOracle(openai.NewClientWithConfig(clientCfg), cfg)
}

func newOpenAIOracle(client chatClient, cfg Config) *OpenAIOracle {
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return &OpenAIOracle{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		limiter:     rate.NewLimiter(limit, cfg.Burst),
	}
}

const termPrompt = "You map words from a vacation rental search onto a fixed vocabulary. " +
	"Given a field name, a list of valid values and a user term, pick the single valid value " +
	"that means the same thing or is the closest real-world match. " +
	`Reply with JSON only: {"match": "<one valid value, copied exactly>"} or {"match": ""} if none fits.`

const datePrompt = "You convert date expressions into ISO dates. " +
	"If the expression has no year, use the default year given. " +
	`Reply with JSON only: {"date": "YYYY-MM-DD"} or {"date": ""} if it is not a date.`

const extractPrompt = "You are an assistant for an Airbnb-like vacation property search. " +
	"Parse the user request into a JSON object with these fields: " +
	"location (string, city or region), " +
	"environment (string, e.g. mountains, beach, urban), " +
	"type (string, optional, e.g. cabin, condo), " +
	"group_size (integer, number of guests), " +
	"price_min (number, optional), " +
	"price_max (number, optional), " +
	"features (array of strings, optional), " +
	"tags (array of strings, optional), " +
	"start_date (string, YYYY-MM-DD, optional), " +
	"end_date (string, YYYY-MM-DD, optional). " +
	"Omit fields the user did not mention. Return only the JSON object."

// ResolveTerm asks the model for the vocabulary entry closest to term.
func (o *OpenAIOracle) ResolveTerm(ctx context.Context, term, field string, vocabulary []string) (string, error) {
	values, _ := json.Marshal(vocabulary)
	user := fmt.Sprintf("Field: %s\nValid values: %s\nUser term: %q", field, values, term)

	var out struct {
		Match string `json:"match"`
	}
	if err := o.complete(ctx, termPrompt, user, &out); err != nil {
		return "", fmt.Errorf("resolving %s term %q: %w", field, term, err)
	}
	return strings.TrimSpace(out.Match), nil
}

// ResolveDate asks the model for the ISO form of a date expression.
func (o *OpenAIOracle) ResolveDate(ctx context.Context, text string, defaultYear int) (string, error) {
	user := fmt.Sprintf("Default year: %d\nExpression: %q", defaultYear, text)

	var out struct {
		Date string `json:"date"`
	}
	if err := o.complete(ctx, datePrompt, user, &out); err != nil {
		return "", fmt.Errorf("resolving date %q: %w", text, err)
	}

	date := strings.TrimSpace(out.Date)
	if date == "" {
		return "", nil
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return "", fmt.Errorf("%w: date oracle returned %q", ErrUnavailable, date)
	}
	return date, nil
}

// ExtractRequest parses a free-text request into raw request fields.
func (o *OpenAIOracle) ExtractRequest(ctx context.Context, text string) (models.RawRequest, error) {
	var raw models.RawRequest
	if err := o.complete(ctx, extractPrompt, text, &raw); err != nil {
		return models.RawRequest{}, fmt.Errorf("extracting request: %w", err)
	}
	return raw, nil
}

// complete runs one chat completion and decodes the JSON object in the reply.
func (o *OpenAIOracle) complete(ctx context.Context, system, user string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if err := o.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: o.temperature,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	if err := decodeReply(resp.Choices[0].Message.Content, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// decodeReply pulls the outermost JSON object out of a model reply, which may
// be wrapped in prose or a code fence.
func decodeReply(raw string, out any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return fmt.Errorf("no JSON object in reply %q", raw)
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), out); err != nil {
		return fmt.Errorf("decoding reply: %w", err)
	}
	return nil
}
