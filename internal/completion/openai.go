package completion

import (
	"context"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// ErrNoContent is returned when the backend answers without any choice or
// with an empty message body.
var ErrNoContent = errors.New("completion: empty response")

// OpenAIConfig configures the OpenAI-backed Provider.
//
// Fields:
//   - APIKey: bearer token for api.openai.com (or a compatible gateway).
//   - Model: model name, e.g. "gpt-4o".
//   - BaseURL: optional override for OpenAI-compatible gateways.
//   - RPS / Burst: outbound rate guard; zero values disable the guard.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	RPS     float64
	Burst   int
}

// OpenAIProvider implements Provider on top of the official OpenAI client.
// An optional token-bucket limiter throttles outbound calls so a burst of
// chat traffic cannot run up the completion bill unbounded.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	limiter *rate.Limiter
}

// NewOpenAIProvider builds a provider from cfg.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	p := &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return p
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, msgs []Message, opts Options) (string, int, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", 0, err
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: toOpenAIMessages(msgs),
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(opts.MaxTokens)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", 0, err
	}
	if len(resp.Choices) == 0 {
		return "", 0, ErrNoContent
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", 0, ErrNoContent
	}
	return text, int(resp.Usage.TotalTokens), nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
