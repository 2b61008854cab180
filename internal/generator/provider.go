package generator

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/tutor-crm/backend/internal/models"
)

// Provider is a single AI backend tier. Invoke performs one blocking call;
// there is no retry at this layer — failures surface to the caller.
type Provider interface {
	Name() string
	CostMultiplier() int
	Invoke(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// Resolver maps a provider tier to a usable Provider.
type Resolver interface {
	Resolve(tier models.ProviderTier) (Provider, error)
}

// Config holds all provider credentials and model names. It is built once
// at startup and injected; nothing in this package reads globals after that.
type Config struct {
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string

	LowModel  string
	MidModel  string
	HighModel string

	// Generation is slow; the timeout is deliberately generous.
	Timeout time.Duration

	// UseMock short-circuits every tier to canned output for local dev.
	UseMock bool
}

func ConfigFromEnv() Config {
	return Config{
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		LowModel:        getEnv("OPENAI_MODEL_LOW", "gpt-4o-mini"),
		MidModel:        getEnv("OPENAI_MODEL_MID", "gpt-4o"),
		HighModel:       getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
		Timeout:         60 * time.Second,
		UseMock:         os.Getenv("MOCK_GENERATOR") == "true",
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// Tier cost multipliers: the credit accountant multiplies the base cost by
// the multiplier of the tier that served the request.
const (
	lowMultiplier  = 1
	midMultiplier  = 2
	highMultiplier = 5
)

// TierMultiplier returns the credit multiplier for a tier without touching
// credentials, so cost can be quoted before a provider is resolved.
func TierMultiplier(tier models.ProviderTier) int {
	switch tier {
	case models.ProviderMid:
		return midMultiplier
	case models.ProviderHigh:
		return highMultiplier
	default:
		return lowMultiplier
	}
}

// Registry resolves provider tiers against the configured credentials.
type Registry struct {
	cfg Config
}

func NewRegistry(cfg Config) *Registry {
	if cfg.UseMock {
		log.Println("Generator registry using mock providers")
	}
	return &Registry{cfg: cfg}
}

// Resolve returns the Provider for a tier, or ErrProviderUnavailable when
// the tier's credential is absent. No side effects.
func (r *Registry) Resolve(tier models.ProviderTier) (Provider, error) {
	if r.cfg.UseMock {
		return NewMockProvider(string(tier), TierMultiplier(tier)), nil
	}

	switch tier {
	case models.ProviderLow:
		if r.cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("tier %q: OPENAI_API_KEY not set: %w", tier, ErrProviderUnavailable)
		}
		return newOpenAIProvider(r.cfg, r.cfg.LowModel, lowMultiplier), nil
	case models.ProviderMid:
		if r.cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("tier %q: OPENAI_API_KEY not set: %w", tier, ErrProviderUnavailable)
		}
		return newOpenAIProvider(r.cfg, r.cfg.MidModel, midMultiplier), nil
	case models.ProviderHigh:
		if r.cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("tier %q: ANTHROPIC_API_KEY not set: %w", tier, ErrProviderUnavailable)
		}
		return newAnthropicProvider(r.cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider tier %q: %w", tier, ErrProviderUnavailable)
	}
}

// ── Anthropic provider (high tier) ─────────────────────────

type anthropicProvider struct {
	client *anthropic.Client
	model  string
}

func newAnthropicProvider(cfg Config) *anthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.AnthropicAPIKey),
		option.WithRequestTimeout(cfg.Timeout),
	)
	return &anthropicProvider{client: &client, model: cfg.HighModel}
}

func (p *anthropicProvider) Name() string        { return "anthropic/" + p.model }
func (p *anthropicProvider) CostMultiplier() int { return highMultiplier }

func (p *anthropicProvider) Invoke(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   8192,
		Temperature: param.NewOpt(0.8),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		log.Printf("Anthropic call failed (model %s): %v", p.model, err)
		return "", ErrRequestFailed
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	log.Printf("Anthropic response had no text content (model %s)", p.model)
	return "", ErrRequestFailed
}
