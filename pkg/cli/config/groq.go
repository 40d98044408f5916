package config

import (
	"context"
	"log/slog"

	gollm "github.com/guiperry/gollm_cerebras"
	gollmcfg "github.com/guiperry/gollm_cerebras/config"
	"github.com/guiperry/gollm_cerebras/llm"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/urfave/cli/v3"
)

// Groq holds chat-completion backend configuration
type Groq struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// Flags returns CLI flags for Groq configuration
func (g *Groq) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "groq-api-key",
			Usage:       "Groq API key",
			Category:    "Groq",
			Sources:     cli.EnvVars("KESTREL_GROQ_API_KEY"),
			Destination: &g.APIKey,
		},
		&cli.StringFlag{
			Name:        "groq-model",
			Usage:       "Groq model name",
			Category:    "Groq",
			Value:       "llama-3.3-70b-versatile",
			Sources:     cli.EnvVars("KESTREL_GROQ_MODEL"),
			Destination: &g.Model,
		},
		&cli.IntFlag{
			Name:        "groq-max-tokens",
			Usage:       "Maximum tokens per completion",
			Category:    "Groq",
			Value:       2048,
			Sources:     cli.EnvVars("KESTREL_GROQ_MAX_TOKENS"),
			Destination: &g.MaxTokens,
		},
	}
}

// Configure creates a Groq LLM client
func (g *Groq) Configure(ctx context.Context) (interfaces.LLMClient, error) {
	if !g.IsConfigured() {
		return nil, nil
	}

	instance, err := gollm.NewLLM(
		gollmcfg.SetProvider("groq"),
		gollmcfg.SetAPIKey(g.APIKey),
		gollmcfg.SetModel(g.Model),
		gollmcfg.SetMaxTokens(g.MaxTokens),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Groq client",
			goerr.V("model", g.Model))
	}

	return &groqAdapter{instance: instance}, nil
}

// ConfigureOptional creates a Groq client if configured, returns nil if not
func (g *Groq) ConfigureOptional(ctx context.Context) interfaces.LLMClient {
	logger := ctxlog.From(ctx)

	if !g.IsConfigured() {
		logger.Info("Groq not configured")
		return nil
	}

	client, err := g.Configure(ctx)
	if err != nil {
		logger.Warn("Failed to create Groq client", slog.Any("error", err))
		return nil
	}

	logger.Info("Configuring Groq LLM", slog.String("model", g.Model))
	return client
}

// IsConfigured checks if Groq is properly configured
func (g *Groq) IsConfigured() bool {
	return g.APIKey != ""
}

// LogValue returns structured log value
func (g Groq) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_api_key", g.APIKey != ""),
		slog.String("model", g.Model),
		slog.Int("max_tokens", g.MaxTokens),
	)
}

// groqAdapter adapts the gollm instance to interfaces.LLMClient
type groqAdapter struct {
	instance gollm.LLM
}

func (a *groqAdapter) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	reply, err := a.instance.Generate(ctx, llm.NewPrompt(prompt))
	if err != nil {
		return "", goerr.Wrap(err, "Groq generation failed")
	}
	return reply, nil
}
