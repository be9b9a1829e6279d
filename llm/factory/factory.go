// Package factory provides a centralized factory for creating LLM Provider
// instances by name. It imports all provider sub-packages and maps string
// names to their constructors, breaking the import cycle that would occur
// if this logic lived in the llm package directly.
package factory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/genbridge/config"
	"github.com/BaSui01/genbridge/llm"
	"github.com/BaSui01/genbridge/llm/providers"
	"github.com/BaSui01/genbridge/llm/providers/echo"
	"github.com/BaSui01/genbridge/llm/providers/gemini"
	"github.com/BaSui01/genbridge/llm/providers/openai"
)

// NewProvider creates the Provider named by cfg.Provider.
//
// Supported names: gemini, openai, echo.
func NewProvider(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := providers.BaseProviderConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case config.ProviderGemini, "":
		p, err := gemini.NewGeminiProvider(ctx, providers.GeminiConfig{BaseProviderConfig: base}, logger)
		if err != nil {
			return nil, err
		}
		return p, nil

	case config.ProviderOpenAI:
		p, err := openai.NewOpenAIProvider(providers.OpenAIConfig{BaseProviderConfig: base}, logger)
		if err != nil {
			return nil, err
		}
		return p, nil

	case config.ProviderEcho:
		logger.Warn("using echo provider, responses are not generated by a model")
		return echo.NewEchoProvider(""), nil

	default:
		return nil, fmt.Errorf("unknown provider %q: supported providers are %s",
			cfg.Provider, strings.Join(SupportedProviders(), ", "))
	}
}

// SupportedProviders returns the list of built-in provider names.
func SupportedProviders() []string {
	return []string{config.ProviderGemini, config.ProviderOpenAI, config.ProviderEcho}
}
