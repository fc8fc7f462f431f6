package cmd

import (
	"github.com/nextlevelbuilder/goclaw/internal/config"
	"github.com/nextlevelbuilder/goclaw/internal/providers"
)

// registerProviders wires every provider with a configured API key into reg.
// OpenAI-compatible providers (OpenRouter, Groq, DeepSeek, Mistral, xAI,
// MiniMax) share the OpenAI client with their own base URL; Anthropic and
// DashScope (Qwen/Gemini-compatible) get their native clients.
func registerProviders(reg *providers.Registry, cfg *config.Config) {
	p := cfg.Providers

	if p.Anthropic.APIKey != "" {
		reg.Register("anthropic", providers.NewAnthropicProvider(p.Anthropic.APIKey))
	}
	if p.OpenAI.APIKey != "" {
		reg.Register("openai", providers.NewOpenAIProvider("openai", p.OpenAI.APIKey, p.OpenAI.APIBase, "gpt-4o"))
	}
	if p.OpenRouter.APIKey != "" {
		base := p.OpenRouter.APIBase
		if base == "" {
			base = "https://openrouter.ai/api/v1"
		}
		reg.Register("openrouter", providers.NewOpenAIProvider("openrouter", p.OpenRouter.APIKey, base, "anthropic/claude-3.5-sonnet"))
	}
	if p.Groq.APIKey != "" {
		base := p.Groq.APIBase
		if base == "" {
			base = "https://api.groq.com/openai/v1"
		}
		reg.Register("groq", providers.NewOpenAIProvider("groq", p.Groq.APIKey, base, "llama-3.3-70b-versatile"))
	}
	if p.DeepSeek.APIKey != "" {
		base := p.DeepSeek.APIBase
		if base == "" {
			base = "https://api.deepseek.com/v1"
		}
		reg.Register("deepseek", providers.NewOpenAIProvider("deepseek", p.DeepSeek.APIKey, base, "deepseek-chat"))
	}
	if p.Mistral.APIKey != "" {
		base := p.Mistral.APIBase
		if base == "" {
			base = "https://api.mistral.ai/v1"
		}
		reg.Register("mistral", providers.NewOpenAIProvider("mistral", p.Mistral.APIKey, base, "mistral-large-latest"))
	}
	if p.XAI.APIKey != "" {
		base := p.XAI.APIBase
		if base == "" {
			base = "https://api.x.ai/v1"
		}
		reg.Register("xai", providers.NewOpenAIProvider("xai", p.XAI.APIKey, base, "grok-2-latest"))
	}
	if p.MiniMax.APIKey != "" {
		base := p.MiniMax.APIBase
		if base == "" {
			base = "https://api.minimax.chat/v1"
		}
		reg.Register("minimax", providers.NewOpenAIProvider("minimax", p.MiniMax.APIKey, base, "abab6.5s-chat"))
	}
	if p.Gemini.APIKey != "" {
		base := p.Gemini.APIBase
		if base == "" {
			base = "https://generativelanguage.googleapis.com/v1beta/openai"
		}
		reg.Register("gemini", providers.NewOpenAIProvider("gemini", p.Gemini.APIKey, base, "gemini-2.0-flash"))
	}
	if p.Cohere.APIKey != "" {
		base := p.Cohere.APIBase
		if base == "" {
			base = "https://api.cohere.ai/compatibility/v1"
		}
		reg.Register("cohere", providers.NewOpenAIProvider("cohere", p.Cohere.APIKey, base, "command-r-plus"))
	}
	if p.Perplexity.APIKey != "" {
		base := p.Perplexity.APIBase
		if base == "" {
			base = "https://api.perplexity.ai"
		}
		reg.Register("perplexity", providers.NewOpenAIProvider("perplexity", p.Perplexity.APIKey, base, "sonar-pro"))
	}
}
