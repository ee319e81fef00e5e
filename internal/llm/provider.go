// Package llm suggests guessing categories for a playlist with a language model.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"songquiz/internal/core"
)

const (
	defaultTemperature = 0.7
	maxTokens          = 500
	maxSampleTracks    = 30
)

const systemPrompt = `You are the host of a music quiz party game. Players hear a song and must answer a question about it.
Given a sample of the playlist, propose short, fun categories the players could be asked (for example "Release year", "Artist", "Decade", "Name one band member").
Every category must be answerable from general music knowledge about the song that is playing.

Return JSON in this exact format:
{"categories": ["Category one", "Category two"]}

Respond with valid JSON only.`

// completer sends one system and user prompt pair and returns the raw text answer.
type completer interface {
	complete(ctx context.Context, system, user string) (string, error)
}

// Provider suggests guessing categories with the configured model. It is
// disabled when no provider is configured.
type Provider struct {
	config *core.LLMConfig
	logger *zap.Logger
	client completer
}

// NewProvider builds the client selected by config.Provider.
func NewProvider(config *core.LLMConfig, logger *zap.Logger) (*Provider, error) {
	var client completer
	var err error

	switch config.Provider {
	case "openai":
		client, err = NewOpenAIClient(config, logger)
	case "anthropic":
		client, err = NewAnthropicClient(config, logger)
	case "ollama":
		client, err = NewOllamaClient(config, logger)
	case "none", "":
		return &Provider{config: config, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", config.Provider, err)
	}

	return &Provider{
		config: config,
		logger: logger,
		client: client,
	}, nil
}

// Enabled reports whether a model is configured.
func (p *Provider) Enabled() bool {
	return p.client != nil
}

// SuggestCategories asks the model for up to count categories fitting the
// sampled tracks. Duplicates and blanks are dropped.
func (p *Provider) SuggestCategories(ctx context.Context, sample []core.TrackItem, count int) ([]string, error) {
	if p.client == nil {
		return nil, core.ErrLLMDisabled
	}
	if count <= 0 || (p.config.MaxSuggestions > 0 && count > p.config.MaxSuggestions) {
		count = p.config.MaxSuggestions
	}
	if count <= 0 {
		count = 5
	}

	content, err := p.client.complete(ctx, systemPrompt, buildUserPrompt(sample, count))
	if err != nil {
		p.logger.Error("Category suggestion failed", zap.String("provider", p.config.Provider), zap.Error(err))
		return nil, err
	}

	categories, err := parseCategories(content, count)
	if err != nil {
		p.logger.Error("Failed to parse category suggestions", zap.Error(err), zap.String("content", content))
		return nil, err
	}

	p.logger.Info("Categories suggested",
		zap.String("provider", p.config.Provider),
		zap.Strings("categories", categories))

	return categories, nil
}

func buildUserPrompt(sample []core.TrackItem, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest %d categories for a playlist containing:\n", count)

	for i, track := range sample {
		if i == maxSampleTracks {
			break
		}
		fmt.Fprintf(&b, "- %s - %s", strings.Join(track.Artists, ", "), track.Name)
		if track.ReleaseYear != "" {
			fmt.Fprintf(&b, " (%s)", track.ReleaseYear)
		}
		b.WriteByte('\n')
	}

	return b.String()
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

func parseCategories(content string, count int) ([]string, error) {
	content = strings.TrimSpace(content)
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		content = content[start : end+1]
	}

	var response categoriesResponse
	if err := json.Unmarshal([]byte(content), &response); err != nil {
		return nil, fmt.Errorf("failed to parse categories: %w", err)
	}

	seen := make(map[string]bool)
	categories := make([]string, 0, len(response.Categories))
	for _, category := range response.Categories {
		category = strings.TrimSpace(category)
		key := strings.ToLower(category)
		if category == "" || seen[key] {
			continue
		}
		seen[key] = true
		categories = append(categories, category)
		if len(categories) == count {
			break
		}
	}

	if len(categories) == 0 {
		return nil, fmt.Errorf("model returned no categories")
	}

	return categories, nil
}
