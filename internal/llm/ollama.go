package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaProvider uses the native Ollama chat API with a JSON schema format.
type OllamaProvider struct {
	client *api.Client
	model  string
}

func NewOllamaProvider(cfg ProviderConfig) (*OllamaProvider, error) {
	if cfg.Model == "" {
		return nil, errors.New("ollama provider: model is required")
	}
	var client *api.Client
	if cfg.BaseURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama provider: %w", err)
		}
		client = c
	} else {
		// The native API lives at the root, not under /v1.
		base := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("ollama provider: parse base url %q: %w", cfg.BaseURL, err)
		}
		client = api.NewClient(u, &http.Client{Timeout: cfg.Timeout})
	}
	return &OllamaProvider{client: client, model: cfg.Model}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: string(m.Role), Content: m.Content})
	}

	stream := false
	chat := &api.ChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}
	if req.Schema != nil {
		format, err := json.Marshal(req.Schema)
		if err != nil {
			return "", fmt.Errorf("encode schema: %w", err)
		}
		chat.Format = format
	}

	var content strings.Builder
	err := p.client.Chat(ctx, chat, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return content.String(), nil
}
