// Package moonshot adapts the Moonshot (Kimi) chat completions API to the ADK
// model.LLM interface.
package moonshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const (
	DefaultBaseURL = "https://api.moonshot.ai/v1"
	DefaultModel   = "kimi-k2-turbo-preview"
)

// ErrEmptyResponse is returned when the API answers without choices.
var ErrEmptyResponse = errors.New("moonshot: empty choices")

// Config for Kimi
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// JSONMode asks the API for a single JSON object as the reply.
	JSONMode bool
	// Temperature overrides the request temperature when set.
	Temperature *float64
	HTTPClient  *http.Client
}

// KimiModel adapts Moonshot to the ADK model.LLM interface
type KimiModel struct {
	config Config
	client *http.Client
}

func NewModel(cfg Config) *KimiModel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &KimiModel{config: cfg, client: client}
}

func (m *KimiModel) Name() string {
	return m.config.Model
}

// GenerateContent adapts ADK requests to Kimi's OpenAI-compatible API. Streaming
// is not supported; a single response is yielded.
func (m *KimiModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    *float64          `json:"temperature,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (m *KimiModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	body := m.buildRequest(req)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("moonshot: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(m.config.BaseURL, "/")+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("moonshot: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("moonshot: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("moonshot: read response: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("moonshot: decode response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("moonshot: api error (status %d): %s", resp.StatusCode, result.Error.Message)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("moonshot: unexpected status %d", resp.StatusCode)
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	text := result.Choices[0].Message.Content
	parts := []*genai.Part{}
	if strings.TrimSpace(text) != "" {
		parts = append(parts, genai.NewPartFromText(text))
	}
	return &model.LLMResponse{
		Content: &genai.Content{Role: genai.RoleModel, Parts: parts},
	}, nil
}

func (m *KimiModel) buildRequest(req *model.LLMRequest) chatRequest {
	out := chatRequest{Model: m.config.Model}
	if req == nil {
		return out
	}

	if req.Config != nil {
		if system := joinText(req.Config.SystemInstruction); system != "" {
			out.Messages = append(out.Messages, chatMessage{Role: "system", Content: system})
		}
		if req.Config.Temperature != nil {
			t := float64(*req.Config.Temperature)
			out.Temperature = &t
		}
	}
	if m.config.Temperature != nil {
		out.Temperature = m.config.Temperature
	}
	if m.config.JSONMode {
		out.ResponseFormat = map[string]string{"type": "json_object"}
	}

	for _, content := range req.Contents {
		text := joinText(content)
		if text == "" {
			continue
		}
		out.Messages = append(out.Messages, chatMessage{Role: roleForContent(content.Role), Content: text})
	}
	return out
}

func roleForContent(role string) string {
	if role == genai.RoleModel {
		return "assistant"
	}
	return "user"
}

// joinText concatenates the text parts of content, one per line.
func joinText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if part == nil || strings.TrimSpace(part.Text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}
