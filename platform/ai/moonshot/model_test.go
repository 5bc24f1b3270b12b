package moonshot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func TestGenerateContentSendsSystemInstructionAndJSONMode(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"zones\":[\"Palermo\"]}"}}]}`))
	}))
	defer srv.Close()

	m := NewModel(Config{APIKey: "secret", BaseURL: srv.URL, JSONMode: true})
	req := &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText("busco en Palermo", genai.RoleUser)},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("extract fields", genai.RoleUser),
		},
	}

	var text string
	for resp, err := range m.GenerateContent(context.Background(), req, false) {
		require.NoError(t, err)
		text = joinText(resp.Content)
	}

	assert.Equal(t, `{"zones":["Palermo"]}`, text)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat["type"])
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestGenerateContentReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	m := NewModel(Config{APIKey: "k", BaseURL: srv.URL})
	for _, err := range m.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	}
}

func TestGenerateContentEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	m := NewModel(Config{BaseURL: srv.URL})
	for _, err := range m.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		assert.ErrorIs(t, err, ErrEmptyResponse)
	}
}

func TestRoleMapping(t *testing.T) {
	assert.Equal(t, "assistant", roleForContent(genai.RoleModel))
	assert.Equal(t, "user", roleForContent(genai.RoleUser))
}
