// Package agent implements the language-model collaborators of the
// qualification orchestrator on top of ADK agents backed by Kimi.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"converzia_backend/platform/ai/moonshot"
)

// Config selects the model used by every agent.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

func (c Config) model(jsonMode bool) *moonshot.KimiModel {
	return moonshot.NewModel(moonshot.Config{
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
		Model:    c.Model,
		JSONMode: jsonMode,
	})
}

// singleTurn runs one prompt per fresh session and returns the concatenated
// text of the final events. Runs share no state and may overlap.
type singleTurn struct {
	runner         *runner.Runner
	sessionService session.Service
	appName        string
}

func newSingleTurn(appName string, cfg llmagent.Config) (*singleTurn, error) {
	adkAgent, err := llmagent.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: create agent: %w", appName, err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: create runner: %w", appName, err)
	}
	return &singleTurn{runner: r, sessionService: sessionService, appName: appName}, nil
}

func (s *singleTurn) run(ctx context.Context, userID, prompt string) (string, error) {
	sessionID := uuid.New().String()
	_, err := s.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   s.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("%s: create session: %w", s.appName, err)
	}
	defer func() {
		_ = s.sessionService.Delete(context.Background(), &session.DeleteRequest{
			AppName:   s.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}

	var out strings.Builder
	for event, err := range s.runner.Run(ctx, userID, sessionID, userMessage, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return "", fmt.Errorf("%s: run failed: %w", s.appName, err)
		}
		if event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			out.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(out.String()), nil
}
