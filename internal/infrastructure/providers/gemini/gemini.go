// Package gemini implements ports.TextGenerator over the Gemini generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/chat"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/providers"
)

const name = "gemini"

var errorStatuses = map[string]apperr.Code{
	"RESOURCE_EXHAUSTED":  apperr.CodeRateLimited,
	"UNAVAILABLE":         apperr.CodeUpstreamUnavailable,
	"DEADLINE_EXCEEDED":   apperr.CodeUpstreamUnavailable,
	"INTERNAL":            apperr.CodeUpstreamUnavailable,
	"INVALID_ARGUMENT":    apperr.CodeInvalidQuery,
	"FAILED_PRECONDITION": apperr.CodeInvalidQuery,
	"PERMISSION_DENIED":   apperr.CodeUnauthorized,
	"UNAUTHENTICATED":     apperr.CodeUnauthorized,
}

type Client struct {
	baseURL string
	apiKey  string
	model   string
	caller  *providers.Caller
	logger  *logrus.Logger
}

var _ ports.TextGenerator = (*Client)(nil)

func NewClient(baseURL, apiKey, model string, caller *providers.Caller, logger *logrus.Logger) *Client {
	caller.Provider = name
	caller.Table = providers.ErrorTable{Provider: name, ByCode: errorStatuses}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		caller:  caller,
		logger:  logger,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ThinkingConfig   *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (c *Client) GenerateText(ctx context.Context, prompt string, history []chat.Message) (string, error) {
	contents := make([]content, 0, len(history)+1)
	for _, m := range history {
		role := "user"
		if m.Role == chat.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: prompt}}})
	return c.generate(ctx, contents, "")
}

func (c *Client) GenerateStructured(ctx context.Context, prompt string, out any) error {
	text, err := c.generate(ctx, []content{{Role: "user", Parts: []part{{Text: prompt}}}}, "application/json")
	if err != nil {
		return err
	}
	return providers.DecodeStructured(name, text, out)
}

func (c *Client) GenerateList(ctx context.Context, prompt string, n int) ([]string, error) {
	text, err := c.generate(ctx, []content{{Role: "user", Parts: []part{{Text: prompt}}}}, "")
	if err != nil {
		return nil, err
	}
	return providers.ParseList(name, text, n)
}

func (c *Client) generate(ctx context.Context, contents []content, mime string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			ResponseMimeType: mime,
			ThinkingConfig:   &thinkingConfig{ThinkingBudget: 0},
		},
	})
	if err != nil {
		return "", apperr.Wrap(apperr.CodeUnknown, name, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Wrap(apperr.CodeUnknown, name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.caller.Do(ctx, req, decodeError)
	if err != nil {
		return "", err
	}

	var body generateResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", apperr.InvalidResponse(name, fmt.Sprintf("decode response: %v", err))
	}
	if reason := body.PromptFeedback.BlockReason; reason != "" {
		return "", apperr.InvalidResponse(name, "prompt blocked: "+reason)
	}
	if len(body.Candidates) == 0 {
		return "", apperr.InvalidResponse(name, "no candidates returned")
	}

	var sb strings.Builder
	for _, p := range body.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", apperr.InvalidResponse(name, "empty candidate, finish reason "+body.Candidates[0].FinishReason)
	}
	c.logger.WithFields(logrus.Fields{
		"provider": name,
		"model":    c.model,
		"chars":    len(text),
	}).Debug("Generation completed")
	return text, nil
}

func decodeError(body []byte) (string, string) {
	var e struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return "", ""
	}
	return e.Error.Status, e.Error.Message
}
