package chat

import (
	"strings"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// MaxHistory bounds the number of prior turns forwarded upstream.
const MaxHistory = 20

// Validate rejects an empty prompt and unknown roles, and trims history to MaxHistory turns.
func Validate(message string, history []Message) ([]Message, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.InvalidQuery("message is required")
	}
	for i, m := range history {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return nil, apperr.InvalidQuery("history[%d] has unknown role %q", i, m.Role)
		}
	}
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	return history, nil
}

type Reply struct {
	Message string `json:"message"`
}
