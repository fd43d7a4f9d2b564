package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/chat"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

// ChatService forwards conversations upstream. Replies depend on history, so nothing is cached;
// each call is charged against the caller's quota.
type ChatService struct {
	gen    ports.TextGenerator
	quota  ports.QuotaService
	limits quota.Limits
	logger *logrus.Logger
}

var _ ports.ChatService = (*ChatService)(nil)

func NewChatService(gen ports.TextGenerator, quota ports.QuotaService, limits quota.Limits, logger *logrus.Logger) *ChatService {
	return &ChatService{gen: gen, quota: quota, limits: limits, logger: logger}
}

func (s *ChatService) Reply(ctx context.Context, identity, message string, history []chat.Message) (*chat.Reply, error) {
	if identity == "" {
		return nil, apperr.Unauthenticated("identity is required")
	}
	history, err := chat.Validate(message, history)
	if err != nil {
		return nil, err
	}
	if _, err := s.quota.CheckAndIncrement(ctx, identity, s.limits); err != nil {
		return nil, err
	}
	text, err := s.gen.GenerateText(ctx, strings.TrimSpace(message), history)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"identity": identity, "code": apperr.CodeOf(err)}).WithError(err).Error("Chat generation failed")
		return nil, err
	}
	return &chat.Reply{Message: text}, nil
}
