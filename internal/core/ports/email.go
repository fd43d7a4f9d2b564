package ports

import (
	"context"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/bulletin"
)

// DigestMailer delivers a bulletin digest by email.
type DigestMailer interface {
	SendBulletinDigest(ctx context.Context, to string, b *bulletin.Bulletin, cards []bulletin.Card) error
}
