package bulletin

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
)

// Size is the fixed number of bullets in a bulletin and cards in its expansion.
const Size = 12

type SourceArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

type Metadata struct {
	ArticlesFetched  int   `json:"guardianArticlesFetched"`
	ProcessingTimeMs int64 `json:"processingTimeMs"`
}

// Bulletin is the stage-one digest of the last 24 hours.
type Bulletin struct {
	ID             uuid.UUID       `json:"id"`
	Bullets        []string        `json:"bullets"`
	SourceArticles []SourceArticle `json:"sourceArticles"`
	GeneratedAt    time.Time       `json:"generatedAt"`
	Metadata       Metadata        `json:"metadata"`
}

// Card is the stage-two expansion of one bullet.
type Card struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func New(bullets []string, sources []SourceArticle, now time.Time, elapsed time.Duration) *Bulletin {
	return &Bulletin{
		ID:             uuid.New(),
		Bullets:        bullets,
		SourceArticles: sources,
		GeneratedAt:    now,
		Metadata: Metadata{
			ArticlesFetched:  len(sources),
			ProcessingTimeMs: elapsed.Milliseconds(),
		},
	}
}

// ValidateBullets rejects caller input that is not exactly Size non-empty bullets.
func ValidateBullets(bullets []string) error {
	if len(bullets) != Size {
		return apperr.InvalidQuery("bullets must be an array of %d strings, got %d", Size, len(bullets))
	}
	for i, b := range bullets {
		if strings.TrimSpace(b) == "" {
			return apperr.InvalidQuery("bullet %d is empty", i+1)
		}
	}
	return nil
}

// ValidateCards checks generated output against the expected cardinality.
func ValidateCards(cards []Card, want int) error {
	if len(cards) != want {
		return apperr.InvalidResponse("", fmt.Sprintf("expected %d cards, got %d", want, len(cards)))
	}
	for i, c := range cards {
		if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.Description) == "" {
			return apperr.InvalidResponse("", fmt.Sprintf("card %d is incomplete", i+1))
		}
	}
	return nil
}

// Fingerprint is a stable digest of the bullet list. Whitespace inside a bullet is collapsed,
// so cosmetic differences from clients map to the same stage-two entry; order is significant.
func Fingerprint(bullets []string) string {
	h := sha256.New()
	for i, b := range bullets {
		if i > 0 {
			h.Write([]byte{'\n'})
		}
		h.Write([]byte(strings.Join(strings.Fields(b), " ")))
	}
	return hex.EncodeToString(h.Sum(nil))
}
