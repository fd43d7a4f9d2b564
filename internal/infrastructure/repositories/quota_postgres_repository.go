package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
)

type quotaRow struct {
	Identity      string    `db:"identity"`
	WindowCount   int       `db:"window_count"`
	WindowResetAt time.Time `db:"window_reset_at"`
	DailyCount    int       `db:"daily_count"`
	DailyResetAt  time.Time `db:"daily_reset_at"`
}

func (r quotaRow) counter() *quota.Counter {
	return &quota.Counter{
		Identity:      r.Identity,
		WindowCount:   r.WindowCount,
		WindowResetAt: r.WindowResetAt,
		DailyCount:    r.DailyCount,
		DailyResetAt:  r.DailyResetAt,
	}
}

const seedQuotaSQL = `
INSERT INTO quota_counters (identity, window_count, window_reset_at, daily_count, daily_reset_at)
VALUES ($1, 0, $2, 0, $3)
ON CONFLICT (identity) DO NOTHING`

// The row lock taken by UPDATE serializes concurrent callers; the WHERE clause is
// re-evaluated against the committed row, so a rejected call changes nothing.
const chargeQuotaSQL = `
UPDATE quota_counters SET
	window_count    = CASE WHEN $2::timestamptz > window_reset_at THEN 1 ELSE window_count + 1 END,
	window_reset_at = CASE WHEN $2::timestamptz > window_reset_at THEN $3::timestamptz ELSE window_reset_at END,
	daily_count     = CASE WHEN $2::timestamptz > daily_reset_at THEN 1 ELSE daily_count + 1 END,
	daily_reset_at  = CASE WHEN $2::timestamptz > daily_reset_at THEN $4::timestamptz ELSE daily_reset_at END,
	updated_at      = $2::timestamptz
WHERE identity = $1
	AND ($5::int <= 0 OR (CASE WHEN $2::timestamptz > window_reset_at THEN 0 ELSE window_count END) < $5::int)
	AND ($6::int <= 0 OR (CASE WHEN $2::timestamptz > daily_reset_at THEN 0 ELSE daily_count END) < $6::int)
RETURNING identity, window_count, window_reset_at, daily_count, daily_reset_at`

const selectQuotaSQL = `
SELECT identity, window_count, window_reset_at, daily_count, daily_reset_at
FROM quota_counters WHERE identity = $1`

// ErrQuotaContended reports a charge that kept racing concurrent rollovers.
var ErrQuotaContended = errors.New("quota counter contended")

// QuotaPostgresRepository stores counters as rows that are never deleted.
type QuotaPostgresRepository struct {
	db *sqlx.DB
}

func NewQuotaPostgresRepository(db *sqlx.DB) *QuotaPostgresRepository {
	return &QuotaPostgresRepository{db: db}
}

func (repo *QuotaPostgresRepository) CheckAndIncrement(ctx context.Context, identity string, limits quota.Limits, policy quota.Policy, now time.Time) (*quota.Counter, quota.Decision, error) {
	windowReset := policy.NextWindowReset(now)
	dailyReset := policy.NextDailyReset(now)

	if _, err := repo.db.ExecContext(ctx, seedQuotaSQL, identity, windowReset, dailyReset); err != nil {
		return nil, quota.Decision{}, fmt.Errorf("seed quota counter: %w", err)
	}

	// A rejected charge whose row no longer rejects was raced by a rollover from another
	// caller; charge again once.
	for attempt := 0; attempt < 2; attempt++ {
		var row quotaRow
		err := repo.db.GetContext(ctx, &row, chargeQuotaSQL, identity, now, windowReset, dailyReset, limits.WindowMax, limits.DailyMax)
		if err == nil {
			return row.counter(), quota.Decision{Allowed: true}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, quota.Decision{}, fmt.Errorf("charge quota counter: %w", err)
		}

		// Rejected: derive the scope and retry hint from the current row without writing.
		if err := repo.db.GetContext(ctx, &row, selectQuotaSQL, identity); err != nil {
			return nil, quota.Decision{}, fmt.Errorf("load quota counter: %w", err)
		}
		c, d := quota.Evaluate(*row.counter(), limits, policy, now)
		if !d.Allowed {
			return &c, d, nil
		}
	}
	return nil, quota.Decision{}, fmt.Errorf("charge quota counter %s: %w", identity, ErrQuotaContended)
}

func (repo *QuotaPostgresRepository) Get(ctx context.Context, identity string) (*quota.Counter, bool, error) {
	var row quotaRow
	err := repo.db.GetContext(ctx, &row, selectQuotaSQL, identity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load quota counter: %w", err)
	}
	return row.counter(), true, nil
}
