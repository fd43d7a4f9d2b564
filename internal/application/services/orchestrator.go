package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/apperr"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/cache"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

const (
	NoteGenerationFailed = "fresh data generation failed"
	NoteQuotaExceeded    = "quota exceeded, serving cached data"

	OutcomeFreshHit   = "fresh_hit"
	OutcomeMiss       = "miss"
	OutcomeStaleQuota = "stale_quota"
	OutcomeStaleError = "stale_error"
	OutcomeError      = "error"
)

var tracer = otel.Tracer("github.com/Hafiz-Al-Shams/news-nexus/services")

// Orchestrator resolves requests through cache, quota and provider. At most one upstream
// load per key is in flight in this process; concurrent callers share its result.
type Orchestrator struct {
	store   ports.EntryStore
	quota   ports.QuotaService
	metrics ports.MetricsRecorder
	logger  *logrus.Logger
	timeout time.Duration
	sf      singleflight.Group
}

var _ ports.Orchestrator = (*Orchestrator)(nil)

func NewOrchestrator(store ports.EntryStore, quota ports.QuotaService, metrics ports.MetricsRecorder, timeout time.Duration, logger *logrus.Logger) *Orchestrator {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Orchestrator{store: store, quota: quota, metrics: metrics, logger: logger, timeout: timeout}
}

// flight is what the leader of a singleflight group hands its followers.
type flight struct {
	entry  *cache.Entry
	cached bool
}

func (o *Orchestrator) Resolve(ctx context.Context, req ports.FetchRequest) (*ports.Outcome, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "orchestrator.resolve")
	defer span.End()
	span.SetAttributes(attribute.String("kind", req.Kind), attribute.String("cache.key", req.Key))

	out, outcome, err := o.resolve(ctx, req)

	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.CodeOf(err)))
	}
	o.metrics.ResolveOutcome(req.Kind, outcome, time.Since(start))
	return out, err
}

func (o *Orchestrator) resolve(ctx context.Context, req ports.FetchRequest) (*ports.Outcome, string, error) {
	if req.Identity == "" {
		return nil, OutcomeError, apperr.Unauthenticated("identity is required")
	}
	if strings.TrimSpace(req.Key) == "" || req.Load == nil {
		return nil, OutcomeError, apperr.InvalidQuery("cache key and loader are required")
	}

	entry, state := o.read(ctx, req.Key)
	if state == cache.Fresh {
		return fromEntry(entry, false, ""), OutcomeFreshHit, nil
	}

	if _, err := o.quota.CheckAndIncrement(ctx, req.Identity, req.Limits); err != nil {
		if apperr.CodeOf(err) == apperr.CodeQuotaExceeded && state == cache.Stale {
			o.logger.WithFields(logrus.Fields{"kind": req.Kind, "key": req.Key, "identity": req.Identity}).
				Info("Quota exhausted, serving stale entry")
			return fromEntry(entry, true, NoteQuotaExceeded), OutcomeStaleQuota, nil
		}
		return nil, OutcomeError, err
	}

	v, err, shared := o.sf.Do(req.Key, func() (any, error) {
		// Another flight may have filled the entry while this caller was being charged.
		if e, st := o.read(ctx, req.Key); st == cache.Fresh {
			return flight{entry: e, cached: true}, nil
		}
		payload, err := o.load(ctx, req)
		if err != nil {
			return nil, err
		}
		e, err := o.store.Put(context.WithoutCancel(ctx), req.Key, payload, req.TTL)
		if err != nil {
			o.logger.WithFields(logrus.Fields{"kind": req.Kind, "key": req.Key}).WithError(err).Warn("Cache write failed")
			now := time.Now()
			e = &cache.Entry{Key: req.Key, Payload: payload, FetchedAt: now, ExpiresAt: now.Add(req.TTL), HardExpiresAt: now.Add(req.TTL)}
		}
		return flight{entry: e}, nil
	})
	if err != nil {
		fields := logrus.Fields{"kind": req.Kind, "key": req.Key, "code": apperr.CodeOf(err)}
		if state == cache.Stale {
			o.logger.WithFields(fields).WithError(err).Warn("Upstream failed, serving stale entry")
			return fromEntry(entry, true, NoteGenerationFailed), OutcomeStaleError, nil
		}
		o.logger.WithFields(fields).WithError(err).Error("Upstream failed with no cached fallback")
		return nil, OutcomeError, err
	}

	f, ok := v.(flight)
	if !ok {
		return nil, OutcomeError, apperr.Wrap(apperr.CodeUnknown, "", fmt.Errorf("unexpected type from singleflight result"))
	}
	if f.cached {
		return fromEntry(f.entry, false, ""), OutcomeFreshHit, nil
	}
	o.logger.WithFields(logrus.Fields{"kind": req.Kind, "key": req.Key, "shared": shared}).Debug("Resolved from upstream")
	fetched, expires := f.entry.FetchedAt, f.entry.ExpiresAt
	return &ports.Outcome{
		Payload:   f.entry.Payload,
		Freshness: ports.Freshness{FromCache: false, CachedAt: &fetched, ExpiresAt: &expires},
	}, OutcomeMiss, nil
}

// read degrades backend failures to Absent.
func (o *Orchestrator) read(ctx context.Context, key string) (*cache.Entry, cache.State) {
	e, st, err := o.store.Get(ctx, key)
	if err != nil {
		o.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("Cache read failed, treating as miss")
		return nil, cache.Absent
	}
	return e, st
}

// load runs on a context detached from the caller so one cancelled request does not fail
// its followers; it is bounded by the provider timeout instead.
func (o *Orchestrator) load(ctx context.Context, req ports.FetchRequest) ([]byte, error) {
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()

	payload, err := req.Load(lctx)
	if err == nil {
		return payload, nil
	}
	if _, tagged := apperr.As(err); tagged {
		return nil, err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(lctx.Err(), context.DeadlineExceeded) {
		return nil, apperr.UpstreamUnavailable("", fmt.Errorf("%s: %w", req.Kind, err))
	}
	return nil, apperr.Wrap(apperr.CodeUnknown, "", err)
}

func fromEntry(e *cache.Entry, stale bool, note string) *ports.Outcome {
	cachedAt, expiresAt := e.FetchedAt, e.ExpiresAt
	return &ports.Outcome{
		Payload: e.Payload,
		Freshness: ports.Freshness{
			FromCache: true,
			Stale:     stale,
			CachedAt:  &cachedAt,
			ExpiresAt: &expiresAt,
			Note:      note,
		},
	}
}

// resolveJSON runs req through o with a typed loader and decodes the resulting payload.
func resolveJSON[T any](ctx context.Context, o ports.Orchestrator, req ports.FetchRequest, load func(ctx context.Context) (*T, error)) (*T, ports.Freshness, error) {
	req.Load = func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeUnknown, "", fmt.Errorf("encode %s payload: %w", req.Kind, err))
		}
		return b, nil
	}
	out, err := o.Resolve(ctx, req)
	if err != nil {
		return nil, ports.Freshness{}, err
	}
	var v T
	if err := json.Unmarshal(out.Payload, &v); err != nil {
		return nil, ports.Freshness{}, apperr.Wrap(apperr.CodeUnknown, "", fmt.Errorf("decode %s payload: %w", req.Kind, err))
	}
	return &v, out.Freshness, nil
}
