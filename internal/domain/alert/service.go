package alert

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ocisus/oci/internal/domain/validity"
	"github.com/ocisus/oci/internal/platform/cache"
	"github.com/ocisus/oci/internal/platform/calendar"
)

// Deadline is one open regulatory deadline supplied by the request layer.
type Deadline struct {
	SubjectID uuid.UUID         `json:"subject_id"`
	Category  validity.Category `json:"category"`
	Kind      Kind              `json:"kind"`
	Due       time.Time         `json:"due"`
}

// DeadlineSource lists the open deadlines the dashboard is built from.
// The care-request service implements it.
type DeadlineSource interface {
	ListOpenDeadlines(ctx context.Context) ([]Deadline, error)
}

const dashboardCacheKey = "oci:alerts:dashboard"

// Service computes the severity-tagged alert dashboard.
type Service struct {
	source     DeadlineSource
	thresholds Thresholds
	store      cache.Store
	ttl        time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache enables dashboard caching with the given TTL.
func WithCache(store cache.Store, ttl time.Duration) ServiceOption {
	return func(s *Service) { s.store, s.ttl = store, ttl }
}

// WithThresholds overrides the default classification thresholds.
func WithThresholds(t Thresholds) ServiceOption {
	return func(s *Service) { s.thresholds = t }
}

// WithClock pins "today" for deterministic tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates an alert Service over the given deadline source.
func NewService(source DeadlineSource, logger zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		source:     source,
		thresholds: DefaultThresholds(),
		now:        calendar.Today,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dashboard returns all open alerts, critical first, then by days remaining.
// Severity is presentation only: it orders and colors lists and must never
// feed back into persisted state.
func (s *Service) Dashboard(ctx context.Context) ([]Record, error) {
	if s.store != nil {
		if raw, err := s.store.Get(ctx, dashboardCacheKey); err == nil {
			var cached []Record
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		} else if err != cache.ErrMiss {
			s.logger.Warn().Err(err).Msg("alert cache unavailable, recomputing")
		}
	}

	deadlines, err := s.source.ListOpenDeadlines(ctx)
	if err != nil {
		return nil, err
	}

	today := calendar.DateOnly(s.now())
	records := make([]Record, 0, len(deadlines))
	for _, d := range deadlines {
		days := calendar.DaysUntil(today, d.Due)
		records = append(records, Record{
			SubjectID:     d.SubjectID,
			Kind:          d.Kind,
			Category:      d.Category,
			DeadlineDate:  calendar.DateOnly(d.Due),
			DaysRemaining: days,
			Severity:      s.thresholds.Classify(days, d.Category, d.Kind),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Severity != records[j].Severity {
			return severityRank(records[i].Severity) < severityRank(records[j].Severity)
		}
		return records[i].DaysRemaining < records[j].DaysRemaining
	})

	if s.store != nil {
		if raw, err := json.Marshal(records); err == nil {
			if err := s.store.Set(ctx, dashboardCacheKey, raw, s.ttl); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache alert dashboard")
			}
		}
	}
	return records, nil
}

// Invalidate drops the cached dashboard. The request service calls it after
// any mutation that changes deadlines.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Delete(ctx, dashboardCacheKey)
}

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}
