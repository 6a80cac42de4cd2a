package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/van-fee-api/internal/models"
)

// DashboardService composes the owner's fee overview and caches it.
type DashboardService struct {
	ledger   ledgerLoader
	cache    *CacheService
	calendar Calendar
	ttl      time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(ledger ledgerLoader, cache *CacheService, calendar Calendar, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{ledger: ledger, cache: cache, calendar: calendar, ttl: ttl, logger: logger}
}

// Summary returns the dashboard and whether it was served from cache. A cached
// summary from an earlier business day is ignored.
func (s *DashboardService) Summary(ctx context.Context, ownerID string) (*models.DashboardSummary, bool, error) {
	key := dashboardCacheKey(ownerID)
	var cached models.DashboardSummary
	if s.cache.Get(ctx, key, &cached) && cached.Today == s.calendar.Today() {
		return &cached, true, nil
	}

	ledger, err := s.ledger.Load(ctx, ownerID)
	if err != nil {
		return nil, false, err
	}
	summary := Summarize(ledger)
	s.cache.Set(ctx, key, summary, s.ttl)
	return summary, false, nil
}

// Summarize aggregates a reconciled ledger.
func Summarize(ledger *models.Ledger) *models.DashboardSummary {
	summary := &models.DashboardSummary{
		Today:          ledger.Today,
		SchoolCount:    len(ledger.Schools),
		StudentCount:   len(ledger.Students),
		TotalPending:   decimal.Zero,
		TotalCollected: decimal.Zero,
		DueToday:       dueOn(ledger.Students, ledger.Today),
		Schools:        make([]models.SchoolSummary, 0, len(ledger.Schools)),
	}
	if summary.DueToday == nil {
		summary.DueToday = []models.Student{}
	}

	perSchool := make(map[string]int, len(ledger.Schools))
	for _, student := range ledger.Students {
		summary.TotalPending = summary.TotalPending.Add(student.PendingFees)
		summary.TotalCollected = summary.TotalCollected.Add(student.PaidFees)
		if student.PendingFees.IsPositive() {
			summary.UnpaidCount++
		}
		perSchool[student.SchoolID]++
	}
	for _, school := range ledger.Schools {
		summary.Schools = append(summary.Schools, models.SchoolSummary{School: school, StudentCount: perSchool[school.ID]})
	}
	return summary
}
