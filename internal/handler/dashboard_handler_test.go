package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/van-fee-api/internal/middleware"
	"github.com/noah-isme/van-fee-api/internal/models"
)

type fakeDashboardSrv struct {
	hit bool
}

func (f *fakeDashboardSrv) Summary(context.Context, string) (*models.DashboardSummary, bool, error) {
	return &models.DashboardSummary{StudentCount: 3, TotalPending: decimal.NewFromInt(1300)}, f.hit, nil
}

func TestDashboardHandlerSummary(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardSrv{hit: true})

	c, rec := testContext(http.MethodGet, "/dashboard", nil, "owner-1")
	middleware.WithResponseMeta()(c)
	h.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decode(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, string(envelope.Data), `"total_pending":"1300"`)
}

func TestDashboardHandlerRequiresOwner(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardSrv{})
	c, rec := testContext(http.MethodGet, "/dashboard", nil, "")
	h.Summary(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerWithoutService(t *testing.T) {
	h := NewDashboardHandler(nil)
	c, rec := testContext(http.MethodGet, "/dashboard", nil, "owner-1")
	h.Summary(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
