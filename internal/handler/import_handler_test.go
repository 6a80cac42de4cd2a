package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/van-fee-api/internal/models"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
)

type fakeImportSrv struct {
	req models.ImportRequest
	err error
}

func (f *fakeImportSrv) Import(_ context.Context, _ string, req models.ImportRequest) (*models.ImportResult, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.ImportResult{Schools: len(req.Schools), Students: len(req.Students)}, nil
}

func TestImportHandlerImport(t *testing.T) {
	srv := &fakeImportSrv{}
	h := NewImportHandler(srv)

	body := `{"schools":[{"id":"1","name":"Green Valley"}],"students":[{"school_id":"1","name":"Asha","parent_phone":"9876543210","admission_date":"2024-01-15","last_billed_date":"2024-03-15","total_fees":500,"paid_fees":"700","pending_fees":300,"payment_history":[{"amount":400,"date":"2024-03-01"}]}]}`
	c, rec := testContext(http.MethodPost, "/imports", body, "owner-1")
	h.Import(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, srv.req.Students, 1)
	assert.Equal(t, "700", srv.req.Students[0].PaidFees.String())
	assert.Equal(t, "2024-03-01", srv.req.Students[0].PaymentHistory[0].Date)
	assert.Contains(t, string(decode(t, rec).Data), `"students":1`)
}

func TestImportHandlerConflict(t *testing.T) {
	h := NewImportHandler(&fakeImportSrv{err: appErrors.Clone(appErrors.ErrConflict, "account already holds data")})
	c, rec := testContext(http.MethodPost, "/imports", `{"schools":[],"students":[]}`, "owner-1")
	h.Import(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
