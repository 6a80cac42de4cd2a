package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/van-fee-api/internal/models"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
)

func snapshot() models.ImportRequest {
	return models.ImportRequest{
		Schools: []models.ImportSchool{
			{ID: "local-1", Name: "Green Valley"},
			{ID: "local-2", Name: "green valley "},
			{ID: "local-3", Name: "Hill Top"},
		},
		Students: []models.ImportStudent{
			{
				SchoolID:       "local-2",
				Name:           "Asha",
				ParentPhone:    "98765 43210",
				AdmissionDate:  "2024-01-15",
				LastBilledDate: "2024-03-15",
				TotalFees:      decimal.NewFromInt(500),
				PaidFees:       decimal.NewFromInt(700),
				PendingFees:    decimal.NewFromInt(300),
				PaymentHistory: []models.ImportPayment{
					{Amount: decimal.NewFromInt(400), Date: "2024-03-01"},
					{Amount: decimal.NewFromInt(300), Date: "2024-02-01"},
				},
			},
			{
				SchoolID:      "local-3",
				Name:          "Ravi",
				ParentPhone:   "98765 00000",
				AdmissionDate: "2024-04-01",
				TotalFees:     decimal.NewFromInt(400),
			},
		},
	}
}

func TestImportServiceImportsIntoEmptyAccount(t *testing.T) {
	store := newLedgerStore()
	cache := newMemoryCache()
	svc := NewImportService(store, store, NewCacheService(cache, nil, 0, nil, true), nil, nil)

	result, err := svc.Import(context.Background(), "owner", snapshot())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Schools)
	assert.Equal(t, 2, result.Students)
	assert.Equal(t, []string{"dashboard:owner"}, cache.deleted)

	byName := map[string]models.Student{}
	for _, st := range store.students {
		byName[st.Name] = st
	}
	asha := byName["Asha"]
	ravi := byName["Ravi"]
	assert.Equal(t, "Green Valley", store.schools[asha.SchoolID].Name)
	assert.Equal(t, "Hill Top", store.schools[ravi.SchoolID].Name)
	assert.Equal(t, "owner", store.schools[asha.SchoolID].OwnerID)

	assert.Equal(t, day(2024, 3, 15), asha.LastBilledDate)
	assert.True(t, decimal.NewFromInt(300).Equal(asha.PendingFees))
	require.Len(t, asha.PaymentHistory, 2)
	require.NotNil(t, asha.LastPaidDate)
	assert.Equal(t, day(2024, 3, 1), *asha.LastPaidDate)

	assert.Equal(t, ravi.AdmissionDate, ravi.LastBilledDate)
	assert.Nil(t, ravi.LastPaidDate)
}

func TestImportServiceRejectsNonEmptyAccount(t *testing.T) {
	store := newLedgerStore()
	store.addSchool("owner", "s1", "Existing")
	svc := NewImportService(store, store, NewCacheService(nil, nil, 0, nil, false), nil, nil)

	_, err := svc.Import(context.Background(), "owner", snapshot())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Zero(t, store.imported)
}

func TestImportServiceRejectsInvalidStudents(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.ImportStudent)
		code   string
	}{
		{"unknown school", func(s *models.ImportStudent) { s.SchoolID = "nowhere" }, appErrors.ErrValidation.Code},
		{"checkpoint before admission", func(s *models.ImportStudent) { s.LastBilledDate = "2023-12-15" }, appErrors.ErrInvalidDate.Code},
		{"negative pending", func(s *models.ImportStudent) { s.PendingFees = decimal.NewFromInt(-1) }, appErrors.ErrInvalidAmount.Code},
		{"zero payment", func(s *models.ImportStudent) { s.PaymentHistory[0].Amount = decimal.Zero }, appErrors.ErrInvalidAmount.Code},
		{"bad payment date", func(s *models.ImportStudent) { s.PaymentHistory[1].Date = "yesterday" }, appErrors.ErrInvalidDate.Code},
		{"month first payment date", func(s *models.ImportStudent) { s.PaymentHistory[1].Date = "2/13/2024" }, appErrors.ErrInvalidDate.Code},
		{"paid total mismatch", func(s *models.ImportStudent) { s.PaidFees = decimal.NewFromInt(99999) }, appErrors.ErrValidation.Code},
		{"negative paid total", func(s *models.ImportStudent) { s.PaidFees = decimal.NewFromInt(-1) }, appErrors.ErrValidation.Code},
		{"missing name", func(s *models.ImportStudent) { s.Name = "" }, appErrors.ErrValidation.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newLedgerStore()
			svc := NewImportService(store, store, NewCacheService(nil, nil, 0, nil, false), nil, nil)
			req := snapshot()
			tc.mutate(&req.Students[0])

			_, err := svc.Import(context.Background(), "owner", req)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
			assert.Zero(t, store.imported)
		})
	}
}

func TestImportServiceAcceptsLocallyFormattedRecords(t *testing.T) {
	store := newLedgerStore()
	svc := NewImportService(store, store, NewCacheService(nil, nil, 0, nil, false), nil, nil)
	req := models.ImportRequest{
		Schools: []models.ImportSchool{{ID: "1700000000000", Name: "Green Valley"}},
		Students: []models.ImportStudent{{
			SchoolID:       "1700000000000",
			Name:           "Meera",
			ParentPhone:    "9876543210",
			AdmissionDate:  "2024-01-31",
			LastBilledDate: "2024-03-02",
			TotalFees:      decimal.NewFromInt(600),
			PaidFees:       decimal.NewFromInt(900),
			PendingFees:    decimal.NewFromInt(300),
			PaymentHistory: []models.ImportPayment{
				{Amount: decimal.NewFromInt(600), Date: "1/3/2024"},
				{Amount: decimal.NewFromInt(300), Date: "15/02/2024"},
			},
			LastPaidDate: "1/3/2024",
		}},
	}

	result, err := svc.Import(context.Background(), "owner", req)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Students)

	var meera models.Student
	for _, st := range store.students {
		meera = st
	}
	assert.Equal(t, day(2024, 2, 29), meera.LastBilledDate)
	require.Len(t, meera.PaymentHistory, 2)
	assert.Equal(t, day(2024, 3, 1), meera.PaymentHistory[0].Date)
	assert.Equal(t, day(2024, 2, 15), meera.PaymentHistory[1].Date)
	require.NotNil(t, meera.LastPaidDate)
	assert.Equal(t, day(2024, 3, 1), *meera.LastPaidDate)
	assert.True(t, decimal.NewFromInt(900).Equal(meera.PaidFees))
}

func TestImportServiceReportsFailingStudentOnce(t *testing.T) {
	store := newLedgerStore()
	svc := NewImportService(store, store, NewCacheService(nil, nil, 0, nil, false), nil, nil)
	req := snapshot()
	req.Students[1].AdmissionDate = "someday"

	_, err := svc.Import(context.Background(), "owner", req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidDate.Code, appErr.Code)
	assert.True(t, strings.HasPrefix(appErr.Message, "students[1]: "))
	assert.Equal(t, 1, strings.Count(err.Error(), `"someday"`))
}

func TestImportServiceStorageFailure(t *testing.T) {
	store := newLedgerStore()
	store.importErr = errStorage
	svc := NewImportService(store, store, NewCacheService(nil, nil, 0, nil, false), nil, nil)

	_, err := svc.Import(context.Background(), "owner", snapshot())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
