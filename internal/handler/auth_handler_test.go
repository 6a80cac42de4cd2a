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

type fakeAuthSrv struct {
	registerErr error
	loginReq    models.LoginRequest
	profileID   string
}

func (f *fakeAuthSrv) Register(_ context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.LoginResponse{AccessToken: "tok", User: models.UserInfo{Email: req.Email}}, nil
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.loginReq = req
	return &models.LoginResponse{AccessToken: "tok"}, nil
}

func (f *fakeAuthSrv) Profile(_ context.Context, userID string) (*models.UserInfo, error) {
	f.profileID = userID
	return &models.UserInfo{ID: userID, Email: "owner@example.com"}, nil
}

func TestAuthHandlerRegister(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{})
	c, rec := testContext(http.MethodPost, "/auth/register", models.RegisterRequest{Email: "a@b.co", Password: "secret1", FullName: "A"}, "")

	h.Register(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"access_token":"tok"`)
}

func TestAuthHandlerRegisterConflict(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{registerErr: appErrors.Clone(appErrors.ErrConflict, "email already registered")})
	c, rec := testContext(http.MethodPost, "/auth/register", models.RegisterRequest{Email: "a@b.co", Password: "secret1", FullName: "A"}, "")

	h.Register(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decode(t, rec).Error.Code)
}

func TestAuthHandlerLoginRejectsMalformedBody(t *testing.T) {
	h := NewAuthHandler(&fakeAuthSrv{})
	c, rec := testContext(http.MethodPost, "/auth/login", "{", "")

	h.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerLoginCapturesClientInfo(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv)
	c, rec := testContext(http.MethodPost, "/auth/login", models.LoginRequest{Email: "a@b.co", Password: "x"}, "")
	c.Request.Header.Set("User-Agent", "van-app/1.0")

	h.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "van-app/1.0", srv.loginReq.UserAgent)
}

func TestAuthHandlerMe(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv)

	c, rec := testContext(http.MethodGet, "/auth/me", nil, "")
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = testContext(http.MethodGet, "/auth/me", nil, "owner-1")
	h.Me(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner-1", srv.profileID)
}
