package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/van-fee-api/internal/middleware"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
	"github.com/noah-isme/van-fee-api/pkg/response"
)

// ownerFromContext resolves the authenticated owner and writes a 401 when absent.
func ownerFromContext(c *gin.Context) (string, bool) {
	claims, ok := middleware.Claims(c)
	if !ok || claims.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

func withMeta(c *gin.Context, cacheHit *bool) map[string]interface{} {
	if cacheHit != nil {
		middleware.SetCacheHit(c, *cacheHit)
	}
	return middleware.ExtractMeta(c)
}
