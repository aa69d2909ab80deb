package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teacher-dashboard-api/internal/middleware"
	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/teacher-dashboard-api/pkg/errors"
	"github.com/noah-isme/teacher-dashboard-api/pkg/response"
)

// currentUserID writes a 401 and returns false when the request carries no claims.
func currentUserID(c *gin.Context) (string, bool) {
	claims := middleware.CurrentUser(c)
	if claims == nil || claims.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}
