package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/mergematrix/internal/observability/logger"
	"go.uber.org/zap"
)

const headerAdminToken = "x-admin-token"

type setTierRequest struct {
	Email     string `json:"email"`
	IsPremium *bool  `json:"isPremium"`
}

// AdminRequired hides the admin routes unless ADMIN_TOKEN is configured.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := strings.TrimSpace(s.cfg.AdminToken)
		if expected == "" {
			AbortWithError(c, ErrNotFound)
			return
		}

		provided := strings.TrimSpace(c.GetHeader(headerAdminToken))
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			logger.FromContext(c.Request.Context()).Warn("admin token rejected",
				zap.String("token", logger.MaskToken(provided)),
			)
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Next()
	}
}

func (s *Server) SetAccountTier(c *gin.Context) {
	var req setTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
		return
	}
	if req.IsPremium == nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	status, err := s.generationSvc.SetPremium(c.Request.Context(), req.Email, *req.IsPremium)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("account tier updated",
		zap.String("tier", string(status.Tier())),
	)
	c.JSON(http.StatusOK, status)
}
