package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/mergematrix/internal/observability/context"
)

const headerUserEmail = "x-user-email"

// CallerIdentity exposes the x-user-email header to request-scoped logging.
func CallerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity := strings.TrimSpace(c.GetHeader(headerUserEmail)); identity != "" {
			c.Request = c.Request.WithContext(obscontext.WithIdentity(c.Request.Context(), identity))
		}
		c.Next()
	}
}

func (s *Server) GetGenerations(c *gin.Context) {
	status, err := s.generationSvc.GetStatus(c.Request.Context(), c.GetHeader(headerUserEmail))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) RecordGeneration(c *gin.Context) {
	status, err := s.generationSvc.RecordConsumption(c.Request.Context(), c.GetHeader(headerUserEmail))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
