package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/mergematrix/internal/observability/logger"
	"github.com/smallbiznis/mergematrix/internal/storage"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"
)

var errNoStore = errors.New("no store configured")

func (s *Server) Health(c *gin.Context) {
	ctx, cancel := storage.WithTimeout(c.Request.Context(), s.cfg.StoreTimeout)
	defer cancel()

	if err := s.pingStore(ctx); err != nil {
		logger.FromContext(ctx).Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) pingStore(ctx context.Context) error {
	switch {
	case s.mongo != nil:
		return s.mongo.Client().Ping(ctx, readpref.Primary())
	case s.db != nil:
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	default:
		return errNoStore
	}
}
