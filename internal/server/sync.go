package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	ingestdomain "github.com/learnsprout/sproutlink/internal/ingest/domain"
	"go.uber.org/zap"
)

type syncResponse struct {
	Success   bool                        `json:"success"`
	Processed int                         `json:"processed"`
	Skipped   int                         `json:"skipped"`
	Failed    []ingestdomain.OrderFailure `json:"failed"`
}

// TriggerOrderSync runs a sync pass on demand. It takes the same redis
// lock as the scheduled run, so a manual trigger during a slow
// scheduled pass reports conflict instead of interleaving.
func (s *Server) TriggerOrderSync(c *gin.Context) {
	ctx := c.Request.Context()

	lockToken, ok, err := s.limiter.TryLockSync(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !ok {
		AbortWithError(c, ErrConflict)
		return
	}
	defer func() {
		if err := s.limiter.ReleaseSync(context.WithoutCancel(ctx), lockToken); err != nil {
			s.log.Warn("sync lock release failed", zap.Error(err))
		}
	}()

	report, err := s.ingestSvc.SyncOrders(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, syncResponse{
		Success:   true,
		Processed: report.Processed,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
	})
}
