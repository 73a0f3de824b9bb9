package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PratikDhanave/passcount/internal/models"
	"github.com/PratikDhanave/passcount/internal/signaling"
	"github.com/PratikDhanave/passcount/internal/store"
)

// RegisterSignalingRoutes registers the rendezvous endpoint.
//
// POST /api/signaling {"type": ..., "connectionId": ..., "payload": ...}
// - Publish operations answer {"success": true}
// - Fetch operations answer immediately with null/[] when nothing is there yet;
//   callers poll
// - Unknown type or a missing or invalid payload answer 400
func RegisterSignalingRoutes(r gin.IRoutes, h *signaling.Handler, logger *zap.Logger) {
	r.POST("/api/signaling", func(c *gin.Context) {
		var req models.SignalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid JSON payload"})
			return
		}

		resp, err := h.Handle(req)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrClosed):
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "shutting down"})
			return
		case errors.Is(err, signaling.ErrUnknownOperation),
			errors.Is(err, signaling.ErrMissingPayload),
			errors.Is(err, signaling.ErrInvalidPayload):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		default:
			logger.Error("signaling operation failed",
				zap.String("type", string(req.Type)),
				zap.String("connection_id", req.ConnectionID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "signaling failed"})
			return
		}

		logger.Debug("signaling",
			zap.String("type", string(req.Type)),
			zap.String("connection_id", req.ConnectionID))
		c.Data(http.StatusOK, "application/json; charset=utf-8", resp.AppendJSON(nil))
	})
}
