package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/integrity"
	"github.com/stemsi/exam-portal/internal/response"
)

// Sweeper is implemented by service.SweeperService.
type Sweeper interface {
	Sweep(ctx context.Context) (integrity.Repair, error)
}

// MaintenanceHandler exposes operator actions to system admins.
type MaintenanceHandler struct {
	sweeper Sweeper
	log     zerolog.Logger
}

// NewMaintenanceHandler creates a new MaintenanceHandler.
func NewMaintenanceHandler(sweeper Sweeper, log zerolog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		sweeper: sweeper,
		log:     log.With().Str("component", "maintenance_handler").Logger(),
	}
}

// Sweep godoc
// POST /api/v1/maintenance/sweep
// Runs a full integrity sweep and reports what it repaired.
func (h *MaintenanceHandler) Sweep(c *gin.Context) {
	rep, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempts_deleted": len(rep.AttemptsToDelete),
		"answers_deleted":  len(rep.AnswersToDelete),
		"scores_updated":   len(rep.ScoreUpdates),
	})
}
