package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/trestleworks/planledger/internal/apperrors"
	"github.com/trestleworks/planledger/internal/core/domain"
	portssvc "github.com/trestleworks/planledger/internal/core/ports/services"
	"github.com/trestleworks/planledger/internal/dto"
	"github.com/trestleworks/planledger/internal/middleware"
)

// ErrorResponse is a generic error response structure for handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse carries the full list of posting issues for a
// rejected hold, commit or rollback.
type ValidationErrorResponse struct {
	Error  string                   `json:"error"`
	Issues []apperrors.PostingIssue `json:"issues,omitempty"`
}

// planHandler handles HTTP requests related to plans.
type planHandler struct {
	planService portssvc.PlanSvcFacade
}

// newPlanHandler creates a new planHandler.
func newPlanHandler(ps portssvc.PlanSvcFacade) *planHandler {
	return &planHandler{
		planService: ps,
	}
}

// registerPlanRoutes registers routes related to plans.
func registerPlanRoutes(rg *gin.RouterGroup, planService portssvc.PlanSvcFacade) {
	h := newPlanHandler(planService)

	plans := rg.Group("/plans")
	{
		plans.POST("/:planID/hold", h.holdBatch)
		plans.POST("/:planID/commit", h.commitPlan)
		plans.POST("/:planID/rollback", h.rollbackPlan)
		plans.GET("/:planID", h.getPlan)
	}
}

// respondWithLedgerError maps service errors onto the transport contract.
func respondWithLedgerError(c *gin.Context, logger *slog.Logger, err error, op string) {
	var postingErr *apperrors.InvalidPostingParamsError
	switch {
	case errors.As(err, &postingErr):
		logger.Warn("Posting validation failed", slog.String("op", op), slog.Int("issues", len(postingErr.Issues)))
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{Error: apperrors.ErrInvalidPostingParams.Error(), Issues: postingErr.Issues})
	case errors.Is(err, apperrors.ErrInvalidPostingParams):
		logger.Warn("Posting validation failed", slog.String("op", op), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Resource not found", slog.String("op", op), slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrNotReady):
		logger.Warn("Replica not ready for requested clock", slog.String("op", op), slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("op", op), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		logger.Error("Service call failed", slog.String("op", op), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to " + op})
	}
}

// holdBatch godoc
// @Summary Record a posting batch under a plan
// @Description Records a batch of postings under the plan, creating the plan and any referenced accounts as needed. Re-submitting an identical batch is a no-op; a terminal plan accepts the call without effect.
// @Tags plans
// @Accept json
// @Produce json
// @Param planID path string true "Plan ID"
// @Param batch body dto.HoldRequest true "Batch to record"
// @Success 200 {object} dto.HoldResponse
// @Failure 400 {object} ValidationErrorResponse "Malformed or mismatched postings"
// @Failure 500 {object} ErrorResponse
// @Router /plans/{planID}/hold [post]
func (h *planHandler) holdBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	planID := c.Param("planID")

	var req dto.HoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Hold", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	clock, err := h.planService.Hold(c.Request.Context(), planID, req.ToDomainBatch())
	if err != nil {
		respondWithLedgerError(c, logger, err, "hold batch")
		return
	}

	c.JSON(http.StatusOK, dto.HoldResponse{
		PlanID:  planID,
		BatchID: req.BatchID,
		Clock:   dto.ToClockPayload(clock),
	})
}

// commitPlan godoc
// @Summary Commit a plan
// @Description Validates the submitted batches against the recorded ones and commits the plan. Committing an already terminal plan returns the plan's clock without effect.
// @Tags plans
// @Accept json
// @Produce json
// @Param planID path string true "Plan ID"
// @Param plan body dto.FinalizePlanRequest true "Caller's view of the plan"
// @Success 200 {object} dto.FinalizePlanResponse
// @Failure 400 {object} ValidationErrorResponse "Submitted batches do not match recorded ones"
// @Failure 409 {object} ErrorResponse "Replica cannot satisfy the requested clock"
// @Failure 500 {object} ErrorResponse
// @Router /plans/{planID}/commit [post]
func (h *planHandler) commitPlan(c *gin.Context) {
	h.finalizePlan(c, "commit plan", h.planService.CommitPlan)
}

// rollbackPlan godoc
// @Summary Roll back a plan
// @Description Validates the submitted batches against the recorded ones and rolls the plan back. Rolling back an already terminal plan returns the plan's clock without effect.
// @Tags plans
// @Accept json
// @Produce json
// @Param planID path string true "Plan ID"
// @Param plan body dto.FinalizePlanRequest true "Caller's view of the plan"
// @Success 200 {object} dto.FinalizePlanResponse
// @Failure 400 {object} ValidationErrorResponse "Submitted batches do not match recorded ones"
// @Failure 409 {object} ErrorResponse "Replica cannot satisfy the requested clock"
// @Failure 500 {object} ErrorResponse
// @Router /plans/{planID}/rollback [post]
func (h *planHandler) rollbackPlan(c *gin.Context) {
	h.finalizePlan(c, "rollback plan", h.planService.RollbackPlan)
}

// finalizePlan is the shared commit/rollback flow; only the service call
// differs.
func (h *planHandler) finalizePlan(c *gin.Context, op string, finalize func(ctx context.Context, plan domain.Plan, clock domain.Clock) (domain.Clock, error)) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	planID := c.Param("planID")

	var req dto.FinalizePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for "+op, slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	clock, err := finalize(c.Request.Context(), req.ToDomainPlan(planID), req.Clock.ToDomainClock())
	if err != nil {
		respondWithLedgerError(c, logger, err, op)
		return
	}

	c.JSON(http.StatusOK, dto.FinalizePlanResponse{
		PlanID: planID,
		Clock:  dto.ToClockPayload(clock),
	})
}

// getPlan godoc
// @Summary Get a plan by ID
// @Description Retrieves a plan with all its recorded batches and postings.
// @Tags plans
// @Produce json
// @Param planID path string true "Plan ID"
// @Success 200 {object} dto.PlanResponse
// @Failure 404 {object} ErrorResponse "Plan not found"
// @Failure 500 {object} ErrorResponse
// @Router /plans/{planID} [get]
func (h *planHandler) getPlan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	planID := c.Param("planID")

	plan, err := h.planService.GetPlanByID(c.Request.Context(), planID)
	if err != nil {
		respondWithLedgerError(c, logger, err, "get plan")
		return
	}

	c.JSON(http.StatusOK, dto.ToPlanResponse(plan))
}
