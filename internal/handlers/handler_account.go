package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	portssvc "github.com/trestleworks/planledger/internal/core/ports/services"
	"github.com/trestleworks/planledger/internal/dto"
	"github.com/trestleworks/planledger/internal/middleware"
	"github.com/trestleworks/planledger/internal/utils/clocktoken"
)

// accountHandler handles HTTP requests related to accounts and balances.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
	balanceService portssvc.BalanceSvcFacade
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(as portssvc.AccountSvcFacade, bs portssvc.BalanceSvcFacade) *accountHandler {
	return &accountHandler{
		accountService: as,
		balanceService: bs,
	}
}

// registerAccountRoutes registers routes related to accounts.
func registerAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade, balanceService portssvc.BalanceSvcFacade) {
	h := newAccountHandler(accountService, balanceService)

	accounts := rg.Group("/accounts")
	{
		accounts.GET("/:accountID", h.getAccount)
		accounts.GET("/:accountID/balance", h.getBalance)
	}
}

// getAccount godoc
// @Summary Get an account by ID
// @Description Retrieves an account. The optional clock token pins the read to a causal timestamp; absent means latest.
// @Tags accounts
// @Produce json
// @Param accountID path string true "Account ID"
// @Param clock query string false "Base64 clock token"
// @Success 200 {object} dto.AccountResponse
// @Failure 400 {object} ErrorResponse "Malformed clock token"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Failure 409 {object} ErrorResponse "Replica cannot satisfy the requested clock"
// @Failure 500 {object} ErrorResponse
// @Router /accounts/{accountID} [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")

	clock, err := clocktoken.Decode(c.Query("clock"))
	if err != nil {
		logger.Warn("Failed to decode clock token", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	account, err := h.accountService.GetAccountByID(c.Request.Context(), accountID, clock)
	if err != nil {
		respondWithLedgerError(c, logger, err, "get account")
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// getBalance godoc
// @Summary Get an account balance
// @Description Derives the account's own, minimum available and maximum available amounts from every posting referencing it, as of the requested clock.
// @Tags accounts
// @Produce json
// @Param accountID path string true "Account ID"
// @Param clock query string false "Base64 clock token"
// @Success 200 {object} dto.BalanceResponse
// @Failure 400 {object} ErrorResponse "Malformed clock token"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Failure 409 {object} ErrorResponse "Replica cannot satisfy the requested clock"
// @Failure 500 {object} ErrorResponse
// @Router /accounts/{accountID}/balance [get]
func (h *accountHandler) getBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")

	clock, err := clocktoken.Decode(c.Query("clock"))
	if err != nil {
		logger.Warn("Failed to decode clock token", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	balance, err := h.balanceService.GetBalanceByID(c.Request.Context(), accountID, clock)
	if err != nil {
		respondWithLedgerError(c, logger, err, "get balance")
		return
	}

	c.JSON(http.StatusOK, dto.ToBalanceResponse(balance))
}
