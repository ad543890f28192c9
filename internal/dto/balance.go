package dto

import (
	"github.com/shopspring/decimal"
	"github.com/trestleworks/planledger/internal/core/domain"
)

// BalanceResponse defines the derived position returned for an account.
// Clock is the clock the fold was computed at, which may be ahead of the
// requested clock.
type BalanceResponse struct {
	AccountID          string          `json:"accountID"`
	CurrencyCode       string          `json:"currencyCode"`
	OwnAmount          decimal.Decimal `json:"ownAmount"`
	MinAvailableAmount decimal.Decimal `json:"minAvailableAmount"`
	MaxAvailableAmount decimal.Decimal `json:"maxAvailableAmount"`
	Clock              ClockPayload    `json:"clock"`
}

// ToBalanceResponse converts a domain.Balance to BalanceResponse DTO.
func ToBalanceResponse(b *domain.Balance) BalanceResponse {
	return BalanceResponse{
		AccountID:          b.AccountID,
		CurrencyCode:       b.CurrencyCode,
		OwnAmount:          b.OwnAmount,
		MinAvailableAmount: b.MinAvailableAmount,
		MaxAvailableAmount: b.MaxAvailableAmount,
		Clock:              ToClockPayload(b.Clock),
	}
}
