package dto

import (
	"time"

	"github.com/trestleworks/planledger/internal/core/domain"
)

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID    string    `json:"accountID"`
	CurrencyCode string    `json:"currencyCode"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO.
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:    acc.AccountID,
		CurrencyCode: acc.CurrencyCode,
		CreatedAt:    acc.CreatedAt,
	}
}
