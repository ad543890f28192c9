package postings_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trestleworks/planledger/internal/core/domain"
	"github.com/trestleworks/planledger/internal/utils/postings"
)

func posting(from, to, amount, currency string) domain.Posting {
	return domain.Posting{
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        decimal.RequireFromString(amount),
		CurrencyCode:  currency,
	}
}

func TestValidateShape(t *testing.T) {
	tests := []struct {
		name      string
		items     []domain.Posting
		wantCount int
	}{
		{
			name:      "valid postings",
			items:     []domain.Posting{posting("a", "b", "100", "USD"), posting("b", "a", "0", "USD")},
			wantCount: 0,
		},
		{
			name:      "empty batch",
			items:     nil,
			wantCount: 1,
		},
		{
			name:      "negative amount",
			items:     []domain.Posting{posting("a", "b", "-1", "USD")},
			wantCount: 1,
		},
		{
			name:      "missing everything",
			items:     []domain.Posting{{Amount: decimal.RequireFromString("-5")}},
			wantCount: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := postings.ValidateShape(7, tt.items)
			assert.Len(t, issues, tt.wantCount)
			for _, issue := range issues {
				assert.Equal(t, int64(7), issue.BatchID)
			}
		})
	}
}

func TestValidateCurrencies(t *testing.T) {
	existing := map[string]domain.Account{
		"acc1": {AccountID: "acc1", CurrencyCode: "USD", CreatedAt: time.Now()},
	}

	t.Run("matching currencies", func(t *testing.T) {
		issues := postings.ValidateCurrencies(1, []domain.Posting{posting("acc1", "acc2", "10", "USD")}, existing)
		assert.Empty(t, issues)
	})

	t.Run("existing account mismatch", func(t *testing.T) {
		issues := postings.ValidateCurrencies(1, []domain.Posting{posting("acc1", "acc2", "10", "EUR")}, existing)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0].Reason, "acc1")
	})

	t.Run("conflicting currencies for new account", func(t *testing.T) {
		items := []domain.Posting{
			posting("acc2", "acc3", "10", "EUR"),
			posting("acc3", "acc2", "5", "JPY"),
		}
		issues := postings.ValidateCurrencies(1, items, nil)
		// Both sides of the second posting disagree with the first.
		require.Len(t, issues, 2)
		assert.Equal(t, 1, issues[0].Index)
	})
}

func TestMissingAccounts(t *testing.T) {
	existing := map[string]domain.Account{
		"acc1": {AccountID: "acc1", CurrencyCode: "USD"},
	}
	missing := postings.MissingAccounts([]domain.Posting{
		posting("acc1", "acc2", "10", "USD"),
		posting("acc2", "acc3", "10", "USD"),
	}, existing)

	assert.Equal(t, map[string]string{"acc2": "USD", "acc3": "USD"}, missing)
}

func TestCompareBatch(t *testing.T) {
	recorded := []domain.Posting{
		posting("a", "b", "100", "USD"),
		posting("b", "c", "2.50", "USD"),
	}

	t.Run("order does not matter", func(t *testing.T) {
		submitted := []domain.Posting{
			posting("b", "c", "2.5", "USD"), // trailing zeros normalized away
			posting("a", "b", "100", "USD"),
		}
		assert.Empty(t, postings.CompareBatch(1, recorded, submitted))
	})

	t.Run("amount mismatch reported on both sides", func(t *testing.T) {
		submitted := []domain.Posting{
			posting("a", "b", "100", "USD"),
			posting("b", "c", "3.50", "USD"),
		}
		issues := postings.CompareBatch(1, recorded, submitted)
		require.Len(t, issues, 2)
		assert.Equal(t, 1, issues[0].Index)
		assert.Equal(t, -1, issues[1].Index)
		assert.Contains(t, issues[1].Reason, "2.5")
	})

	t.Run("multiplicity counts", func(t *testing.T) {
		dup := []domain.Posting{
			posting("a", "b", "100", "USD"),
			posting("a", "b", "100", "USD"),
		}
		issues := postings.CompareBatch(1, recorded, dup)
		// Second copy has no recorded counterpart, and b->c stays uncovered.
		require.Len(t, issues, 2)
	})

	t.Run("description participates in identity", func(t *testing.T) {
		rec := []domain.Posting{{FromAccountID: "a", ToAccountID: "b", Amount: decimal.New(1, 0), CurrencyCode: "USD", Description: "rent"}}
		sub := []domain.Posting{{FromAccountID: "a", ToAccountID: "b", Amount: decimal.New(1, 0), CurrencyCode: "USD", Description: "salary"}}
		assert.Len(t, postings.CompareBatch(1, rec, sub), 2)
	})
}

func TestComparePlan(t *testing.T) {
	recorded := []domain.Batch{
		{BatchID: 1, Postings: []domain.Posting{posting("a", "b", "100", "USD")}},
		{BatchID: 2, Postings: []domain.Posting{posting("b", "a", "40", "USD")}},
	}

	t.Run("equal sets", func(t *testing.T) {
		submitted := []domain.Batch{
			{BatchID: 2, Postings: []domain.Posting{posting("b", "a", "40", "USD")}},
			{BatchID: 1, Postings: []domain.Posting{posting("a", "b", "100", "USD")}},
		}
		assert.Empty(t, postings.ComparePlan(recorded, submitted))
	})

	t.Run("unknown and missing batches", func(t *testing.T) {
		submitted := []domain.Batch{
			{BatchID: 1, Postings: []domain.Posting{posting("a", "b", "100", "USD")}},
			{BatchID: 9, Postings: []domain.Posting{posting("x", "y", "1", "USD")}},
		}
		issues := postings.ComparePlan(recorded, submitted)
		require.Len(t, issues, 2)
		assert.Equal(t, int64(9), issues[0].BatchID)
		assert.Equal(t, "batch not recorded for plan", issues[0].Reason)
		assert.Equal(t, int64(2), issues[1].BatchID)
		assert.Equal(t, "recorded batch missing from submission", issues[1].Reason)
	})
}

func TestDigest(t *testing.T) {
	a := []domain.Posting{
		posting("a", "b", "100", "USD"),
		posting("b", "c", "2.50", "USD"),
	}
	b := []domain.Posting{
		posting("b", "c", "2.5", "USD"),
		posting("a", "b", "100", "USD"),
	}
	c := []domain.Posting{
		posting("a", "b", "100.01", "USD"),
		posting("b", "c", "2.50", "USD"),
	}

	assert.Equal(t, postings.Digest(a), postings.Digest(b))
	assert.NotEqual(t, postings.Digest(a), postings.Digest(c))
	assert.Len(t, postings.Digest(a), 64)
}
