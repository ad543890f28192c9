package postings

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/sha3"

	"github.com/trestleworks/planledger/internal/apperrors"
	"github.com/trestleworks/planledger/internal/core/domain"
)

// ValidateShape checks the stand-alone well-formedness of a submitted batch:
// presence of account ids and currency, non-negative amount. It returns every
// issue found, not just the first.
func ValidateShape(batchID int64, items []domain.Posting) []apperrors.PostingIssue {
	var issues []apperrors.PostingIssue
	if len(items) == 0 {
		issues = append(issues, apperrors.PostingIssue{
			BatchID: batchID,
			Index:   -1,
			Reason:  "batch must contain at least one posting",
		})
		return issues
	}
	for i, p := range items {
		if p.FromAccountID == "" {
			issues = append(issues, apperrors.PostingIssue{
				BatchID: batchID, Index: i, Field: "fromAccountID",
				Reason: "fromAccountID is required",
			})
		}
		if p.ToAccountID == "" {
			issues = append(issues, apperrors.PostingIssue{
				BatchID: batchID, Index: i, Field: "toAccountID",
				Reason: "toAccountID is required",
			})
		}
		if p.CurrencyCode == "" {
			issues = append(issues, apperrors.PostingIssue{
				BatchID: batchID, Index: i, Field: "currencyCode",
				Reason: "currencyCode is required",
			})
		}
		if p.Amount.IsNegative() {
			issues = append(issues, apperrors.PostingIssue{
				BatchID: batchID, Index: i, Field: "amount",
				Reason: fmt.Sprintf("amount must be non-negative, got %s", p.Amount),
			})
		}
	}
	return issues
}

// ValidateCurrencies checks each posting's currency against the accounts it
// references. Accounts present in existing must match exactly; accounts the
// batch would create adopt the currency of their first posting, and later
// postings must agree with it.
func ValidateCurrencies(batchID int64, items []domain.Posting, existing map[string]domain.Account) []apperrors.PostingIssue {
	var issues []apperrors.PostingIssue
	pending := make(map[string]string)
	for i, p := range items {
		for _, accountID := range []string{p.FromAccountID, p.ToAccountID} {
			if accountID == "" {
				continue
			}
			if acc, ok := existing[accountID]; ok {
				if acc.CurrencyCode != p.CurrencyCode {
					issues = append(issues, apperrors.PostingIssue{
						BatchID: batchID, Index: i, Field: "currencyCode",
						Reason: fmt.Sprintf("currency %s does not match account %s currency %s", p.CurrencyCode, accountID, acc.CurrencyCode),
					})
				}
				continue
			}
			if cur, ok := pending[accountID]; ok {
				if cur != p.CurrencyCode {
					issues = append(issues, apperrors.PostingIssue{
						BatchID: batchID, Index: i, Field: "currencyCode",
						Reason: fmt.Sprintf("conflicting currencies %s and %s for new account %s", cur, p.CurrencyCode, accountID),
					})
				}
				continue
			}
			pending[accountID] = p.CurrencyCode
		}
	}
	return issues
}

// MissingAccounts returns accountID -> currency for every account referenced
// by the postings but absent from existing. The currency is taken from the
// account's first posting.
func MissingAccounts(items []domain.Posting, existing map[string]domain.Account) map[string]string {
	missing := make(map[string]string)
	for _, p := range items {
		for _, accountID := range []string{p.FromAccountID, p.ToAccountID} {
			if accountID == "" {
				continue
			}
			if _, ok := existing[accountID]; ok {
				continue
			}
			if _, ok := missing[accountID]; !ok {
				missing[accountID] = p.CurrencyCode
			}
		}
	}
	return missing
}

// CompareBatch compares a submitted posting list against the recorded one as
// unordered multisets. Submission order never matters; every unmatched
// posting on either side yields one issue.
func CompareBatch(batchID int64, recorded, submitted []domain.Posting) []apperrors.PostingIssue {
	var issues []apperrors.PostingIssue

	counts := make(map[string]int, len(recorded))
	for _, p := range recorded {
		counts[Key(p)]++
	}
	for i, p := range submitted {
		k := Key(p)
		if counts[k] > 0 {
			counts[k]--
			continue
		}
		issues = append(issues, apperrors.PostingIssue{
			BatchID: batchID, Index: i,
			Reason: "no matching recorded posting",
		})
	}

	leftovers := make([]string, 0)
	for k, n := range counts {
		for ; n > 0; n-- {
			leftovers = append(leftovers, k)
		}
	}
	sort.Strings(leftovers)
	for _, k := range leftovers {
		issues = append(issues, apperrors.PostingIssue{
			BatchID: batchID, Index: -1,
			Reason: fmt.Sprintf("recorded posting not covered by submission: %s", k),
		})
	}
	return issues
}

// ComparePlan compares the full submitted batch set against the recorded one:
// same batch ids, and multiset-equal postings batch by batch.
func ComparePlan(recorded, submitted []domain.Batch) []apperrors.PostingIssue {
	var issues []apperrors.PostingIssue

	recordedByID := make(map[int64][]domain.Posting, len(recorded))
	for _, b := range recorded {
		recordedByID[b.BatchID] = b.Postings
	}
	submittedByID := make(map[int64][]domain.Posting, len(submitted))

	for _, b := range submitted {
		submittedByID[b.BatchID] = b.Postings
		rec, ok := recordedByID[b.BatchID]
		if !ok {
			issues = append(issues, apperrors.PostingIssue{
				BatchID: b.BatchID, Index: -1,
				Reason: "batch not recorded for plan",
			})
			continue
		}
		issues = append(issues, CompareBatch(b.BatchID, rec, b.Postings)...)
	}

	missingIDs := make([]int64, 0)
	for _, b := range recorded {
		if _, ok := submittedByID[b.BatchID]; !ok {
			missingIDs = append(missingIDs, b.BatchID)
		}
	}
	sort.Slice(missingIDs, func(i, j int) bool { return missingIDs[i] < missingIDs[j] })
	for _, id := range missingIDs {
		issues = append(issues, apperrors.PostingIssue{
			BatchID: id, Index: -1,
			Reason: "recorded batch missing from submission",
		})
	}
	return issues
}

// Key renders a posting's canonical identity for multiset comparison.
// Amounts are normalized so 2.50 and 2.5 compare equal.
func Key(p domain.Posting) string {
	return strings.Join([]string{
		p.FromAccountID,
		p.ToAccountID,
		canonicalAmount(p.Amount),
		p.CurrencyCode,
		p.Description,
	}, "|")
}

// Digest returns a hex sha3-256 fingerprint of the postings as an unordered
// multiset. Stored alongside the batch, it makes the idempotency fast path a
// single string comparison.
func Digest(items []domain.Posting) string {
	keys := make([]string, len(items))
	for i, p := range items {
		keys[i] = Key(p)
	}
	sort.Strings(keys)
	sum := sha3.Sum256([]byte(strings.Join(keys, "\n")))
	return hex.EncodeToString(sum[:])
}

func canonicalAmount(d decimal.Decimal) string {
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}
