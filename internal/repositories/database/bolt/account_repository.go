package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trestleworks/planledger/internal/apperrors"
	"github.com/trestleworks/planledger/internal/core/domain"
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
	bolt "go.etcd.io/bbolt"
)

// accountDocument is the stored representation of an account.
type accountDocument struct {
	AccountID    string    `json:"accountID"`
	CurrencyCode string    `json:"currencyCode"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toAccountDocument(d domain.Account) accountDocument {
	return accountDocument{
		AccountID:    d.AccountID,
		CurrencyCode: d.CurrencyCode,
		CreatedAt:    d.CreatedAt,
	}
}

func (doc accountDocument) toDomain() domain.Account {
	return domain.Account{
		AccountID:    doc.AccountID,
		CurrencyCode: doc.CurrencyCode,
		CreatedAt:    doc.CreatedAt,
	}
}

type BoltAccountRepository struct {
	store *Store
}

// newBoltAccountRepository creates a new repository for account data.
func newBoltAccountRepository(store *Store) portsrepo.AccountRepositoryFacade {
	return &BoltAccountRepository{store: store}
}

// Ensure BoltAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*BoltAccountRepository)(nil)

// SaveAccount persists a new account. Re-saving an identical account is a
// no-op; an existing id with a different currency is a duplicate.
func (r *BoltAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	return r.store.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketAccounts))
		if raw := bucket.Get([]byte(account.AccountID)); raw != nil {
			var existing accountDocument
			if err := json.Unmarshal(raw, &existing); err != nil {
				return fmt.Errorf("failed to decode account %s: %w", account.AccountID, err)
			}
			if existing.CurrencyCode != account.CurrencyCode {
				return fmt.Errorf("%w: account %s already exists with currency %s", apperrors.ErrDuplicate, account.AccountID, existing.CurrencyCode)
			}
			return nil
		}
		return putAccount(bucket, toAccountDocument(account))
	})
}

// FindAccountByID retrieves an account by its ID.
func (r *BoltAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	var doc accountDocument
	err := r.store.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketAccounts)).Get([]byte(accountID))
		if raw == nil {
			return fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
		}
		return json.Unmarshal(raw, &doc)
	})
	if err != nil {
		return nil, err
	}
	account := doc.toDomain()
	return &account, nil
}

// FindAccountsByIDs retrieves multiple accounts by their IDs. Unknown ids are
// absent from the result map.
func (r *BoltAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	accountsMap := make(map[string]domain.Account, len(accountIDs))
	err := r.store.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketAccounts))
		for _, id := range accountIDs {
			raw := bucket.Get([]byte(id))
			if raw == nil {
				continue
			}
			var doc accountDocument
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("failed to decode account %s: %w", id, err)
			}
			accountsMap[id] = doc.toDomain()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accountsMap, nil
}

// ListAccounts retrieves every account. Bolt iterates keys in byte order, so
// the result is already sorted by account id.
func (r *BoltAccountRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := r.store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketAccounts)).ForEach(func(k, v []byte) error {
			var doc accountDocument
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("failed to decode account %s: %w", string(k), err)
			}
			accounts = append(accounts, doc.toDomain())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// putAccount encodes and stores an account document.
func putAccount(bucket *bolt.Bucket, doc accountDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode account %s: %w", doc.AccountID, err)
	}
	return bucket.Put([]byte(doc.AccountID), raw)
}
