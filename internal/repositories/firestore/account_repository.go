package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/avicolanorte/api/internal/domain"
	pfirestore "github.com/avicolanorte/api/internal/platform/firestore"
)

const accountCollection = "accounts"

// AccountRepository stores back-office operator accounts.
type AccountRepository struct {
	base *pfirestore.BaseRepository[accountDocument]
}

// NewAccountRepository constructs a Firestore-backed account repository.
func NewAccountRepository(provider *pfirestore.Provider) (*AccountRepository, error) {
	if provider == nil {
		return nil, errors.New("account repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[accountDocument](provider, accountCollection)
	return &AccountRepository{base: base}, nil
}

// Get loads a single account.
func (r *AccountRepository) Get(ctx context.Context, accountID string) (domain.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return domain.Account{}, errors.New("account id is required")
	}

	doc, err := r.base.Get(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}

	account := toDomainAccount(doc.Data)
	account.ID = doc.ID
	return account, nil
}

// Save upserts the account.
func (r *AccountRepository) Save(ctx context.Context, account domain.Account) error {
	if strings.TrimSpace(account.ID) == "" {
		return errors.New("account id is required")
	}

	_, err := r.base.Set(ctx, account.ID, fromDomainAccount(account))
	return err
}

// Delete removes the account document.
func (r *AccountRepository) Delete(ctx context.Context, accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return errors.New("account id is required")
	}

	ref, err := r.base.DocumentRef(ctx, accountID)
	if err != nil {
		return err
	}
	_, err = ref.Delete(ctx)
	return pfirestore.WrapError("accounts.delete", err)
}

// FindActiveByRole returns active accounts carrying the given role.
func (r *AccountRepository) FindActiveByRole(ctx context.Context, role domain.Role) ([]domain.Account, error) {
	return r.findActive(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("role", "==", string(role))
	})
}

// FindActiveByCoordinatorType returns active coordinator accounts owning the given type.
func (r *AccountRepository) FindActiveByCoordinatorType(ctx context.Context, coordinatorType domain.CoordinatorType) ([]domain.Account, error) {
	return r.findActive(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("role", "==", string(domain.RoleCoordinator)).
			Where("coordinator_type", "==", string(coordinatorType))
	})
}

func (r *AccountRepository) findActive(ctx context.Context, narrow pfirestore.QueryBuilder) ([]domain.Account, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return narrow(q).Where("active", "==", true)
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(docs))
	for _, doc := range docs {
		account := toDomainAccount(doc.Data)
		account.ID = doc.ID
		accounts = append(accounts, account)
	}
	return accounts, nil
}

type accountDocument struct {
	Name            string    `firestore:"name"`
	Contact         string    `firestore:"contact,omitempty"`
	Role            string    `firestore:"role"`
	CoordinatorType string    `firestore:"coordinator_type,omitempty"`
	Active          bool      `firestore:"active"`
	CreatedAt       time.Time `firestore:"created_at"`
	UpdatedAt       time.Time `firestore:"updated_at"`
}

func toDomainAccount(doc accountDocument) domain.Account {
	return domain.Account{
		Name:            doc.Name,
		Contact:         doc.Contact,
		Role:            domain.Role(doc.Role),
		CoordinatorType: domain.CoordinatorType(doc.CoordinatorType),
		Active:          doc.Active,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

func fromDomainAccount(account domain.Account) accountDocument {
	return accountDocument{
		Name:            strings.TrimSpace(account.Name),
		Contact:         strings.TrimSpace(account.Contact),
		Role:            string(account.Role),
		CoordinatorType: string(account.CoordinatorType),
		Active:          account.Active,
		CreatedAt:       account.CreatedAt.UTC(),
		UpdatedAt:       account.UpdatedAt.UTC(),
	}
}
