package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/avicolanorte/api/internal/platform/firestore"
	"github.com/avicolanorte/api/internal/repositories"
)

// Registry wires the Firestore-backed repository set behind the
// repositories.Registry contract so the container depends on interfaces only.
type Registry struct {
	provider *pfirestore.Provider

	customers     *CustomerRepository
	orders        *OrderRepository
	conversations *ConversationRepository
	notifications *NotificationRepository
	accounts      *AccountRepository
}

var _ repositories.Registry = (*Registry)(nil)

func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore: provider is required")
	}
	customers, err := NewCustomerRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	conversations, err := NewConversationRepository(provider)
	if err != nil {
		return nil, err
	}
	notifications, err := NewNotificationRepository(provider)
	if err != nil {
		return nil, err
	}
	accounts, err := NewAccountRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{
		provider:      provider,
		customers:     customers,
		orders:        orders,
		conversations: conversations,
		notifications: notifications,
		accounts:      accounts,
	}, nil
}

func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}

func (r *Registry) Customers() repositories.CustomerRepository { return r.customers }

func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

func (r *Registry) Conversations() repositories.ConversationRepository { return r.conversations }

func (r *Registry) Notifications() repositories.NotificationRepository { return r.notifications }

func (r *Registry) Accounts() repositories.AccountRepository { return r.accounts }

// RunInTx runs fn inside a single Firestore transaction. Repositories invoked
// from fn still issue standalone writes; the boundary exists for callers that
// need read-modify-write grouping beyond what OrderRepository.Transition gives.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.provider.RunTransaction(ctx, func(txCtx context.Context, _ *firestore.Transaction) error {
		return fn(txCtx)
	})
}
