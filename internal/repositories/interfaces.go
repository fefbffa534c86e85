package repositories

import (
	"context"
	"time"

	domain "github.com/avicolanorte/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Customers() CustomerRepository
	Orders() OrderRepository
	Conversations() ConversationRepository
	Notifications() NotificationRepository
	Accounts() AccountRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CustomerRepository stores customer profiles keyed by WhatsApp phone number.
type CustomerRepository interface {
	FindByPhone(ctx context.Context, phone string) (domain.CustomerProfile, error)
	Save(ctx context.Context, profile domain.CustomerProfile) error
	RecordInteraction(ctx context.Context, phone string, at time.Time) error
	List(ctx context.Context, filter CustomerListFilter) (domain.CursorPage[domain.CustomerProfile], error)
}

// OrderRepository persists orders and their append-only status history.
type OrderRepository interface {
	// Create inserts the order, failing with a conflict error when the
	// document ID is already taken. Callers use the conflict to regenerate IDs.
	Create(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)

	// Transition atomically reads the order, applies mutate, and writes it back.
	// Mutate runs inside the storage transaction so the status-history append
	// cannot race with concurrent transitions on the same order.
	Transition(ctx context.Context, orderID string, mutate func(order *domain.Order) error) (domain.Order, error)
}

// ConversationRepository appends to and reads the per-customer dialogue log.
type ConversationRepository interface {
	Append(ctx context.Context, entry domain.ConversationEntry) error
	ListByPhone(ctx context.Context, phone string, pager domain.Pagination) (domain.CursorPage[domain.ConversationEntry], error)
}

// NotificationRepository stores fan-out notification records for operators.
type NotificationRepository interface {
	Insert(ctx context.Context, record domain.NotificationRecord) error
	Get(ctx context.Context, notificationID string) (domain.NotificationRecord, error)
	ListByRecipient(ctx context.Context, recipientID string, filter NotificationListFilter) (domain.CursorPage[domain.NotificationRecord], error)
	MarkRead(ctx context.Context, notificationID string, readAt time.Time) (domain.NotificationRecord, error)
}

// AccountRepository stores back-office operator accounts.
type AccountRepository interface {
	Get(ctx context.Context, accountID string) (domain.Account, error)
	Save(ctx context.Context, account domain.Account) error
	Delete(ctx context.Context, accountID string) error
	FindActiveByRole(ctx context.Context, role domain.Role) ([]domain.Account, error)
	FindActiveByCoordinatorType(ctx context.Context, coordinatorType domain.CoordinatorType) ([]domain.Account, error)
}

// Filter DTOs shared across repositories ------------------------------------

type CustomerListFilter struct {
	Segment    *domain.Segment
	City       string
	Pagination domain.Pagination
}

type OrderListFilter struct {
	CustomerPhone    string
	Statuses         []domain.OrderStatus
	CoordinatorTypes []domain.CoordinatorType
	Segments         []domain.Segment
	DateRange        RangeQuery[time.Time]
	Pagination       domain.Pagination
}

type NotificationListFilter struct {
	UnreadOnly bool
	Pagination domain.Pagination
}

// RangeQuery represents inclusive range filters for timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}
