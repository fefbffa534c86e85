package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/avicolanorte/api/internal/domain"
	"github.com/avicolanorte/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	CustomerProfile    = domain.CustomerProfile
	Order              = domain.Order
	OrderStatus        = domain.OrderStatus
	Coordinator        = domain.Coordinator
	Account            = domain.Account
	NotificationRecord = domain.NotificationRecord
)

// Logger is the structured event callback services emit operational logs through.
type Logger func(ctx context.Context, event string, fields map[string]any)

// ConversationService drives the per-user chat dialogue and produces outbound replies.
type ConversationService interface {
	HandleInboundMessage(ctx context.Context, userID, text string) ([]string, error)
}

// CustomerService manages customer profiles and their coordinator assignment.
type CustomerService interface {
	GetByPhone(ctx context.Context, phone string) (CustomerProfile, error)
	SaveProfile(ctx context.Context, cmd SaveProfileCommand) (CustomerProfile, error)
	RecordInteraction(ctx context.Context, phone string, at time.Time) error
	ListCustomers(ctx context.Context, filter repositories.CustomerListFilter) (domain.CursorPage[CustomerProfile], error)
}

// OrderService finalizes carts into orders and owns the status state machine.
type OrderService interface {
	Finalize(ctx context.Context, userID string) (Order, error)
	Transition(ctx context.Context, cmd TransitionCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, operator Operator, filter repositories.OrderListFilter) (domain.CursorPage[Order], error)
	CanOperate(role domain.Role, coordinatorType domain.CoordinatorType, order Order) bool
}

// NotificationService fans events out into per-recipient notification records.
type NotificationService interface {
	Notify(ctx context.Context, kind domain.NotificationKind, payload NotificationPayload) ([]NotificationRecord, error)
	ListForRecipient(ctx context.Context, recipientID string, filter repositories.NotificationListFilter) (domain.CursorPage[NotificationRecord], error)
	MarkRead(ctx context.Context, notificationID string, operator Operator) (NotificationRecord, error)
}

// AccountService owns back-office account lifecycle operations.
type AccountService interface {
	GetAccount(ctx context.Context, accountID string) (Account, error)
	Deactivate(ctx context.Context, accountID string, operator Operator) (Account, error)
	Delete(ctx context.Context, accountID string, operator Operator) error
}

// OrderEventPublisher emits order lifecycle events to the export pipeline.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// Operator carries the authenticated back-office identity acting on a request.
type Operator struct {
	ID              string
	Name            string
	Role            domain.Role
	CoordinatorType domain.CoordinatorType
}

// SaveProfileCommand captures the registration dialogue output.
type SaveProfileCommand struct {
	Phone         string
	Segment       domain.Segment
	BusinessName  string
	City          string
	Address       string
	ContactPerson string
}

// TransitionCommand requests one order status transition.
type TransitionCommand struct {
	OrderID  string
	Target   OrderStatus
	Operator Operator
	Note     string
}

// NotificationPayload carries the event context the fan-out builds messages from.
type NotificationPayload struct {
	Segment         domain.Segment
	CoordinatorType domain.CoordinatorType
	ReferenceID     string
	CustomerName    string
	AccountName     string
	Total           int64
}

// OrderEvent is the export-pipeline representation of an order lifecycle change.
type OrderEvent struct {
	Type       string         `json:"type"`
	OrderID    string         `json:"orderId"`
	Phone      string         `json:"phone"`
	Segment    domain.Segment `json:"segment"`
	Status     OrderStatus    `json:"status"`
	Total      int64          `json:"total"`
	OccurredAt time.Time      `json:"occurredAt"`
	Operator   string         `json:"operator,omitempty"`
	Note       string         `json:"note,omitempty"`
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

func isRepoConflict(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsConflict()
	}
	return false
}

func noopLogger(context.Context, string, map[string]any) {}
