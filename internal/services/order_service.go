package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/avicolanorte/api/internal/domain"
	"github.com/avicolanorte/api/internal/repositories"
)

var (
	errOrderRepositoryRequired = errors.New("order service: order repository is required")
	errOrderCustomersRequired  = errors.New("order service: customer repository is required")
	errOrderSessionsRequired   = errors.New("order service: session store is required")
	errOrderClockRequired      = errors.New("order service: clock is required")
)

// ErrEmptyCart indicates finalize was requested without an open cart.
var ErrEmptyCart = errors.New("order service: cart is empty")

// ErrUnknownCustomer indicates the phone has no registered profile.
var ErrUnknownCustomer = errors.New("order service: unknown customer")

// ErrInvalidTransition indicates the requested status change violates the state graph.
var ErrInvalidTransition = errors.New("order service: invalid status transition")

// ErrMissingCancellationReason indicates a cancel was requested without a note.
var ErrMissingCancellationReason = errors.New("order service: cancellation reason is required")

// ErrOrderForbidden indicates the operator may not act on this order.
var ErrOrderForbidden = errors.New("order service: operator may not act on this order")

// ErrOrderNotFound indicates the order does not exist.
var ErrOrderNotFound = errors.New("order service: not found")

// ErrOrderUnavailable indicates the order store cannot be reached.
var ErrOrderUnavailable = errors.New("order service: unavailable")

const (
	orderIDAttempts   = 3
	initialOrderNote  = "received from chatbot"
	orderIDDateLayout = "20060102"
)

// orderTransitions is the status state graph. Absent keys are terminal.
var orderTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusInProgress, domain.OrderStatusCancelled},
	domain.OrderStatusInProgress: {domain.OrderStatusCompleted, domain.OrderStatusCancelled},
}

// OrderServiceDeps wires the repositories and collaborators for order operations.
type OrderServiceDeps struct {
	Orders        repositories.OrderRepository
	Customers     repositories.CustomerRepository
	Conversations repositories.ConversationRepository
	Sessions      *SessionStore
	Notifier      NotificationService
	Publisher     OrderEventPublisher
	Clock         func() time.Time
	Random        func() int
	IDGenerator   func() string
	Logger        Logger
}

type orderService struct {
	orders        repositories.OrderRepository
	customers     repositories.CustomerRepository
	conversations repositories.ConversationRepository
	sessions      *SessionStore
	notifier      NotificationService
	publisher     OrderEventPublisher
	now           func() time.Time
	random        func() int
	newID         func() string
	logger        Logger
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errOrderRepositoryRequired
	}
	if deps.Customers == nil {
		return nil, errOrderCustomersRequired
	}
	if deps.Sessions == nil {
		return nil, errOrderSessionsRequired
	}
	if deps.Clock == nil {
		return nil, errOrderClockRequired
	}

	random := deps.Random
	if random == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		var mu sync.Mutex
		random = func() int {
			mu.Lock()
			defer mu.Unlock()
			return rng.Intn(10000)
		}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}

	return &orderService{
		orders:        deps.Orders,
		customers:     deps.Customers,
		conversations: deps.Conversations,
		sessions:      deps.Sessions,
		notifier:      deps.Notifier,
		publisher:     deps.Publisher,
		now:           func() time.Time { return deps.Clock().UTC() },
		random:        random,
		newID:         idGen,
		logger:        logger,
	}, nil
}

// Finalize turns the user's open cart into a persisted order. It runs inside
// the user's session critical section so a message arriving mid-finalize
// cannot append to a cart that is about to be cleared; the cart is cleared
// only after the order write succeeded.
func (s *orderService) Finalize(ctx context.Context, userID string) (Order, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Order{}, ErrUnknownCustomer
	}

	var result domain.Order
	err := s.sessions.Mutate(ctx, uid, func(session *domain.Session) error {
		if session.Mode != domain.ModeCollectingCart || len(session.Cart) == 0 {
			return ErrEmptyCart
		}

		profile, err := s.customers.FindByPhone(ctx, uid)
		if err != nil {
			if isRepoNotFound(err) {
				return ErrUnknownCustomer
			}
			return s.translateRepoError(err)
		}

		now := s.now()
		lines := make([]domain.CartLine, len(session.Cart))
		var total int64
		for i, line := range session.Cart {
			line.Subtotal = int64(line.Quantity) * line.UnitPrice
			lines[i] = line
			total += line.Subtotal
		}

		order := domain.Order{
			CustomerPhone: uid,
			Segment:       profile.Segment,
			Business: domain.BusinessSnapshot{
				BusinessName:  profile.BusinessName,
				City:          profile.City,
				Address:       profile.Address,
				ContactPerson: profile.ContactPerson,
			},
			Lines:       lines,
			Total:       total,
			Coordinator: domain.ResolveCoordinator(profile.Segment, profile.City),
			Status:      domain.OrderStatusPending,
			StatusHistory: []domain.StatusChange{{
				Status:    domain.OrderStatusPending,
				Timestamp: now,
				Note:      initialOrderNote,
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}

		// Date plus four random digits can collide; the document store's
		// uniqueness constraint is authoritative and a collision just
		// means another draw.
		created := false
		for attempt := 0; attempt < orderIDAttempts; attempt++ {
			order.OrderID = s.newOrderID(now)
			err = s.orders.Create(ctx, order)
			if err == nil {
				created = true
				break
			}
			if !isRepoConflict(err) {
				return s.translateRepoError(err)
			}
			s.logger(ctx, "order.id_collision", map[string]any{
				"orderId": order.OrderID,
				"attempt": attempt + 1,
			})
		}
		if !created {
			return fmt.Errorf("%w: order id generation exhausted %d attempts", ErrOrderUnavailable, orderIDAttempts)
		}

		if s.conversations != nil {
			entry := domain.ConversationEntry{
				ID:        s.newID(),
				Phone:     uid,
				Direction: domain.DirectionOutbound,
				Text:      orderSummaryText(order),
				OrderRef:  order.OrderID,
				CreatedAt: now,
			}
			if err := s.conversations.Append(ctx, entry); err != nil {
				// Best effort: the order is already persisted.
				s.logger(ctx, "order.summary_log_failed", map[string]any{
					"orderId": order.OrderID,
					"error":   err.Error(),
				})
			}
		}

		session.Cart = nil
		session.Mode = domain.ModeIdle
		result = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.emitOrderEvent(ctx, "order.created", domain.NotificationNewOrder, result, Operator{}, "")
	return result, nil
}

// Transition applies one status change through the state graph. The mutate
// closure runs inside the store transaction, so a racing second transition
// reads the already-changed status and fails instead of double-appending.
func (s *orderService) Transition(ctx context.Context, cmd TransitionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, ErrOrderNotFound
	}
	if cmd.Target == domain.OrderStatusCancelled && strings.TrimSpace(cmd.Note) == "" {
		return Order{}, ErrMissingCancellationReason
	}

	now := s.now()
	updated, err := s.orders.Transition(ctx, orderID, func(order *domain.Order) error {
		if !s.CanOperate(cmd.Operator.Role, cmd.Operator.CoordinatorType, *order) {
			return ErrOrderForbidden
		}
		if !validTransition(order.Status, cmd.Target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, cmd.Target)
		}

		order.Status = cmd.Target
		order.StatusHistory = append(order.StatusHistory, domain.StatusChange{
			Status:     cmd.Target,
			Timestamp:  now,
			OperatorID: cmd.Operator.ID,
			Note:       strings.TrimSpace(cmd.Note),
		})
		if cmd.Target == domain.OrderStatusCancelled {
			order.CancellationNote = strings.TrimSpace(cmd.Note)
		}
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTransition),
			errors.Is(err, ErrMissingCancellationReason),
			errors.Is(err, ErrOrderForbidden):
			return Order{}, err
		default:
			return Order{}, s.translateRepoError(err)
		}
	}

	switch cmd.Target {
	case domain.OrderStatusCompleted:
		s.emitOrderEvent(ctx, "order.completed", domain.NotificationOrderCompleted, updated, cmd.Operator, cmd.Note)
	case domain.OrderStatusCancelled:
		s.emitOrderEvent(ctx, "order.cancelled", domain.NotificationOrderCancelled, updated, cmd.Operator, cmd.Note)
	default:
		s.publishOrderEvent(ctx, "order.status_changed", updated, cmd.Operator, cmd.Note)
	}
	return updated, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return Order{}, ErrOrderNotFound
	}
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	return order, nil
}

// ListOrders applies the operator visibility rule before querying: operators
// outside admin and support only see orders owned by their coordinator type.
func (s *orderService) ListOrders(ctx context.Context, operator Operator, filter repositories.OrderListFilter) (domain.CursorPage[Order], error) {
	if operator.Role != domain.RoleAdmin && operator.Role != domain.RoleSupport {
		if operator.CoordinatorType == "" {
			return domain.CursorPage[Order]{Items: []Order{}}, nil
		}
		filter.CoordinatorTypes = []domain.CoordinatorType{operator.CoordinatorType}
	}
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.translateRepoError(err)
	}
	return page, nil
}

// CanOperate reports whether the operator may transition the order. Admin and
// support act on any order; coordinators only on orders their desk owns.
func (s *orderService) CanOperate(role domain.Role, coordinatorType domain.CoordinatorType, order Order) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleSupport:
		return true
	case domain.RoleCoordinator:
		return coordinatorType != "" && order.Coordinator.Type == coordinatorType
	}
	return false
}

func (s *orderService) newOrderID(now time.Time) string {
	return fmt.Sprintf("AV-%s-%04d", now.Format(orderIDDateLayout), s.random()%10000)
}

func (s *orderService) emitOrderEvent(ctx context.Context, eventType string, kind domain.NotificationKind, order domain.Order, operator Operator, note string) {
	s.publishOrderEvent(ctx, eventType, order, operator, note)

	if s.notifier == nil {
		return
	}
	payload := NotificationPayload{
		Segment:         order.Segment,
		CoordinatorType: order.Coordinator.Type,
		ReferenceID:     order.OrderID,
		CustomerName:    customerDisplayName(order),
		Total:           order.Total,
	}
	if _, err := s.notifier.Notify(ctx, kind, payload); err != nil {
		s.logger(ctx, "order.notify_failed", map[string]any{
			"orderId": order.OrderID,
			"kind":    string(kind),
			"error":   err.Error(),
		})
	}
}

func (s *orderService) publishOrderEvent(ctx context.Context, eventType string, order domain.Order, operator Operator, note string) {
	if s.publisher == nil {
		return
	}
	event := OrderEvent{
		Type:       eventType,
		OrderID:    order.OrderID,
		Phone:      order.CustomerPhone,
		Segment:    order.Segment,
		Status:     order.Status,
		Total:      order.Total,
		OccurredAt: order.UpdatedAt,
		Operator:   operator.ID,
		Note:       strings.TrimSpace(note),
	}
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.publish_failed", map[string]any{
			"orderId": order.OrderID,
			"type":    eventType,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrOrderNotFound
		}
		return ErrOrderUnavailable
	}
	return ErrOrderUnavailable
}

func validTransition(from, to domain.OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func customerDisplayName(order domain.Order) string {
	if name := strings.TrimSpace(order.Business.BusinessName); name != "" {
		return name
	}
	if name := strings.TrimSpace(order.Business.ContactPerson); name != "" {
		return name
	}
	return order.CustomerPhone
}

func orderSummaryText(order domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pedido %s registrado:\n", order.OrderID)
	for _, line := range order.Lines {
		fmt.Fprintf(&b, "- %d x %s = $%d\n", line.Quantity, line.Name, line.Subtotal)
	}
	fmt.Fprintf(&b, "Total: $%d", order.Total)
	return b.String()
}
