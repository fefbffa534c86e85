package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/avicolanorte/api/internal/domain"
	"github.com/avicolanorte/api/internal/repositories"
)

var (
	errNotificationRepositoryRequired = errors.New("notification service: repository is required")
	errNotificationAccountsRequired   = errors.New("notification service: account repository is required")
	errNotificationClockRequired      = errors.New("notification service: clock is required")
)

// ErrNotificationInvalidInput indicates an unsupported kind or empty identifier.
var ErrNotificationInvalidInput = errors.New("notification service: invalid input")

// ErrNotificationNotFound indicates the notification record does not exist.
var ErrNotificationNotFound = errors.New("notification service: not found")

// ErrNotificationUnavailable indicates the notification store cannot be reached.
var ErrNotificationUnavailable = errors.New("notification service: unavailable")

// NotificationServiceDeps wires the stores for the fan-out.
type NotificationServiceDeps struct {
	Notifications repositories.NotificationRepository
	Accounts      repositories.AccountRepository
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        Logger
}

type notificationService struct {
	notifications repositories.NotificationRepository
	accounts      repositories.AccountRepository
	now           func() time.Time
	newID         func() string
	logger        Logger
}

// NewNotificationService constructs a NotificationService enforcing dependency validation.
func NewNotificationService(deps NotificationServiceDeps) (NotificationService, error) {
	if deps.Notifications == nil {
		return nil, errNotificationRepositoryRequired
	}
	if deps.Accounts == nil {
		return nil, errNotificationAccountsRequired
	}
	if deps.Clock == nil {
		return nil, errNotificationClockRequired
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &notificationService{
		notifications: deps.Notifications,
		accounts:      deps.Accounts,
		now:           func() time.Time { return deps.Clock().UTC() },
		newID:         idGen,
		logger:        logger,
	}, nil
}

// Notify resolves the recipient set for the event and writes one record per
// recipient. Each write is independent: one failing recipient never aborts
// the rest of the batch.
func (s *notificationService) Notify(ctx context.Context, kind domain.NotificationKind, payload NotificationPayload) ([]NotificationRecord, error) {
	recipients, err := s.resolveRecipients(ctx, kind, payload)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		s.logger(ctx, "notification.no_recipients", map[string]any{
			"kind":        string(kind),
			"segment":     string(payload.Segment),
			"referenceId": payload.ReferenceID,
		})
		return []NotificationRecord{}, nil
	}

	now := s.now()
	message := buildNotificationMessage(kind, payload)

	records := make([]NotificationRecord, 0, len(recipients))
	for _, account := range recipients {
		record := domain.NotificationRecord{
			ID:               s.newID(),
			RecipientID:      account.ID,
			RecipientContact: account.Contact,
			Kind:             kind,
			Message:          message,
			ReferenceID:      payload.ReferenceID,
			CreatedAt:        now,
		}
		if err := s.notifications.Insert(ctx, record); err != nil {
			s.logger(ctx, "notification.write_failed", map[string]any{
				"kind":        string(kind),
				"recipientId": account.ID,
				"error":       err.Error(),
			})
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *notificationService) ListForRecipient(ctx context.Context, recipientID string, filter repositories.NotificationListFilter) (domain.CursorPage[NotificationRecord], error) {
	id := strings.TrimSpace(recipientID)
	if id == "" {
		return domain.CursorPage[NotificationRecord]{}, ErrNotificationInvalidInput
	}
	page, err := s.notifications.ListByRecipient(ctx, id, filter)
	if err != nil {
		return domain.CursorPage[NotificationRecord]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID string, operator Operator) (NotificationRecord, error) {
	id := strings.TrimSpace(notificationID)
	if id == "" {
		return NotificationRecord{}, ErrNotificationInvalidInput
	}

	record, err := s.notifications.Get(ctx, id)
	if err != nil {
		return NotificationRecord{}, s.translateRepoError(err)
	}
	// Operators manage their own inbox; admins may clear anyone's. Foreign
	// records are indistinguishable from missing ones.
	if record.RecipientID != operator.ID && operator.Role != domain.RoleAdmin {
		return NotificationRecord{}, fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
	}

	record, err = s.notifications.MarkRead(ctx, id, s.now())
	if err != nil {
		return NotificationRecord{}, s.translateRepoError(err)
	}
	return record, nil
}

// resolveRecipients maps the event kind to the accounts that must hear about
// it: order events follow the segment-to-desk routing, account lifecycle
// events go to active administrators.
func (s *notificationService) resolveRecipients(ctx context.Context, kind domain.NotificationKind, payload NotificationPayload) ([]domain.Account, error) {
	switch kind {
	case domain.NotificationNewOrder, domain.NotificationOrderCompleted, domain.NotificationOrderCancelled:
		if payload.Segment == domain.SegmentHome {
			accounts, err := s.accounts.FindActiveByRole(ctx, domain.RoleHomeDesk)
			if err != nil {
				return nil, s.translateRepoError(err)
			}
			return accounts, nil
		}
		coordinatorType := payload.CoordinatorType
		if coordinatorType == "" {
			coordinatorType = domain.ResolveCoordinator(payload.Segment, "").Type
		}
		accounts, err := s.accounts.FindActiveByCoordinatorType(ctx, coordinatorType)
		if err != nil {
			return nil, s.translateRepoError(err)
		}
		return accounts, nil
	case domain.NotificationAccountDeactivated, domain.NotificationAccountDeleted:
		accounts, err := s.accounts.FindActiveByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return nil, s.translateRepoError(err)
		}
		return accounts, nil
	}
	return nil, fmt.Errorf("%w: unsupported kind %q", ErrNotificationInvalidInput, kind)
}

func buildNotificationMessage(kind domain.NotificationKind, payload NotificationPayload) string {
	switch kind {
	case domain.NotificationNewOrder:
		return fmt.Sprintf("Nuevo pedido %s de %s por $%d", payload.ReferenceID, payload.CustomerName, payload.Total)
	case domain.NotificationOrderCompleted:
		return fmt.Sprintf("Pedido %s completado", payload.ReferenceID)
	case domain.NotificationOrderCancelled:
		return fmt.Sprintf("Pedido %s cancelado", payload.ReferenceID)
	case domain.NotificationAccountDeactivated:
		return fmt.Sprintf("Cuenta %s desactivada", payload.AccountName)
	case domain.NotificationAccountDeleted:
		return fmt.Sprintf("Cuenta %s eliminada", payload.AccountName)
	}
	return string(kind)
}

func (s *notificationService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrNotificationNotFound
		}
		return ErrNotificationUnavailable
	}
	return ErrNotificationUnavailable
}
