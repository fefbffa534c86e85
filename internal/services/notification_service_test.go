package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/avicolanorte/api/internal/domain"
	"github.com/avicolanorte/api/internal/repositories"
)

type stubNotificationRepo struct {
	inserted []domain.NotificationRecord
	insertFn func(ctx context.Context, record domain.NotificationRecord) error
	markFn   func(ctx context.Context, id string, readAt time.Time) (domain.NotificationRecord, error)
}

func (s *stubNotificationRepo) Insert(ctx context.Context, record domain.NotificationRecord) error {
	if s.insertFn != nil {
		if err := s.insertFn(ctx, record); err != nil {
			return err
		}
	}
	s.inserted = append(s.inserted, record)
	return nil
}

func (s *stubNotificationRepo) ListByRecipient(ctx context.Context, recipientID string, filter repositories.NotificationListFilter) (domain.CursorPage[domain.NotificationRecord], error) {
	var items []domain.NotificationRecord
	for _, record := range s.inserted {
		if record.RecipientID == recipientID {
			items = append(items, record)
		}
	}
	return domain.CursorPage[domain.NotificationRecord]{Items: items}, nil
}

func (s *stubNotificationRepo) Get(ctx context.Context, notificationID string) (domain.NotificationRecord, error) {
	for _, record := range s.inserted {
		if record.ID == notificationID {
			return record, nil
		}
	}
	return domain.NotificationRecord{}, stubNotFoundError{}
}

func (s *stubNotificationRepo) MarkRead(ctx context.Context, notificationID string, readAt time.Time) (domain.NotificationRecord, error) {
	if s.markFn != nil {
		return s.markFn(ctx, notificationID, readAt)
	}
	for i, record := range s.inserted {
		if record.ID == notificationID {
			s.inserted[i].Read = true
			return s.inserted[i], nil
		}
	}
	return domain.NotificationRecord{}, stubNotFoundError{}
}

type stubAccountRepo struct {
	byRole map[domain.Role][]domain.Account
	byType map[domain.CoordinatorType][]domain.Account
	getFn  func(ctx context.Context, accountID string) (domain.Account, error)
	saveFn func(ctx context.Context, account domain.Account) error
	delFn  func(ctx context.Context, accountID string) error
}

func (s *stubAccountRepo) Get(ctx context.Context, accountID string) (domain.Account, error) {
	if s.getFn != nil {
		return s.getFn(ctx, accountID)
	}
	return domain.Account{}, stubNotFoundError{}
}

func (s *stubAccountRepo) Save(ctx context.Context, account domain.Account) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, account)
	}
	return nil
}

func (s *stubAccountRepo) Delete(ctx context.Context, accountID string) error {
	if s.delFn != nil {
		return s.delFn(ctx, accountID)
	}
	return nil
}

func (s *stubAccountRepo) FindActiveByRole(ctx context.Context, role domain.Role) ([]domain.Account, error) {
	return s.byRole[role], nil
}

func (s *stubAccountRepo) FindActiveByCoordinatorType(ctx context.Context, coordinatorType domain.CoordinatorType) ([]domain.Account, error) {
	return s.byType[coordinatorType], nil
}

func newTestNotificationService(t *testing.T, notifications *stubNotificationRepo, accounts *stubAccountRepo) NotificationService {
	t.Helper()
	counter := 0
	service, err := NewNotificationService(NotificationServiceDeps{
		Notifications: notifications,
		Accounts:      accounts,
		Clock:         func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) },
		IDGenerator:   func() string { counter++; return fmt.Sprintf("notif-%d", counter) },
	})
	if err != nil {
		t.Fatalf("NewNotificationService: %v", err)
	}
	return service
}

func TestNotifyNewHomeOrderTargetsHomeDesk(t *testing.T) {
	notifications := &stubNotificationRepo{}
	accounts := &stubAccountRepo{
		byRole: map[domain.Role][]domain.Account{
			domain.RoleHomeDesk: {
				{ID: "acc-1", Name: "Mesa Hogares 1", Contact: "+5730100", Active: true},
				{ID: "acc-2", Name: "Mesa Hogares 2", Contact: "+5730200", Active: true},
			},
		},
	}
	service := newTestNotificationService(t, notifications, accounts)

	records, err := service.Notify(context.Background(), domain.NotificationNewOrder, NotificationPayload{
		Segment:      domain.SegmentHome,
		ReferenceID:  "AV-20260302-0001",
		CustomerName: "573001112233",
		Total:        44000,
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected one record per home-desk account, got %d", len(records))
	}
	seen := map[string]bool{}
	for _, record := range records {
		if seen[record.RecipientID] {
			t.Fatalf("duplicate recipient %s in one batch", record.RecipientID)
		}
		seen[record.RecipientID] = true
		if record.Kind != domain.NotificationNewOrder || record.ReferenceID != "AV-20260302-0001" {
			t.Fatalf("unexpected record %+v", record)
		}
		if record.Read {
			t.Fatal("new records must start unread")
		}
	}
}

func TestNotifyBusinessOrderTargetsOwningDesk(t *testing.T) {
	notifications := &stubNotificationRepo{}
	accounts := &stubAccountRepo{
		byType: map[domain.CoordinatorType][]domain.Account{
			domain.CoordinatorWholesale: {{ID: "acc-9", Name: "Mayoristas", Active: true}},
		},
	}
	service := newTestNotificationService(t, notifications, accounts)

	records, err := service.Notify(context.Background(), domain.NotificationNewOrder, NotificationPayload{
		Segment:         domain.SegmentWholesaler,
		CoordinatorType: domain.CoordinatorWholesale,
		ReferenceID:     "AV-20260302-0002",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(records) != 1 || records[0].RecipientID != "acc-9" {
		t.Fatalf("expected the wholesale desk, got %+v", records)
	}
}

func TestNotifyAccountEventsTargetAdmins(t *testing.T) {
	notifications := &stubNotificationRepo{}
	accounts := &stubAccountRepo{
		byRole: map[domain.Role][]domain.Account{
			domain.RoleAdmin: {{ID: "adm-1", Name: "Admin", Active: true}},
		},
	}
	service := newTestNotificationService(t, notifications, accounts)

	records, err := service.Notify(context.Background(), domain.NotificationAccountDeactivated, NotificationPayload{
		ReferenceID: "acc-7",
		AccountName: "Coordinador Saliente",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(records) != 1 || records[0].RecipientID != "adm-1" {
		t.Fatalf("expected one admin record, got %+v", records)
	}
}

func TestNotifyZeroRecipientsIsNotAnError(t *testing.T) {
	notifications := &stubNotificationRepo{}
	service := newTestNotificationService(t, notifications, &stubAccountRepo{})

	records, err := service.Notify(context.Background(), domain.NotificationNewOrder, NotificationPayload{
		Segment: domain.SegmentHome,
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty batch, got %d", len(records))
	}
}

func TestNotifyPartialWriteFailureKeepsTheRest(t *testing.T) {
	notifications := &stubNotificationRepo{}
	notifications.insertFn = func(_ context.Context, record domain.NotificationRecord) error {
		if record.RecipientID == "acc-2" {
			return errors.New("write failed")
		}
		return nil
	}
	accounts := &stubAccountRepo{
		byRole: map[domain.Role][]domain.Account{
			domain.RoleHomeDesk: {
				{ID: "acc-1", Active: true},
				{ID: "acc-2", Active: true},
				{ID: "acc-3", Active: true},
			},
		},
	}
	service := newTestNotificationService(t, notifications, accounts)

	records, err := service.Notify(context.Background(), domain.NotificationNewOrder, NotificationPayload{
		Segment: domain.SegmentHome,
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("one failed write must not abort the batch, got %d records", len(records))
	}
}

func TestNotifyRejectsUnknownKind(t *testing.T) {
	service := newTestNotificationService(t, &stubNotificationRepo{}, &stubAccountRepo{})

	_, err := service.Notify(context.Background(), "mystery", NotificationPayload{})
	if !errors.Is(err, ErrNotificationInvalidInput) {
		t.Fatalf("expected ErrNotificationInvalidInput, got %v", err)
	}
}

func TestMarkReadTranslatesNotFound(t *testing.T) {
	service := newTestNotificationService(t, &stubNotificationRepo{}, &stubAccountRepo{})

	_, err := service.MarkRead(context.Background(), "missing", Operator{ID: "acc-1", Role: domain.RoleCoordinator})
	if !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}
}

func TestMarkReadEnforcesRecipientOwnership(t *testing.T) {
	notifications := &stubNotificationRepo{inserted: []domain.NotificationRecord{
		{ID: "notif-1", RecipientID: "acc-1", Kind: domain.NotificationNewOrder},
	}}
	service := newTestNotificationService(t, notifications, &stubAccountRepo{})

	_, err := service.MarkRead(context.Background(), "notif-1", Operator{ID: "acc-2", Role: domain.RoleCoordinator})
	if !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected foreign record to look missing, got %v", err)
	}
	if notifications.inserted[0].Read {
		t.Fatal("expected rejected mark to leave the record unread")
	}

	record, err := service.MarkRead(context.Background(), "notif-1", Operator{ID: "admin-1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("MarkRead as admin: %v", err)
	}
	if !record.Read {
		t.Fatal("expected admin mark to flip the read flag")
	}
}
