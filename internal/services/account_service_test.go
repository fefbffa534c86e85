package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/avicolanorte/api/internal/domain"
)

func newTestAccountService(t *testing.T, repo *stubAccountRepo, notifier NotificationService) AccountService {
	t.Helper()
	service, err := NewAccountService(AccountServiceDeps{
		Repository: repo,
		Notifier:   notifier,
		Clock:      func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewAccountService: %v", err)
	}
	return service
}

func TestDeactivateFlipsFlagAndNotifiesAdmins(t *testing.T) {
	var saved domain.Account
	repo := &stubAccountRepo{
		getFn: func(context.Context, string) (domain.Account, error) {
			return domain.Account{ID: "acc-1", Name: "Coordinador Horeca", Active: true}, nil
		},
		saveFn: func(_ context.Context, account domain.Account) error {
			saved = account
			return nil
		},
	}
	notifier := &captureNotifier{}
	service := newTestAccountService(t, repo, notifier)

	account, err := service.Deactivate(context.Background(), "acc-1", adminOperator())
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if account.Active || saved.Active {
		t.Fatal("account must be inactive after deactivation")
	}
	if len(notifier.kinds) != 1 || notifier.kinds[0] != domain.NotificationAccountDeactivated {
		t.Fatalf("expected account_deactivated fan-out, got %v", notifier.kinds)
	}
	if notifier.payloads[0].AccountName != "Coordinador Horeca" {
		t.Fatalf("unexpected payload %+v", notifier.payloads[0])
	}
}

func TestDeleteRemovesAccountAndNotifiesAdmins(t *testing.T) {
	deleted := ""
	repo := &stubAccountRepo{
		getFn: func(context.Context, string) (domain.Account, error) {
			return domain.Account{ID: "acc-2", Name: "Mesa Hogares"}, nil
		},
		delFn: func(_ context.Context, accountID string) error {
			deleted = accountID
			return nil
		},
	}
	notifier := &captureNotifier{}
	service := newTestAccountService(t, repo, notifier)

	if err := service.Delete(context.Background(), "acc-2", adminOperator()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted != "acc-2" {
		t.Fatalf("expected deletion of acc-2, got %q", deleted)
	}
	if len(notifier.kinds) != 1 || notifier.kinds[0] != domain.NotificationAccountDeleted {
		t.Fatalf("expected account_deleted fan-out, got %v", notifier.kinds)
	}
}

func TestAccountLifecycleTranslatesNotFound(t *testing.T) {
	service := newTestAccountService(t, &stubAccountRepo{}, nil)

	if _, err := service.Deactivate(context.Background(), "ghost", adminOperator()); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if err := service.Delete(context.Background(), "ghost", adminOperator()); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
