package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/avicolanorte/api/internal/domain"
	"github.com/avicolanorte/api/internal/repositories"
)

var (
	errAccountRepositoryRequired = errors.New("account service: repository is required")
	errAccountClockRequired      = errors.New("account service: clock is required")
)

// ErrAccountInvalidInput indicates an empty account identifier.
var ErrAccountInvalidInput = errors.New("account service: invalid input")

// ErrAccountNotFound indicates the account does not exist.
var ErrAccountNotFound = errors.New("account service: not found")

// ErrAccountUnavailable indicates the account store cannot be reached.
var ErrAccountUnavailable = errors.New("account service: unavailable")

// AccountServiceDeps wires the repository and fan-out for account lifecycle operations.
type AccountServiceDeps struct {
	Repository repositories.AccountRepository
	Notifier   NotificationService
	Clock      func() time.Time
	Logger     Logger
}

type accountService struct {
	repo     repositories.AccountRepository
	notifier NotificationService
	now      func() time.Time
	logger   Logger
}

// NewAccountService constructs an AccountService enforcing dependency validation.
func NewAccountService(deps AccountServiceDeps) (AccountService, error) {
	if deps.Repository == nil {
		return nil, errAccountRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errAccountClockRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &accountService{
		repo:     deps.Repository,
		notifier: deps.Notifier,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}, nil
}

func (s *accountService) GetAccount(ctx context.Context, accountID string) (Account, error) {
	id := strings.TrimSpace(accountID)
	if id == "" {
		return Account{}, ErrAccountInvalidInput
	}
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, s.translateRepoError(err)
	}
	return account, nil
}

// Deactivate flips the active flag and alerts the administrators. Already
// inactive accounts deactivate again without error.
func (s *accountService) Deactivate(ctx context.Context, accountID string, operator Operator) (Account, error) {
	id := strings.TrimSpace(accountID)
	if id == "" {
		return Account{}, ErrAccountInvalidInput
	}

	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, s.translateRepoError(err)
	}

	account.Active = false
	account.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, account); err != nil {
		return Account{}, s.translateRepoError(err)
	}

	s.logger(ctx, "account.deactivated", map[string]any{
		"accountId": id,
		"operator":  operator.ID,
	})
	s.fanOut(ctx, domain.NotificationAccountDeactivated, account)
	return account, nil
}

// Delete removes the account and alerts the administrators.
func (s *accountService) Delete(ctx context.Context, accountID string, operator Operator) error {
	id := strings.TrimSpace(accountID)
	if id == "" {
		return ErrAccountInvalidInput
	}

	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return s.translateRepoError(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.translateRepoError(err)
	}

	s.logger(ctx, "account.deleted", map[string]any{
		"accountId": id,
		"operator":  operator.ID,
	})
	s.fanOut(ctx, domain.NotificationAccountDeleted, account)
	return nil
}

func (s *accountService) fanOut(ctx context.Context, kind domain.NotificationKind, account domain.Account) {
	if s.notifier == nil {
		return
	}
	payload := NotificationPayload{
		ReferenceID: account.ID,
		AccountName: account.Name,
	}
	if _, err := s.notifier.Notify(ctx, kind, payload); err != nil {
		s.logger(ctx, "account.notify_failed", map[string]any{
			"accountId": account.ID,
			"kind":      string(kind),
			"error":     err.Error(),
		})
	}
}

func (s *accountService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrAccountNotFound
		}
		return ErrAccountUnavailable
	}
	return ErrAccountUnavailable
}
