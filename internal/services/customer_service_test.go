package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/avicolanorte/api/internal/domain"
	"github.com/avicolanorte/api/internal/repositories"
)

type stubCustomerRepo struct {
	findFn        func(ctx context.Context, phone string) (domain.CustomerProfile, error)
	saveFn        func(ctx context.Context, profile domain.CustomerProfile) error
	interactionFn func(ctx context.Context, phone string, at time.Time) error
	listFn        func(ctx context.Context, filter repositories.CustomerListFilter) (domain.CursorPage[domain.CustomerProfile], error)
}

func (s *stubCustomerRepo) FindByPhone(ctx context.Context, phone string) (domain.CustomerProfile, error) {
	if s.findFn != nil {
		return s.findFn(ctx, phone)
	}
	return domain.CustomerProfile{}, stubNotFoundError{}
}

func (s *stubCustomerRepo) Save(ctx context.Context, profile domain.CustomerProfile) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, profile)
	}
	return nil
}

func (s *stubCustomerRepo) RecordInteraction(ctx context.Context, phone string, at time.Time) error {
	if s.interactionFn != nil {
		return s.interactionFn(ctx, phone, at)
	}
	return nil
}

func (s *stubCustomerRepo) List(ctx context.Context, filter repositories.CustomerListFilter) (domain.CursorPage[domain.CustomerProfile], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.CustomerProfile]{}, nil
}

// stubNotFoundError satisfies repositories.RepositoryError for test stubs.
type stubNotFoundError struct{}

func (stubNotFoundError) Error() string       { return "not found" }
func (stubNotFoundError) IsNotFound() bool    { return true }
func (stubNotFoundError) IsConflict() bool    { return false }
func (stubNotFoundError) IsUnavailable() bool { return false }

type stubConflictError struct{}

func (stubConflictError) Error() string       { return "already exists" }
func (stubConflictError) IsNotFound() bool    { return false }
func (stubConflictError) IsConflict() bool    { return true }
func (stubConflictError) IsUnavailable() bool { return false }

func newTestCustomerService(t *testing.T, repo repositories.CustomerRepository, now time.Time) CustomerService {
	t.Helper()
	service, err := NewCustomerService(CustomerServiceDeps{
		Repository: repo,
		Clock:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewCustomerService: %v", err)
	}
	return service
}

func TestSaveProfileDerivesCoordinatorFromRouting(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	var saved domain.CustomerProfile
	repo := &stubCustomerRepo{
		saveFn: func(_ context.Context, profile domain.CustomerProfile) error {
			saved = profile
			return nil
		},
	}
	service := newTestCustomerService(t, repo, now)

	profile, err := service.SaveProfile(context.Background(), SaveProfileCommand{
		Phone:        "573001112233",
		Segment:      domain.SegmentWholesaler,
		BusinessName: "Distribuidora El Porvenir",
		City:         "Soacha",
	})
	if err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	if profile.ResponsibleType != domain.CoordinatorWholesale {
		t.Fatalf("wholesaler must route to wholesale desk even in an outlying municipality, got %s", profile.ResponsibleType)
	}
	if saved.RegisteredAt != now {
		t.Fatalf("expected registeredAt %v, got %v", now, saved.RegisteredAt)
	}
}

func TestSaveProfileNeverDowngradesBusinessSegment(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	existing := domain.CustomerProfile{
		Phone:        "573001112233",
		Segment:      domain.SegmentPremiumRestaurant,
		BusinessName: "La Brasa Dorada",
		City:         "Bogotá",
		RegisteredAt: now.Add(-30 * 24 * time.Hour),
	}
	repo := &stubCustomerRepo{
		findFn: func(context.Context, string) (domain.CustomerProfile, error) { return existing, nil },
	}
	service := newTestCustomerService(t, repo, now)

	profile, err := service.SaveProfile(context.Background(), SaveProfileCommand{
		Phone:   "573001112233",
		Segment: domain.SegmentHome,
	})
	if err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	if profile.Segment != domain.SegmentPremiumRestaurant {
		t.Fatalf("home-flow save must not downgrade the business segment, got %s", profile.Segment)
	}
	if profile.ResponsibleType != domain.CoordinatorHoreca {
		t.Fatalf("expected horeca desk, got %s", profile.ResponsibleType)
	}
	if profile.RegisteredAt != existing.RegisteredAt {
		t.Fatalf("registration date must be preserved, got %v", profile.RegisteredAt)
	}
	if profile.BusinessName != "La Brasa Dorada" {
		t.Fatalf("existing fields must be kept, got %q", profile.BusinessName)
	}
}

func TestSaveProfileAllowsUpgradeToBusinessSegment(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	existing := domain.CustomerProfile{Phone: "573001112233", Segment: domain.SegmentHome, RegisteredAt: now.Add(-time.Hour)}
	repo := &stubCustomerRepo{
		findFn: func(context.Context, string) (domain.CustomerProfile, error) { return existing, nil },
	}
	service := newTestCustomerService(t, repo, now)

	profile, err := service.SaveProfile(context.Background(), SaveProfileCommand{
		Phone:        "573001112233",
		Segment:      domain.SegmentStore,
		BusinessName: "Tienda Doña Rosa",
		City:         "Bogotá",
	})
	if err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	if profile.Segment != domain.SegmentStore {
		t.Fatalf("expected upgrade to store segment, got %s", profile.Segment)
	}
	if profile.ResponsibleType != domain.CoordinatorCommercial {
		t.Fatalf("expected commercial director, got %s", profile.ResponsibleType)
	}
}

func TestSaveProfileRejectsUnknownSegment(t *testing.T) {
	service := newTestCustomerService(t, &stubCustomerRepo{}, time.Now())

	_, err := service.SaveProfile(context.Background(), SaveProfileCommand{Phone: "57300", Segment: "panaderia"})
	if !errors.Is(err, ErrCustomerInvalidInput) {
		t.Fatalf("expected ErrCustomerInvalidInput, got %v", err)
	}
}

func TestRecordInteractionIgnoresUnregisteredUsers(t *testing.T) {
	repo := &stubCustomerRepo{
		interactionFn: func(context.Context, string, time.Time) error { return stubNotFoundError{} },
	}
	service := newTestCustomerService(t, repo, time.Now())

	if err := service.RecordInteraction(context.Background(), "573001112233", time.Now()); err != nil {
		t.Fatalf("unregistered users must not error, got %v", err)
	}
}

func TestGetByPhoneTranslatesNotFound(t *testing.T) {
	service := newTestCustomerService(t, &stubCustomerRepo{}, time.Now())

	_, err := service.GetByPhone(context.Background(), "573001112233")
	if !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}
