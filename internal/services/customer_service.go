package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/avicolanorte/api/internal/domain"
	"github.com/avicolanorte/api/internal/repositories"
)

var (
	errCustomerRepositoryRequired = errors.New("customer service: repository is required")
	errCustomerClockRequired      = errors.New("customer service: clock is required")
)

// ErrCustomerInvalidInput indicates the caller supplied invalid profile data.
var ErrCustomerInvalidInput = errors.New("customer service: invalid input")

// ErrCustomerNotFound indicates no profile exists for the phone number.
var ErrCustomerNotFound = errors.New("customer service: not found")

// ErrCustomerUnavailable indicates the profile store cannot be reached.
var ErrCustomerUnavailable = errors.New("customer service: unavailable")

// CustomerServiceDeps wires the repository and clock for profile operations.
type CustomerServiceDeps struct {
	Repository repositories.CustomerRepository
	Clock      func() time.Time
	Logger     Logger
}

type customerService struct {
	repo   repositories.CustomerRepository
	now    func() time.Time
	logger Logger
}

// NewCustomerService constructs a CustomerService enforcing dependency validation.
func NewCustomerService(deps CustomerServiceDeps) (CustomerService, error) {
	if deps.Repository == nil {
		return nil, errCustomerRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errCustomerClockRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &customerService{
		repo:   deps.Repository,
		now:    func() time.Time { return deps.Clock().UTC() },
		logger: logger,
	}, nil
}

func (s *customerService) GetByPhone(ctx context.Context, phone string) (CustomerProfile, error) {
	number := strings.TrimSpace(phone)
	if number == "" {
		return CustomerProfile{}, ErrCustomerInvalidInput
	}

	profile, err := s.repo.FindByPhone(ctx, number)
	if err != nil {
		return CustomerProfile{}, s.translateRepoError(err)
	}
	return profile, nil
}

// SaveProfile upserts the customer profile and re-derives the responsible
// coordinator from the current segment and city. A business segment already
// on file is sticky: a later home-flow save never downgrades it.
func (s *customerService) SaveProfile(ctx context.Context, cmd SaveProfileCommand) (CustomerProfile, error) {
	phone := strings.TrimSpace(cmd.Phone)
	if phone == "" {
		return CustomerProfile{}, fmt.Errorf("%w: phone is required", ErrCustomerInvalidInput)
	}
	segment := cmd.Segment
	if segment == "" {
		segment = domain.SegmentHome
	}
	if !knownSegment(segment) {
		return CustomerProfile{}, fmt.Errorf("%w: unknown segment %q", ErrCustomerInvalidInput, segment)
	}

	now := s.now()
	profile := domain.CustomerProfile{
		Phone:         phone,
		Segment:       segment,
		BusinessName:  strings.TrimSpace(cmd.BusinessName),
		City:          strings.TrimSpace(cmd.City),
		Address:       strings.TrimSpace(cmd.Address),
		ContactPerson: strings.TrimSpace(cmd.ContactPerson),
		RegisteredAt:  now,
		LastActiveAt:  now,
	}

	existing, err := s.repo.FindByPhone(ctx, phone)
	switch {
	case err == nil:
		profile.RegisteredAt = existing.RegisteredAt
		profile.InteractionCount = existing.InteractionCount
		if existing.Segment.IsBusiness() && !segment.IsBusiness() {
			profile.Segment = existing.Segment
		}
		if profile.BusinessName == "" {
			profile.BusinessName = existing.BusinessName
		}
		if profile.City == "" {
			profile.City = existing.City
		}
		if profile.Address == "" {
			profile.Address = existing.Address
		}
		if profile.ContactPerson == "" {
			profile.ContactPerson = existing.ContactPerson
		}
	case isRepoNotFound(err):
		// First contact, keep the fresh profile.
	default:
		return CustomerProfile{}, s.translateRepoError(err)
	}

	profile.ResponsibleType = domain.ResolveCoordinator(profile.Segment, profile.City).Type

	if err := s.repo.Save(ctx, profile); err != nil {
		return CustomerProfile{}, s.translateRepoError(err)
	}

	s.logger(ctx, "customer.profile_saved", map[string]any{
		"phone":           phone,
		"segment":         string(profile.Segment),
		"responsibleType": string(profile.ResponsibleType),
	})
	return profile, nil
}

func (s *customerService) RecordInteraction(ctx context.Context, phone string, at time.Time) error {
	number := strings.TrimSpace(phone)
	if number == "" {
		return ErrCustomerInvalidInput
	}
	if err := s.repo.RecordInteraction(ctx, number, at.UTC()); err != nil {
		if isRepoNotFound(err) {
			// Unregistered users chat before they have a profile row.
			return nil
		}
		return s.translateRepoError(err)
	}
	return nil
}

func (s *customerService) ListCustomers(ctx context.Context, filter repositories.CustomerListFilter) (domain.CursorPage[CustomerProfile], error) {
	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[CustomerProfile]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *customerService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrCustomerNotFound
		}
		return ErrCustomerUnavailable
	}
	return ErrCustomerUnavailable
}

func knownSegment(segment domain.Segment) bool {
	for _, known := range domain.KnownSegments() {
		if segment == known {
			return true
		}
	}
	return false
}
