package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/avicolanorte/api/internal/domain"
	pfirestore "github.com/avicolanorte/api/internal/platform/firestore"
	"github.com/avicolanorte/api/internal/platform/pagination"
	"github.com/avicolanorte/api/internal/repositories"
)

const customerCollection = "customers"

// CustomerRepository persists customer profiles keyed by WhatsApp phone number.
type CustomerRepository struct {
	base     *pfirestore.BaseRepository[customerDocument]
	provider *pfirestore.Provider
}

// NewCustomerRepository constructs a Firestore-backed customer repository.
func NewCustomerRepository(provider *pfirestore.Provider) (*CustomerRepository, error) {
	if provider == nil {
		return nil, errors.New("customer repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[customerDocument](provider, customerCollection)
	return &CustomerRepository{base: base, provider: provider}, nil
}

// FindByPhone loads the customer profile by phone number.
func (r *CustomerRepository) FindByPhone(ctx context.Context, phone string) (domain.CustomerProfile, error) {
	if strings.TrimSpace(phone) == "" {
		return domain.CustomerProfile{}, errors.New("customer phone is required")
	}

	doc, err := r.base.Get(ctx, phone)
	if err != nil {
		return domain.CustomerProfile{}, err
	}

	profile := toDomainCustomer(doc.Data)
	profile.Phone = doc.ID
	return profile, nil
}

// Save upserts the customer profile.
func (r *CustomerRepository) Save(ctx context.Context, profile domain.CustomerProfile) error {
	if strings.TrimSpace(profile.Phone) == "" {
		return errors.New("customer phone is required")
	}

	_, err := r.base.Set(ctx, profile.Phone, fromDomainCustomer(profile))
	return err
}

// RecordInteraction bumps the interaction counter and last-active timestamp.
func (r *CustomerRepository) RecordInteraction(ctx context.Context, phone string, at time.Time) error {
	if strings.TrimSpace(phone) == "" {
		return errors.New("customer phone is required")
	}

	_, err := r.base.Update(ctx, phone, []firestore.Update{
		{Path: "interaction_count", Value: firestore.Increment(1)},
		{Path: "last_active_at", Value: at.UTC()},
	})
	return err
}

// List returns customers matching the filter, newest registrations first.
func (r *CustomerRepository) List(ctx context.Context, filter repositories.CustomerListFilter) (domain.CursorPage[domain.CustomerProfile], error) {
	pageSize := pagination.ClampPageSize(filter.Pagination.PageSize)

	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.CustomerProfile]{}, err
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Segment != nil {
			q = q.Where("segment", "==", string(*filter.Segment))
		}
		if city := strings.TrimSpace(filter.City); city != "" {
			q = q.Where("city_folded", "==", domain.FoldCity(city))
		}
		q = q.OrderBy("registered_at", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Asc)
		if len(cursor.StartAfter) > 0 {
			q = q.StartAfter(cursor.StartAfter...)
		}
		return q.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.CustomerProfile]{}, err
	}

	page := domain.CursorPage[domain.CustomerProfile]{
		Items: make([]domain.CustomerProfile, 0, len(docs)),
	}
	for i, doc := range docs {
		if i == pageSize {
			break
		}
		profile := toDomainCustomer(doc.Data)
		profile.Phone = doc.ID
		page.Items = append(page.Items, profile)
	}

	if len(docs) > pageSize {
		last := docs[pageSize-1]
		token, err := pagination.EncodeToken(pagination.Cursor{
			StartAfter: []any{last.Data.RegisteredAt, last.ID},
		})
		if err != nil {
			return domain.CursorPage[domain.CustomerProfile]{}, err
		}
		page.NextPageToken = token
	}

	return page, nil
}

type customerDocument struct {
	Phone            string    `firestore:"phone"`
	Segment          string    `firestore:"segment"`
	BusinessName     string    `firestore:"business_name,omitempty"`
	City             string    `firestore:"city,omitempty"`
	CityFolded       string    `firestore:"city_folded,omitempty"`
	Address          string    `firestore:"address,omitempty"`
	ContactPerson    string    `firestore:"contact_person,omitempty"`
	ResponsibleType  string    `firestore:"responsible_type,omitempty"`
	InteractionCount int64     `firestore:"interaction_count"`
	RegisteredAt     time.Time `firestore:"registered_at"`
	LastActiveAt     time.Time `firestore:"last_active_at"`
}

func toDomainCustomer(doc customerDocument) domain.CustomerProfile {
	return domain.CustomerProfile{
		Phone:            doc.Phone,
		Segment:          domain.Segment(doc.Segment),
		BusinessName:     doc.BusinessName,
		City:             doc.City,
		Address:          doc.Address,
		ContactPerson:    doc.ContactPerson,
		ResponsibleType:  domain.CoordinatorType(doc.ResponsibleType),
		InteractionCount: doc.InteractionCount,
		RegisteredAt:     doc.RegisteredAt,
		LastActiveAt:     doc.LastActiveAt,
	}
}

func fromDomainCustomer(profile domain.CustomerProfile) customerDocument {
	return customerDocument{
		Phone:            strings.TrimSpace(profile.Phone),
		Segment:          string(profile.Segment),
		BusinessName:     strings.TrimSpace(profile.BusinessName),
		City:             strings.TrimSpace(profile.City),
		CityFolded:       domain.FoldCity(profile.City),
		Address:          strings.TrimSpace(profile.Address),
		ContactPerson:    strings.TrimSpace(profile.ContactPerson),
		ResponsibleType:  string(profile.ResponsibleType),
		InteractionCount: profile.InteractionCount,
		RegisteredAt:     profile.RegisteredAt.UTC(),
		LastActiveAt:     profile.LastActiveAt.UTC(),
	}
}
