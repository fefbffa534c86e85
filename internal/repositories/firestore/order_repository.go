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

const orderCollection = "orders"

// OrderRepository persists orders with their append-only status history.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[orderDocument](provider, orderCollection)
	return &OrderRepository{base: base, provider: provider}, nil
}

// Create inserts the order, surfacing a conflict error when the ID is taken.
// The document ID doubles as the human-facing order ID, so the conflict is the
// signal that the caller must regenerate.
func (r *OrderRepository) Create(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.OrderID) == "" {
		return errors.New("order id is required")
	}

	_, err := r.base.Create(ctx, order.OrderID, fromDomainOrder(order))
	return err
}

// Update replaces the stored order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.OrderID) == "" {
		return errors.New("order id is required")
	}

	_, err := r.base.Set(ctx, order.OrderID, fromDomainOrder(order))
	return err
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, errors.New("order id is required")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	order := toDomainOrder(doc.Data)
	order.OrderID = doc.ID
	return order, nil
}

// List returns orders matching the filter, newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	pageSize := pagination.ClampPageSize(filter.Pagination.PageSize)

	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if phone := strings.TrimSpace(filter.CustomerPhone); phone != "" {
			q = q.Where("customer_phone", "==", phone)
		}
		if len(filter.Statuses) > 0 {
			q = q.Where("status", "in", stringsOf(filter.Statuses))
		}
		if len(filter.CoordinatorTypes) > 0 {
			q = q.Where("coordinator_type", "in", stringsOf(filter.CoordinatorTypes))
		}
		if len(filter.Segments) > 0 {
			q = q.Where("segment", "in", stringsOf(filter.Segments))
		}
		if filter.DateRange.From != nil {
			q = q.Where("created_at", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			q = q.Where("created_at", "<=", filter.DateRange.To.UTC())
		}
		q = q.OrderBy("created_at", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Asc)
		if len(cursor.StartAfter) > 0 {
			q = q.StartAfter(cursor.StartAfter...)
		}
		return q.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	page := domain.CursorPage[domain.Order]{
		Items: make([]domain.Order, 0, len(docs)),
	}
	for i, doc := range docs {
		if i == pageSize {
			break
		}
		order := toDomainOrder(doc.Data)
		order.OrderID = doc.ID
		page.Items = append(page.Items, order)
	}

	if len(docs) > pageSize {
		last := docs[pageSize-1]
		token, err := pagination.EncodeToken(pagination.Cursor{
			StartAfter: []any{last.Data.CreatedAt, last.ID},
		})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		page.NextPageToken = token
	}

	return page, nil
}

// Transition reads the order inside a transaction, applies mutate, and writes
// the result back. Concurrent transitions on the same order serialise through
// Firestore's optimistic transaction retries.
func (r *OrderRepository) Transition(ctx context.Context, orderID string, mutate func(order *domain.Order) error) (domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, errors.New("order id is required")
	}
	if mutate == nil {
		return domain.Order{}, errors.New("mutate function is required")
	}

	var updated domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}

		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}

		doc, err := pfirestore.DecodeSnapshot[orderDocument](snap)
		if err != nil {
			return err
		}

		order := toDomainOrder(doc.Data)
		order.OrderID = doc.ID

		if err := mutate(&order); err != nil {
			return err
		}

		updated = order
		return tx.Set(ref, fromDomainOrder(order))
	})
	if err != nil {
		return domain.Order{}, err
	}

	return updated, nil
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}

type orderDocument struct {
	OrderID          string                 `firestore:"order_id"`
	CustomerPhone    string                 `firestore:"customer_phone"`
	Segment          string                 `firestore:"segment"`
	Business         businessDocument       `firestore:"business"`
	Lines            []orderLineDocument    `firestore:"lines"`
	Total            int64                  `firestore:"total"`
	CoordinatorName  string                 `firestore:"coordinator_name"`
	CoordinatorPhone string                 `firestore:"coordinator_contact"`
	CoordinatorType  string                 `firestore:"coordinator_type"`
	Status           string                 `firestore:"status"`
	StatusHistory    []statusChangeDocument `firestore:"status_history"`
	CancellationNote string                 `firestore:"cancellation_note,omitempty"`
	CreatedAt        time.Time              `firestore:"created_at"`
	UpdatedAt        time.Time              `firestore:"updated_at"`
}

type businessDocument struct {
	Name          string `firestore:"name,omitempty"`
	City          string `firestore:"city,omitempty"`
	Address       string `firestore:"address,omitempty"`
	ContactPerson string `firestore:"contact_person,omitempty"`
}

type orderLineDocument struct {
	Name      string `firestore:"name"`
	Quantity  int64  `firestore:"quantity"`
	UnitPrice int64  `firestore:"unit_price"`
	Subtotal  int64  `firestore:"subtotal"`
}

type statusChangeDocument struct {
	Status     string    `firestore:"status"`
	Timestamp  time.Time `firestore:"timestamp"`
	OperatorID string    `firestore:"operator_id,omitempty"`
	Note       string    `firestore:"note,omitempty"`
}

func toDomainOrder(doc orderDocument) domain.Order {
	lines := make([]domain.CartLine, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		lines = append(lines, domain.CartLine{
			Name:      line.Name,
			Quantity:  int(line.Quantity),
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		})
	}

	history := make([]domain.StatusChange, 0, len(doc.StatusHistory))
	for _, change := range doc.StatusHistory {
		history = append(history, domain.StatusChange{
			Status:     domain.OrderStatus(change.Status),
			Timestamp:  change.Timestamp,
			OperatorID: change.OperatorID,
			Note:       change.Note,
		})
	}

	return domain.Order{
		OrderID:       doc.OrderID,
		CustomerPhone: doc.CustomerPhone,
		Segment:       domain.Segment(doc.Segment),
		Business: domain.BusinessSnapshot{
			BusinessName:  doc.Business.Name,
			City:          doc.Business.City,
			Address:       doc.Business.Address,
			ContactPerson: doc.Business.ContactPerson,
		},
		Lines: lines,
		Total: doc.Total,
		Coordinator: domain.Coordinator{
			Name:    doc.CoordinatorName,
			Contact: doc.CoordinatorPhone,
			Type:    domain.CoordinatorType(doc.CoordinatorType),
		},
		Status:           domain.OrderStatus(doc.Status),
		StatusHistory:    history,
		CancellationNote: doc.CancellationNote,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

func fromDomainOrder(order domain.Order) orderDocument {
	lines := make([]orderLineDocument, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineDocument{
			Name:      line.Name,
			Quantity:  int64(line.Quantity),
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		})
	}

	history := make([]statusChangeDocument, 0, len(order.StatusHistory))
	for _, change := range order.StatusHistory {
		history = append(history, statusChangeDocument{
			Status:     string(change.Status),
			Timestamp:  change.Timestamp.UTC(),
			OperatorID: change.OperatorID,
			Note:       change.Note,
		})
	}

	return orderDocument{
		OrderID:       strings.TrimSpace(order.OrderID),
		CustomerPhone: strings.TrimSpace(order.CustomerPhone),
		Segment:       string(order.Segment),
		Business: businessDocument{
			Name:          order.Business.BusinessName,
			City:          order.Business.City,
			Address:       order.Business.Address,
			ContactPerson: order.Business.ContactPerson,
		},
		Lines:            lines,
		Total:            order.Total,
		CoordinatorName:  order.Coordinator.Name,
		CoordinatorPhone: order.Coordinator.Contact,
		CoordinatorType:  string(order.Coordinator.Type),
		Status:           string(order.Status),
		StatusHistory:    history,
		CancellationNote: order.CancellationNote,
		CreatedAt:        order.CreatedAt.UTC(),
		UpdatedAt:        order.UpdatedAt.UTC(),
	}
}
