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

const notificationCollection = "notifications"

// NotificationRepository stores fan-out notification records for operators.
type NotificationRepository struct {
	base *pfirestore.BaseRepository[notificationDocument]
}

// NewNotificationRepository constructs a Firestore-backed notification repository.
func NewNotificationRepository(provider *pfirestore.Provider) (*NotificationRepository, error) {
	if provider == nil {
		return nil, errors.New("notification repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[notificationDocument](provider, notificationCollection)
	return &NotificationRepository{base: base}, nil
}

// Insert writes a single notification record.
func (r *NotificationRepository) Insert(ctx context.Context, record domain.NotificationRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return errors.New("notification id is required")
	}
	if strings.TrimSpace(record.RecipientID) == "" {
		return errors.New("notification recipient is required")
	}

	_, err := r.base.Create(ctx, record.ID, fromDomainNotification(record))
	return err
}

// Get loads a single notification record by id.
func (r *NotificationRepository) Get(ctx context.Context, notificationID string) (domain.NotificationRecord, error) {
	if strings.TrimSpace(notificationID) == "" {
		return domain.NotificationRecord{}, errors.New("notification id is required")
	}

	doc, err := r.base.Get(ctx, notificationID)
	if err != nil {
		return domain.NotificationRecord{}, err
	}

	record := toDomainNotification(doc.Data)
	record.ID = doc.ID
	return record, nil
}

// ListByRecipient returns the recipient's notifications, newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, filter repositories.NotificationListFilter) (domain.CursorPage[domain.NotificationRecord], error) {
	if strings.TrimSpace(recipientID) == "" {
		return domain.CursorPage[domain.NotificationRecord]{}, errors.New("recipient id is required")
	}

	pageSize := pagination.ClampPageSize(filter.Pagination.PageSize)

	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.NotificationRecord]{}, err
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("recipient_id", "==", recipientID)
		if filter.UnreadOnly {
			q = q.Where("read", "==", false)
		}
		q = q.OrderBy("created_at", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Asc)
		if len(cursor.StartAfter) > 0 {
			q = q.StartAfter(cursor.StartAfter...)
		}
		return q.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.NotificationRecord]{}, err
	}

	page := domain.CursorPage[domain.NotificationRecord]{
		Items: make([]domain.NotificationRecord, 0, len(docs)),
	}
	for i, doc := range docs {
		if i == pageSize {
			break
		}
		record := toDomainNotification(doc.Data)
		record.ID = doc.ID
		page.Items = append(page.Items, record)
	}

	if len(docs) > pageSize {
		last := docs[pageSize-1]
		token, err := pagination.EncodeToken(pagination.Cursor{
			StartAfter: []any{last.Data.CreatedAt, last.ID},
		})
		if err != nil {
			return domain.CursorPage[domain.NotificationRecord]{}, err
		}
		page.NextPageToken = token
	}

	return page, nil
}

// MarkRead flips the read flag and returns the updated record.
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID string, readAt time.Time) (domain.NotificationRecord, error) {
	if strings.TrimSpace(notificationID) == "" {
		return domain.NotificationRecord{}, errors.New("notification id is required")
	}

	if _, err := r.base.Update(ctx, notificationID, []firestore.Update{
		{Path: "read", Value: true},
		{Path: "read_at", Value: readAt.UTC()},
	}); err != nil {
		return domain.NotificationRecord{}, err
	}

	doc, err := r.base.Get(ctx, notificationID)
	if err != nil {
		return domain.NotificationRecord{}, err
	}

	record := toDomainNotification(doc.Data)
	record.ID = doc.ID
	return record, nil
}

type notificationDocument struct {
	RecipientID      string     `firestore:"recipient_id"`
	RecipientContact string     `firestore:"recipient_contact,omitempty"`
	Kind             string     `firestore:"kind"`
	Message          string     `firestore:"message"`
	ReferenceID      string     `firestore:"reference_id,omitempty"`
	Read             bool       `firestore:"read"`
	ReadAt           *time.Time `firestore:"read_at,omitempty"`
	CreatedAt        time.Time  `firestore:"created_at"`
}

func toDomainNotification(doc notificationDocument) domain.NotificationRecord {
	return domain.NotificationRecord{
		RecipientID:      doc.RecipientID,
		RecipientContact: doc.RecipientContact,
		Kind:             domain.NotificationKind(doc.Kind),
		Message:          doc.Message,
		ReferenceID:      doc.ReferenceID,
		Read:             doc.Read,
		CreatedAt:        doc.CreatedAt,
	}
}

func fromDomainNotification(record domain.NotificationRecord) notificationDocument {
	return notificationDocument{
		RecipientID:      strings.TrimSpace(record.RecipientID),
		RecipientContact: strings.TrimSpace(record.RecipientContact),
		Kind:             string(record.Kind),
		Message:          record.Message,
		ReferenceID:      record.ReferenceID,
		Read:             record.Read,
		CreatedAt:        record.CreatedAt.UTC(),
	}
}
