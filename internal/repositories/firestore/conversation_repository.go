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
)

const (
	conversationCollection = "conversations"
	entrySubcollection     = "entries"
)

// ConversationRepository appends to the per-customer dialogue log stored as a
// subcollection under conversations/{phone}.
type ConversationRepository struct {
	provider *pfirestore.Provider
}

// NewConversationRepository constructs a Firestore-backed conversation repository.
func NewConversationRepository(provider *pfirestore.Provider) (*ConversationRepository, error) {
	if provider == nil {
		return nil, errors.New("conversation repository requires firestore provider")
	}
	return &ConversationRepository{provider: provider}, nil
}

func (r *ConversationRepository) entries(ctx context.Context, phone string) (*firestore.CollectionRef, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("conversations", err)
	}
	return client.Collection(conversationCollection).Doc(phone).Collection(entrySubcollection), nil
}

// Append writes one conversation entry. Entries are immutable once written.
func (r *ConversationRepository) Append(ctx context.Context, entry domain.ConversationEntry) error {
	if strings.TrimSpace(entry.Phone) == "" {
		return errors.New("conversation phone is required")
	}
	if strings.TrimSpace(entry.ID) == "" {
		return errors.New("conversation entry id is required")
	}

	col, err := r.entries(ctx, entry.Phone)
	if err != nil {
		return err
	}

	_, err = col.Doc(entry.ID).Create(ctx, fromDomainEntry(entry))
	return pfirestore.WrapError("conversations.append", err)
}

// ListByPhone returns the customer's conversation entries, oldest first.
func (r *ConversationRepository) ListByPhone(ctx context.Context, phone string, pager domain.Pagination) (domain.CursorPage[domain.ConversationEntry], error) {
	if strings.TrimSpace(phone) == "" {
		return domain.CursorPage[domain.ConversationEntry]{}, errors.New("conversation phone is required")
	}

	pageSize := pagination.ClampPageSize(pager.PageSize)

	cursor, err := pagination.DecodeToken(pager.PageToken)
	if err != nil {
		return domain.CursorPage[domain.ConversationEntry]{}, err
	}

	col, err := r.entries(ctx, phone)
	if err != nil {
		return domain.CursorPage[domain.ConversationEntry]{}, err
	}

	// Entry IDs are ULIDs, so document-ID order is chronological.
	query := col.OrderBy(firestore.DocumentID, firestore.Asc)
	if len(cursor.StartAfter) > 0 {
		query = query.StartAfter(cursor.StartAfter...)
	}

	snaps, err := query.Limit(pageSize + 1).Documents(ctx).GetAll()
	if err != nil {
		return domain.CursorPage[domain.ConversationEntry]{}, pfirestore.WrapError("conversations.list", err)
	}

	page := domain.CursorPage[domain.ConversationEntry]{
		Items: make([]domain.ConversationEntry, 0, len(snaps)),
	}
	for i, snap := range snaps {
		if i == pageSize {
			break
		}
		doc, err := pfirestore.DecodeSnapshot[conversationEntryDocument](snap)
		if err != nil {
			return domain.CursorPage[domain.ConversationEntry]{}, err
		}
		entry := toDomainEntry(doc.Data)
		entry.ID = doc.ID
		entry.Phone = phone
		page.Items = append(page.Items, entry)
	}

	if len(snaps) > pageSize {
		token, err := pagination.EncodeToken(pagination.Cursor{
			StartAfter: []any{snaps[pageSize-1].Ref.ID},
		})
		if err != nil {
			return domain.CursorPage[domain.ConversationEntry]{}, err
		}
		page.NextPageToken = token
	}

	return page, nil
}

type conversationEntryDocument struct {
	Direction string    `firestore:"direction"`
	Text      string    `firestore:"text"`
	OrderRef  string    `firestore:"order_ref,omitempty"`
	CreatedAt time.Time `firestore:"created_at"`
}

func toDomainEntry(doc conversationEntryDocument) domain.ConversationEntry {
	return domain.ConversationEntry{
		Direction: domain.ConversationDirection(doc.Direction),
		Text:      doc.Text,
		OrderRef:  doc.OrderRef,
		CreatedAt: doc.CreatedAt,
	}
}

func fromDomainEntry(entry domain.ConversationEntry) conversationEntryDocument {
	return conversationEntryDocument{
		Direction: string(entry.Direction),
		Text:      entry.Text,
		OrderRef:  entry.OrderRef,
		CreatedAt: entry.CreatedAt.UTC(),
	}
}
