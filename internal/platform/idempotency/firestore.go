package idempotency

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultCollection  = "webhook_events"
	defaultMaxAttempts = 5
)

// FirestoreOption customises the FirestoreStore behaviour.
type FirestoreOption func(*FirestoreStore)

// WithCollection overrides the collection name used to store processed message IDs.
func WithCollection(name string) FirestoreOption {
	return func(store *FirestoreStore) {
		if name != "" {
			store.collection = name
		}
	}
}

// WithMaxAttempts configures the transaction retry attempts.
func WithMaxAttempts(attempts int) FirestoreOption {
	return func(store *FirestoreStore) {
		if attempts > 0 {
			store.maxAttempts = attempts
		}
	}
}

// FirestoreStore implements Store backed by Google Cloud Firestore. Instances
// of the engine share the collection, so dedup holds across replicas.
type FirestoreStore struct {
	client      *firestore.Client
	collection  string
	maxAttempts int
}

// NewFirestoreStore constructs a Firestore-backed dedup store.
func NewFirestoreStore(client *firestore.Client, opts ...FirestoreOption) *FirestoreStore {
	store := &FirestoreStore{
		client:      client,
		collection:  defaultCollection,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

type firestoreRecord struct {
	MessageID   string    `firestore:"message_id"`
	ProcessedAt time.Time `firestore:"processed_at"`
	ExpiresAt   time.Time `firestore:"expires_at"`
}

// MarkProcessed records the message ID transactionally so concurrent webhook
// deliveries of the same event resolve to a single owner.
func (s *FirestoreStore) MarkProcessed(ctx context.Context, messageID string, now time.Time, ttl time.Duration) (bool, error) {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	ref := s.client.Collection(s.collection).Doc(documentID(messageID))
	attempts := s.maxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var owned bool
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				owned = true
				return tx.Set(ref, firestoreRecord{
					MessageID:   messageID,
					ProcessedAt: now,
					ExpiresAt:   now.Add(ttl),
				})
			}
			return err
		}

		var record firestoreRecord
		if err := snap.DataTo(&record); err != nil {
			return err
		}

		// Expired records are reclaimed as if unseen.
		if !record.ExpiresAt.IsZero() && !now.Before(record.ExpiresAt) {
			owned = true
			return tx.Set(ref, firestoreRecord{
				MessageID:   messageID,
				ProcessedAt: now,
				ExpiresAt:   now.Add(ttl),
			})
		}

		owned = false
		return nil
	}, firestore.MaxAttempts(attempts))

	return owned, err
}

// Release deletes the record for the message ID so a redelivery is processed again.
func (s *FirestoreStore) Release(ctx context.Context, messageID string) error {
	ref := s.client.Collection(s.collection).Doc(documentID(messageID))
	_, err := ref.Delete(ctx)
	return err
}

// CleanupExpired removes expired records up to the provided limit.
func (s *FirestoreStore) CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	now = now.UTC()
	if limit <= 0 {
		limit = 100
	}

	query := s.client.Collection(s.collection).Where("expires_at", "<=", now).Limit(limit)
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	batch := s.client.Batch()
	for _, doc := range docs {
		batch.Delete(doc.Ref)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return 0, err
	}

	return len(docs), nil
}
