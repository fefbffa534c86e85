package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DefaultTTL is the default duration processed message IDs are retained.
// WhatsApp redelivers webhook events for up to a day, so records must outlive that window.
const DefaultTTL = 24 * time.Hour

// Store records webhook message IDs that have already been processed.
// WhatsApp delivers events at least once; the store turns that into at-most-once handling.
type Store interface {
	// MarkProcessed records the message ID if it has not been seen within the TTL.
	// The boolean reports whether the caller owns processing (true) or the
	// message was already handled (false).
	MarkProcessed(ctx context.Context, messageID string, now time.Time, ttl time.Duration) (bool, error)

	// Release gives a claimed message ID back so a later redelivery is
	// processed again. Callers use it when handling failed after MarkProcessed.
	Release(ctx context.Context, messageID string) error

	// CleanupExpired removes expired records up to the provided limit and
	// returns how many were deleted.
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

func documentID(messageID string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(messageID)))
	return hex.EncodeToString(sum[:])
}
