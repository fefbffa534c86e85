package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avicolanorte/api/internal/platform/httpx"
	"github.com/avicolanorte/api/internal/platform/idempotency"
	"github.com/avicolanorte/api/internal/platform/observability"
	"github.com/avicolanorte/api/internal/platform/whatsapp"
	"github.com/avicolanorte/api/internal/services"
)

const maxWebhookBodySize = 256 * 1024

var (
	errWebhookConversationsRequired = errors.New("webhook handlers require a conversation service")
	errWebhookSenderRequired        = errors.New("webhook handlers require a message sender")
	errWebhookDedupeRequired        = errors.New("webhook handlers require an idempotency store")
	errWebhookSecretRequired        = errors.New("webhook handlers require the app secret")
	errWebhookTokenRequired         = errors.New("webhook handlers require the verify token")
)

// WebhookHandlersDeps carries the dependencies for the WhatsApp webhook endpoints.
type WebhookHandlersDeps struct {
	Conversations services.ConversationService
	Sender        whatsapp.Sender
	Dedupe        idempotency.Store
	AppSecret     string
	VerifyToken   string
	DedupeTTL     time.Duration
	Clock         func() time.Time
	Logger        services.Logger
}

// WebhookHandlers receives WhatsApp Cloud API callbacks and feeds them into
// the conversation dialogue.
type WebhookHandlers struct {
	conversations services.ConversationService
	sender        whatsapp.Sender
	dedupe        idempotency.Store
	appSecret     string
	verifyToken   string
	dedupeTTL     time.Duration
	now           func() time.Time
	log           services.Logger
}

// NewWebhookHandlers constructs webhook handlers after validating dependencies.
func NewWebhookHandlers(deps WebhookHandlersDeps) (*WebhookHandlers, error) {
	if deps.Conversations == nil {
		return nil, errWebhookConversationsRequired
	}
	if deps.Sender == nil {
		return nil, errWebhookSenderRequired
	}
	if deps.Dedupe == nil {
		return nil, errWebhookDedupeRequired
	}
	if strings.TrimSpace(deps.AppSecret) == "" {
		return nil, errWebhookSecretRequired
	}
	if strings.TrimSpace(deps.VerifyToken) == "" {
		return nil, errWebhookTokenRequired
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopHandlerLogger
	}
	ttl := deps.DedupeTTL
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}

	return &WebhookHandlers{
		conversations: deps.Conversations,
		sender:        deps.Sender,
		dedupe:        deps.Dedupe,
		appSecret:     deps.AppSecret,
		verifyToken:   deps.VerifyToken,
		dedupeTTL:     ttl,
		now:           func() time.Time { return clock().UTC() },
		log:           logger,
	}, nil
}

func noopHandlerLogger(context.Context, string, map[string]any) {}

// Routes registers the /webhooks endpoints.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/whatsapp", h.verify)
	r.Post("/whatsapp", h.receive)
}

// verify answers the Meta subscription handshake.
func (h *WebhookHandlers) verify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode != "subscribe" || token != h.verifyToken || challenge == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("verification_failed", "webhook verification failed", http.StatusForbidden))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// WhatsApp Cloud API callback payload, reduced to the fields the dialogue needs.
type webhookEnvelope struct {
	Entry []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Value webhookValue `json:"value"`
}

type webhookValue struct {
	Messages []webhookMessage `json:"messages"`
}

type webhookMessage struct {
	ID   string       `json:"id"`
	From string       `json:"from"`
	Type string       `json:"type"`
	Text *webhookText `json:"text"`
}

type webhookText struct {
	Body string `json:"body"`
}

func (h *WebhookHandlers) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxWebhookBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		}
		return
	}

	if !whatsapp.VerifySignature(h.appSecret, body, r.Header.Get(whatsapp.SignatureHeader)) {
		h.log(ctx, "webhook.signature_rejected", nil)
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "payload signature verification failed", http.StatusUnauthorized))
		return
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	// Any per-message infrastructure failure fails the whole delivery so
	// Meta redelivers; handled messages are shielded by the dedupe store.
	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			for _, message := range change.Value.Messages {
				if err := h.handleMessage(ctx, message); err != nil {
					h.log(ctx, "webhook.message_failed", map[string]any{
						"messageId": message.ID,
						"phone":     observability.SanitizePhone(message.From),
						"error":     err.Error(),
					})
					httpx.WriteError(ctx, w, httpx.NewError("webhook_error", "failed to process webhook delivery", http.StatusInternalServerError))
					return
				}
			}
		}
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "received"})
}

func (h *WebhookHandlers) handleMessage(ctx context.Context, message webhookMessage) error {
	if message.Type != "text" || message.Text == nil || strings.TrimSpace(message.Text.Body) == "" {
		h.log(ctx, "webhook.message_skipped", map[string]any{
			"messageId": message.ID,
			"type":      message.Type,
		})
		return nil
	}
	if strings.TrimSpace(message.From) == "" || strings.TrimSpace(message.ID) == "" {
		h.log(ctx, "webhook.message_skipped", map[string]any{"reason": "missing sender or id"})
		return nil
	}

	owned, err := h.dedupe.MarkProcessed(ctx, message.ID, h.now(), h.dedupeTTL)
	if err != nil {
		return err
	}
	if !owned {
		h.log(ctx, "webhook.message_duplicate", map[string]any{"messageId": message.ID})
		return nil
	}

	replies, err := h.conversations.HandleInboundMessage(ctx, message.From, message.Text.Body)
	if err != nil {
		// Give the claim back so the redelivery is not skipped as a duplicate.
		if releaseErr := h.dedupe.Release(ctx, message.ID); releaseErr != nil {
			h.log(ctx, "webhook.dedupe_release_failed", map[string]any{
				"messageId": message.ID,
				"error":     releaseErr.Error(),
			})
		}
		return err
	}

	// Reply delivery is best effort. The dialogue state already advanced,
	// so a send failure must not trigger a redelivery loop.
	for _, reply := range replies {
		if err := h.sender.SendText(ctx, message.From, reply); err != nil {
			h.log(ctx, "webhook.reply_send_failed", map[string]any{
				"messageId": message.ID,
				"phone":     observability.SanitizePhone(message.From),
				"error":     err.Error(),
			})
		}
	}
	return nil
}
