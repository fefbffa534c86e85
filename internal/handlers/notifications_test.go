package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/avicolanorte/api/internal/domain"
	"github.com/avicolanorte/api/internal/platform/auth"
	"github.com/avicolanorte/api/internal/repositories"
	"github.com/avicolanorte/api/internal/services"
)

type stubNotificationService struct {
	notifyFn func(ctx context.Context, kind domain.NotificationKind, payload services.NotificationPayload) ([]services.NotificationRecord, error)
	listFn   func(ctx context.Context, recipientID string, filter repositories.NotificationListFilter) (domain.CursorPage[services.NotificationRecord], error)
	markFn   func(ctx context.Context, notificationID string, operator services.Operator) (services.NotificationRecord, error)
}

func (s *stubNotificationService) Notify(ctx context.Context, kind domain.NotificationKind, payload services.NotificationPayload) ([]services.NotificationRecord, error) {
	if s.notifyFn != nil {
		return s.notifyFn(ctx, kind, payload)
	}
	return nil, nil
}

func (s *stubNotificationService) ListForRecipient(ctx context.Context, recipientID string, filter repositories.NotificationListFilter) (domain.CursorPage[services.NotificationRecord], error) {
	if s.listFn != nil {
		return s.listFn(ctx, recipientID, filter)
	}
	return domain.CursorPage[services.NotificationRecord]{}, nil
}

func (s *stubNotificationService) MarkRead(ctx context.Context, notificationID string, operator services.Operator) (services.NotificationRecord, error) {
	if s.markFn != nil {
		return s.markFn(ctx, notificationID, operator)
	}
	return services.NotificationRecord{}, services.ErrNotificationNotFound
}

func newNotificationRouter(notifications services.NotificationService, identity *auth.Identity) http.Handler {
	handlers := NewNotificationHandlers(nil, notifications)
	r := chi.NewRouter()
	r.Use(identityMiddleware(identity))
	r.Route("/notifications", handlers.Routes)
	return r
}

func TestListNotificationsScopesToCaller(t *testing.T) {
	var capturedRecipient string
	var capturedFilter repositories.NotificationListFilter
	notifications := &stubNotificationService{
		listFn: func(_ context.Context, recipientID string, filter repositories.NotificationListFilter) (domain.CursorPage[services.NotificationRecord], error) {
			capturedRecipient = recipientID
			capturedFilter = filter
			return domain.CursorPage[services.NotificationRecord]{Items: []services.NotificationRecord{{
				ID:          "notif-1",
				RecipientID: recipientID,
				Kind:        domain.NotificationNewOrder,
				Message:     "Nuevo pedido AV-20260302-0001",
				ReferenceID: "AV-20260302-0001",
				CreatedAt:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
			}}}, nil
		},
	}
	router := newNotificationRouter(notifications, coordinatorIdentity(domain.CoordinatorCommercial))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications?unread_only=true&page_size=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if capturedRecipient != "coord-1" {
		t.Fatalf("expected caller scoping, got recipient %q", capturedRecipient)
	}
	if !capturedFilter.UnreadOnly || capturedFilter.Pagination.PageSize != 10 {
		t.Fatalf("unexpected filter %+v", capturedFilter)
	}

	var body notificationListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].Kind != "new_order" {
		t.Fatalf("unexpected items %+v", body.Items)
	}
}

func TestMarkReadPassesOperator(t *testing.T) {
	var capturedOperator services.Operator
	notifications := &stubNotificationService{
		markFn: func(_ context.Context, notificationID string, operator services.Operator) (services.NotificationRecord, error) {
			capturedOperator = operator
			return services.NotificationRecord{ID: notificationID, RecipientID: operator.ID, Read: true}, nil
		},
	}
	router := newNotificationRouter(notifications, coordinatorIdentity(domain.CoordinatorHoreca))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications/notif-1/read", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if capturedOperator.ID != "coord-1" || capturedOperator.Role != domain.RoleCoordinator {
		t.Fatalf("unexpected operator %+v", capturedOperator)
	}

	var payload notificationPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Read {
		t.Fatal("expected read flag in response")
	}
}

func TestMarkReadMapsNotFound(t *testing.T) {
	router := newNotificationRouter(&stubNotificationService{}, adminIdentity())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications/missing/read", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
