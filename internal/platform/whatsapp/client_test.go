package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avicolanorte/api/internal/platform/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.WhatsAppConfig{
		APIBaseURL:    server.URL,
		PhoneNumberID: "1115550000",
		AccessToken:   "token",
		SendTimeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestSendTextPostsMessage(t *testing.T) {
	var captured sendTextRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1115550000/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("unexpected authorization header %s", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]string{{"id": "wamid.abc"}},
		})
	})

	if err := client.SendText(context.Background(), "573001112233", "Hola"); err != nil {
		t.Fatalf("SendText returned error: %v", err)
	}

	if captured.To != "573001112233" {
		t.Errorf("unexpected recipient %s", captured.To)
	}
	if captured.Text.Body != "Hola" {
		t.Errorf("unexpected body %s", captured.Text.Body)
	}
	if captured.MessagingProduct != "whatsapp" {
		t.Errorf("unexpected messaging product %s", captured.MessagingProduct)
	}
}

func TestSendTextSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid recipient", "type": "OAuthException", "code": 131026},
		})
	})

	err := client.SendText(context.Background(), "000", "Hola")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
}

func TestSendTextValidatesInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	if err := client.SendText(context.Background(), "", "Hola"); err == nil {
		t.Error("expected error for empty phone")
	}
	if err := client.SendText(context.Background(), "573001112233", "  "); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	if _, err := NewClient(config.WhatsAppConfig{AccessToken: "t"}); err == nil {
		t.Error("expected error for missing phone number id")
	}
	if _, err := NewClient(config.WhatsAppConfig{PhoneNumberID: "1"}); err == nil {
		t.Error("expected error for missing access token")
	}
}
