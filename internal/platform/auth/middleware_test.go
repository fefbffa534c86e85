package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/avicolanorte/api/internal/domain"
)

type stubVerifier struct {
	token *firebaseauth.Token
	err   error
}

func (s *stubVerifier) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	return s.token, s.err
}

func operatorToken(uid string, claims map[string]interface{}) *firebaseauth.Token {
	return &firebaseauth.Token{UID: uid, Claims: claims}
}

func TestRequireOperatorPopulatesIdentity(t *testing.T) {
	verifier := &stubVerifier{token: operatorToken("op-1", map[string]interface{}{
		"role":             "coordinator",
		"coordinator_type": "horeca",
		"email":            "coordinador@avicolanorte.co",
		"name":             "Laura",
	})}
	authenticator := NewAuthenticator(verifier)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer token")

	handler := authenticator.RequireOperator()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatal("expected identity in context")
		}
		if identity.UID != "op-1" {
			t.Errorf("unexpected uid %s", identity.UID)
		}
		if identity.Role != domain.RoleCoordinator {
			t.Errorf("unexpected role %s", identity.Role)
		}
		if identity.CoordinatorType != domain.CoordinatorHoreca {
			t.Errorf("unexpected coordinator type %s", identity.CoordinatorType)
		}
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequireOperatorRejectsMissingHeader(t *testing.T) {
	authenticator := NewAuthenticator(&stubVerifier{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)

	authenticator.RequireOperator()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be called")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireOperatorRejectsVerificationError(t *testing.T) {
	authenticator := NewAuthenticator(&stubVerifier{err: errors.New("boom")})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer bad")

	authenticator.RequireOperator()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be called")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireOperatorEnforcesAllowedRoles(t *testing.T) {
	verifier := &stubVerifier{token: operatorToken("op-2", map[string]interface{}{
		"role": "home_desk",
	})}
	authenticator := NewAuthenticator(verifier)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/op-9/deactivate", nil)
	req.Header.Set("Authorization", "Bearer token")

	authenticator.RequireOperator(domain.RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be called")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequireOperatorRejectsMissingRole(t *testing.T) {
	verifier := &stubVerifier{token: operatorToken("op-3", map[string]interface{}{})}
	authenticator := NewAuthenticator(verifier)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer token")

	authenticator.RequireOperator()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be called")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
