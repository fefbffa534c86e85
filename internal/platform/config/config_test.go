package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "avn-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "avn-dev" {
		t.Errorf("expected firestore project to default to firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.PubSub.ProjectID != "avn-dev" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.Sessions.IdleTTL != defaultSessionIdleTTL {
		t.Errorf("unexpected default session idle ttl: %s", cfg.Sessions.IdleTTL)
	}
	if cfg.WhatsApp.APIBaseURL != defaultWhatsAppAPIBaseURL {
		t.Errorf("unexpected default whatsapp base url: %s", cfg.WhatsApp.APIBaseURL)
	}
	if cfg.WhatsApp.DedupTTL != defaultWebhookDedupTTL {
		t.Errorf("unexpected default dedup ttl: %s", cfg.WhatsApp.DedupTTL)
	}
	if cfg.Security.Environment != "local" {
		t.Errorf("expected default security environment local, got %s", cfg.Security.Environment)
	}
	if cfg.Security.OIDC.JWKSURL != defaultOIDCJWKSURL {
		t.Errorf("expected default jwks url %s, got %s", defaultOIDCJWKSURL, cfg.Security.OIDC.JWKSURL)
	}
	if len(cfg.Security.OIDC.Issuers) != 1 {
		t.Errorf("expected default issuers, got %v", cfg.Security.OIDC.Issuers)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":              "9090",
		"API_SERVER_READ_TIMEOUT":      "20s",
		"API_SERVER_IDLE_TIMEOUT":      "2m",
		"API_FIREBASE_PROJECT_ID":      "avn-prod",
		"API_FIRESTORE_PROJECT_ID":     "avn-fire",
		"API_PUBSUB_ORDER_EVENT_TOPIC": "order-events",
		"API_WHATSAPP_PHONE_NUMBER_ID": "1115550000",
		"API_WHATSAPP_ACCESS_TOKEN":    "secret://whatsapp/token",
		"API_WHATSAPP_APP_SECRET":      "secret://whatsapp/app-secret",
		"API_WHATSAPP_VERIFY_TOKEN":    "verify-plain",
		"API_SESSION_IDLE_TTL":         "30m",
		"API_SECURITY_ENVIRONMENT":     "prod",
		"API_SECURITY_OIDC_AUDIENCE":   "https://service.example.com",
		"API_SECURITY_OIDC_ISSUERS":    "https://accounts.google.com, https://cloud.google.com/iap",
		"API_SECURITY_OIDC_JWKS_URL":   "https://example.com/jwks.json",
	}

	secrets := map[string]string{
		"secret://whatsapp/token":      "wa-token",
		"secret://whatsapp/app-secret": "wa-app-secret",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.Firestore.ProjectID != "avn-fire" {
		t.Errorf("expected explicit firestore project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.PubSub.OrderEventTopic != "order-events" {
		t.Errorf("unexpected order event topic %s", cfg.PubSub.OrderEventTopic)
	}
	if cfg.WhatsApp.AccessToken != "wa-token" {
		t.Errorf("expected resolved whatsapp token, got %s", cfg.WhatsApp.AccessToken)
	}
	if cfg.WhatsApp.AppSecret != "wa-app-secret" {
		t.Errorf("expected resolved app secret, got %s", cfg.WhatsApp.AppSecret)
	}
	if cfg.WhatsApp.VerifyToken != "verify-plain" {
		t.Errorf("expected plain verify token passthrough, got %s", cfg.WhatsApp.VerifyToken)
	}
	if cfg.Sessions.IdleTTL != 30*time.Minute {
		t.Errorf("unexpected session idle ttl: %s", cfg.Sessions.IdleTTL)
	}
	if cfg.Security.Environment != "prod" {
		t.Errorf("expected security environment prod, got %s", cfg.Security.Environment)
	}
	if cfg.Security.OIDC.Audience != "https://service.example.com" {
		t.Errorf("unexpected oidc audience %s", cfg.Security.OIDC.Audience)
	}
	if len(cfg.Security.OIDC.Issuers) != 2 {
		t.Errorf("expected 2 issuers, got %v", cfg.Security.OIDC.Issuers)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_SERVER_PORT=7070\nAPI_FIREBASE_PROJECT_ID=avn-dot\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Firebase.ProjectID != "avn-dot" {
		t.Errorf("expected firebase project from dotenv, got %s", cfg.Firebase.ProjectID)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":   "avn-dev",
		"API_WHATSAPP_ACCESS_TOKEN": "secret://missing",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected secret resolution error, got nil")
	}
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if secretErr.Ref != "secret://missing" {
		t.Errorf("unexpected secret ref %s", secretErr.Ref)
	}
}

func TestLoadSupportsLegacySecretScheme(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "avn-dev",
		"API_WHATSAPP_APP_SECRET": "sm://whatsapp/app-secret",
	}

	secrets := map[string]string{
		"secret://whatsapp/app-secret": "legacy-secret",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", &SecretError{Ref: ref, Err: errors.New("not found")}
	})

	cfg, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithSecretResolver(resolver),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.WhatsApp.AppSecret != "legacy-secret" {
		t.Fatalf("expected legacy secret, got %s", cfg.WhatsApp.AppSecret)
	}
}
