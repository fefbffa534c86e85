package whatsapp

import "testing"

func TestVerifySignature(t *testing.T) {
	secret := "app-secret"
	body := []byte(`{"object":"whatsapp_business_account"}`)

	header := SignPayload(secret, body)
	if !VerifySignature(secret, body, header) {
		t.Fatal("expected valid signature to verify")
	}

	if VerifySignature(secret, []byte("tampered"), header) {
		t.Error("expected tampered body to fail verification")
	}
	if VerifySignature("other-secret", body, header) {
		t.Error("expected wrong secret to fail verification")
	}
	if VerifySignature(secret, body, "sha256=zzzz") {
		t.Error("expected malformed hex to fail verification")
	}
	if VerifySignature(secret, body, "") {
		t.Error("expected missing header to fail verification")
	}
	if VerifySignature("", body, header) {
		t.Error("expected empty secret to fail verification")
	}
}
