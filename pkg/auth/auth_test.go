package auth

import (
	"net/http"
	"testing"
)

func TestCredentialHeaderValue(t *testing.T) {
	value, err := TokenCredential("r8_test").HeaderValue()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if value != "Token r8_test" {
		t.Fatalf("unexpected header value: %s", value)
	}

	value, err = BearerCredential("msy_test").HeaderValue()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if value != "Bearer msy_test" {
		t.Fatalf("unexpected header value: %s", value)
	}

	if _, err := TokenCredential("  ").HeaderValue(); err != ErrMissingToken {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestCredentialApply(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if err := BearerCredential("msy_test").Apply(req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer msy_test" {
		t.Fatalf("unexpected Authorization header: %s", got)
	}
}

func TestExtractKey(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("Authorization", "Bearer test-token")

	token, err := ExtractKey(req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token != "test-token" {
		t.Fatalf("unexpected token: %s", token)
	}
}

func TestExtractKeyErrors(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)

	if _, err := ExtractKey(req); err != ErrMissingKey {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}

	req.Header.Set("Authorization", "Key abc")
	if _, err := ExtractKey(req); err != ErrInvalidPrefix {
		t.Fatalf("expected ErrInvalidPrefix, got %v", err)
	}

	req.Header.Set("Authorization", "Bearer ")
	if _, err := ExtractKey(req); err != ErrMissingKey {
		t.Fatalf("expected ErrMissingKey for empty token, got %v", err)
	}
}
