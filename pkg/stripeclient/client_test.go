package stripeclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stripe/stripe-go/v84"
)

func TestObfuscateSecretKey(t *testing.T) {
	got := ObfuscateSecretKey("sk_test_abcdefgh1234")
	want := strings.Repeat("*", 20) + "1234"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if strings.Contains(got, "sk_test") {
		t.Fatalf("obfuscated key leaks prefix: %q", got)
	}
}

func TestObfuscateSecretKeyShort(t *testing.T) {
	if got := ObfuscateSecretKey("abc"); got != strings.Repeat("*", 20) {
		t.Fatalf("expected full mask for short key, got %q", got)
	}
}

func TestIsPermissionError(t *testing.T) {
	forbidden := &stripe.Error{HTTPStatusCode: http.StatusForbidden}
	if !IsPermissionError(forbidden) {
		t.Fatalf("expected 403 to be a permission error")
	}
	if IsPermissionError(&stripe.Error{HTTPStatusCode: http.StatusNotFound}) {
		t.Fatalf("404 should not be a permission error")
	}
	if IsPermissionError(errors.New("boom")) {
		t.Fatalf("plain error should not be a permission error")
	}
	wrapped := fmt.Errorf("fetching event: %w", forbidden)
	if !IsPermissionError(wrapped) {
		t.Fatalf("expected wrapped permission error to match")
	}
}

func TestIsMissingResource(t *testing.T) {
	if !IsMissingResource(&stripe.Error{HTTPStatusCode: http.StatusNotFound}) {
		t.Fatalf("expected 404 to be missing resource")
	}
	if !IsMissingResource(&stripe.Error{HTTPStatusCode: http.StatusBadRequest, Msg: "No such customer: cus_123"}) {
		t.Fatalf("expected 'no such' message to be missing resource")
	}
	if IsMissingResource(&stripe.Error{HTTPStatusCode: http.StatusBadRequest, Msg: "invalid amount"}) {
		t.Fatalf("generic bad request should not be missing resource")
	}
}

func TestErrorBody(t *testing.T) {
	stripeErr := &stripe.Error{
		APIResource: stripe.APIResource{
			LastResponse: &stripe.APIResponse{RawJSON: []byte(`{"error":{"message":"nope"}}`)},
		},
	}
	if got := ErrorBody(stripeErr); got != `{"error":{"message":"nope"}}` {
		t.Fatalf("expected raw body, got %q", got)
	}
	if got := ErrorBody(errors.New("plain failure")); got != "plain failure" {
		t.Fatalf("expected fallback to error text, got %q", got)
	}
	if got := ErrorBody(nil); got != "" {
		t.Fatalf("expected empty for nil error, got %q", got)
	}
}
