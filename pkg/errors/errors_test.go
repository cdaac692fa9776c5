package errors

import (
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindTransport, "boom")
	if KindOf(err) != KindTransport {
		t.Errorf("Expected transport kind, got %s", KindOf(err))
	}

	wrapped := fmt.Errorf("context: %w", err)
	if KindOf(wrapped) != KindTransport {
		t.Errorf("Expected transport kind through wrapping, got %s", KindOf(wrapped))
	}

	if KindOf(fmt.Errorf("plain")) != KindUnknown {
		t.Error("Expected unknown kind for untyped error")
	}
}

func TestIs(t *testing.T) {
	err := New(KindFilesystem, "disk full")

	if !Is(err, KindFilesystem) {
		t.Error("Is should match the error's kind")
	}
	if Is(err, KindTransport) {
		t.Error("Is should not match a different kind")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain transport", New(KindTransport, "reset"), true},
		{"rate limit", WithCode(KindRateLimit, 429, "slow down"), true},
		{"server error", WithCode(KindTransport, 503, "unavailable"), true},
		{"not found", WithCode(KindTransport, 404, "gone"), false},
		{"forbidden", WithCode(KindTransport, 403, "denied"), false},
		{"element not found", New(KindElementNotFound, "no button"), false},
		{"filesystem", New(KindFilesystem, "readonly"), false},
		{"untyped", fmt.Errorf("whatever"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessageIncludesCode(t *testing.T) {
	err := WithCode(KindTransport, 502, "bad gateway")
	msg := err.Error()
	if msg != "transport error (status 502): bad gateway" {
		t.Errorf("Unexpected message: %s", msg)
	}
}
