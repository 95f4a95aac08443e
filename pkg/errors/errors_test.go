package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input app error", InvalidInput("bad page %d", 0), http.StatusBadRequest},
		{"database app error", Database(sql.ErrConnDone), http.StatusInternalServerError},
		{"bare invalid sentinel", fmt.Errorf("wrapped: %w", ErrInvalidInput), http.StatusBadRequest},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDatabaseUnwrapsSentinelAndCause(t *testing.T) {
	err := Database(sql.ErrConnDone)
	if !errors.Is(err, ErrDatabase) {
		t.Error("expected errors.Is(err, ErrDatabase)")
	}
	if !errors.Is(err, sql.ErrConnDone) {
		t.Error("expected errors.Is(err, sql.ErrConnDone)")
	}
	if errors.Is(err, ErrInvalidInput) {
		t.Error("database error must not match ErrInvalidInput")
	}
	if err.Message != sql.ErrConnDone.Error() {
		t.Errorf("Message = %q, want cause text", err.Message)
	}
}

func TestMessage(t *testing.T) {
	if got := Message(InvalidInput("Invalid page: %v", 0)); got != "Invalid page: 0" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(errors.New("secret detail")); got != "internal error" {
		t.Errorf("Message() leaked detail: %q", got)
	}
}
