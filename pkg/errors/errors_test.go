package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.StatusCode() != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.StatusCode())
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   &AppError{Code: CodeNotFound, Message: "Booking not found"},
			expected: "NOT_FOUND: Booking not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeStore,
				Message: "Failed to save booking",
				Err:     errors.New("disk full"),
			},
			expected: "STORE_ERROR: Failed to save booking (caused by: disk full)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("connection refused")
	appErr := StoreFailure("Failed to load bookings", originalErr)

	if !errors.Is(appErr, originalErr) {
		t.Errorf("errors.Is should reach the wrapped error")
	}
}

func TestAppError_StatusCodeDefaultsToInternal(t *testing.T) {
	err := &AppError{Code: "SOMETHING"}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Errorf("expected default status 500, got %d", err.StatusCode())
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFoundWithID("Booking", 1234), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("bad body"), CodeInvalidInput, http.StatusBadRequest},
		{"forbidden", Forbidden("email mismatch"), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("locked"), CodeConflict, http.StatusConflict},
		{"slot unavailable", SlotUnavailable("taken", nil), CodeSlotUnavailable, http.StatusConflict},
		{"store", StoreFailure("write failed", errors.New("io")), CodeStore, http.StatusServiceUnavailable},
		{"id exhausted", IDExhausted("no ids"), CodeIDExhausted, http.StatusServiceUnavailable},
		{"internal", Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
		{"timeout", Timeout("slow"), CodeTimeout, http.StatusServiceUnavailable},
		{"rate limited", RateLimited("slow down"), CodeRateLimited, http.StatusTooManyRequests},
		{"unavailable", Unavailable("Booking store"), CodeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, tt.err.StatusCode())
			}
		})
	}
}

func TestNotFoundWithID_Details(t *testing.T) {
	err := NotFoundWithID("Booking", 4821)

	if err.Details["id"] != 4821 {
		t.Errorf("expected id 4821, got %v", err.Details["id"])
	}
	if err.Details["resource"] != "Booking" {
		t.Errorf("expected resource 'Booking', got %v", err.Details["resource"])
	}
}

func TestAsAppError(t *testing.T) {
	appErr := Forbidden("email mismatch")
	wrapped := fmt.Errorf("cancel: %w", appErr)
	regularErr := errors.New("regular error")

	if got := AsAppError(wrapped); got != appErr {
		t.Errorf("AsAppError() should unwrap to the same AppError")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}

	if !IsAppError(wrapped) || IsAppError(regularErr) {
		t.Errorf("IsAppError() misclassified errors")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("create: %w", SlotUnavailable("taken", nil))
	if !HasCode(err, CodeSlotUnavailable) {
		t.Error("expected HasCode to find SLOT_UNAVAILABLE through wrapping")
	}
	if HasCode(err, CodeNotFound) {
		t.Error("HasCode matched the wrong code")
	}
	if HasCode(errors.New("plain"), CodeInternal) {
		t.Error("plain errors carry no code")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	err := NotFoundWithID("Booking", 1234)

	var decoded ErrorResponse
	if jsonErr := json.Unmarshal(err.ToJSON(), &decoded); jsonErr != nil {
		t.Fatalf("ToJSON() returned invalid JSON: %v", jsonErr)
	}
	if decoded.Code != CodeNotFound {
		t.Errorf("expected code %s, got %s", CodeNotFound, decoded.Code)
	}
	if decoded.Error != "Booking not found" {
		t.Errorf("expected message 'Booking not found', got %s", decoded.Error)
	}
}
