package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"validation", NewValidationError("bad", nil), CodeValidation, http.StatusBadRequest},
		{"conflict is a bad request", NewConflict("dup", nil), CodeConflict, http.StatusBadRequest},
		{"not found", NewNotFound("complaint", nil), CodeNotFound, http.StatusNotFound},
		{"unauthorized", NewUnauthorized("nope"), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", NewForbidden("nope"), CodeForbidden, http.StatusForbidden},
		{"pgx no rows", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"wrapped sql no rows", fmt.Errorf("load: %w", sql.ErrNoRows), CodeNotFound, http.StatusNotFound},
		{"wrapped domain error", fmt.Errorf("outer: %w", NewForbidden("x")), CodeForbidden, http.StatusForbidden},
		{"unknown", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			if got.Code != tt.wantCode {
				t.Fatalf("code = %s, want %s", got.Code, tt.wantCode)
			}
			if got.HTTPStatus != tt.wantStatus {
				t.Fatalf("status = %d, want %d", got.HTTPStatus, tt.wantStatus)
			}
		})
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	got := ToDomainError(errors.New("pq: relation \"users\" does not exist"))
	if got.Message != "internal server error" {
		t.Fatalf("message leaked cause: %q", got.Message)
	}
	if got.Err == nil {
		t.Fatal("cause should be retained for logging")
	}
}

func TestMapErrorNil(t *testing.T) {
	if MapError(nil) != nil {
		t.Fatal("expected nil")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("ctx: %w", NewConflict("pending", nil))
	if !IsCode(err, CodeConflict) {
		t.Fatal("expected conflict code")
	}
	if IsCode(errors.New("plain"), CodeConflict) {
		t.Fatal("plain error has no code")
	}
}
