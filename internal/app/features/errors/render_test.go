package errors_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/homeready/internal/app/features/errors"
	invitationstore "github.com/dalemusser/homeready/internal/app/store/invitations"
	itemstore "github.com/dalemusser/homeready/internal/app/store/items"
	roomstore "github.com/dalemusser/homeready/internal/app/store/rooms"
	sharestore "github.com/dalemusser/homeready/internal/app/store/shares"
	"github.com/dalemusser/homeready/internal/app/system/authz"
	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/htmlsanitize"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"empty name", roomstore.ErrEmptyName, http.StatusBadRequest, uierrors.CodeValidation},
		{"empty selection", sharestore.ErrEmptySelection, http.StatusBadRequest, uierrors.CodeValidation},
		{"markup in name", fmt.Errorf("room name: %w", htmlsanitize.ErrMarkup), http.StatusBadRequest, uierrors.CodeValidation},
		{"bad necessity", itemstore.ErrInvalidNecessity, http.StatusBadRequest, uierrors.CodeValidation},
		{"duplicate room", fmt.Errorf("create: %w", roomstore.ErrDuplicateName), http.StatusConflict, uierrors.CodeDuplicateName},
		{"duplicate item", itemstore.ErrDuplicateName, http.StatusConflict, uierrors.CodeDuplicateName},
		{"already member", invitationstore.ErrAlreadyMember, http.StatusConflict, uierrors.CodeConflict},
		{"resolved", invitationstore.ErrInvitationResolved, http.StatusConflict, uierrors.CodeStaleState},
		{"missing share", sharestore.ErrNotFound, http.StatusNotFound, uierrors.CodeNotFound},
		{"missing doc", docstore.ErrNotFound, http.StatusNotFound, uierrors.CodeNotFound},
		{"not member", authz.ErrNotMember, http.StatusForbidden, uierrors.CodeForbidden},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, uierrors.CodeUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError, uierrors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := uierrors.Classify(tt.err)
			if status != tt.status || code != tt.code {
				t.Errorf("Classify = %d %s, want %d %s", status, code, tt.status, tt.code)
			}
		})
	}
}

func TestRespond_StaleStateIsWarning(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/invitations/x/accept", nil)

	uierrors.Respond(rec, req, nil, "accept", invitationstore.ErrInvitationResolved)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	var body uierrors.Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Warning || body.Error != uierrors.CodeStaleState {
		t.Errorf("body = %+v", body)
	}
}

func TestRespond_InternalHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/homes", nil)

	uierrors.Respond(rec, req, nil, "list", errors.New("secret detail"))

	var body uierrors.Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message == "secret detail" {
		t.Error("internal error message leaked")
	}
}

func TestNotFoundHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	uierrors.NewHandler().NotFound(rec, httptest.NewRequest("GET", "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}
