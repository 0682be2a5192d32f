// internal/app/features/errors/render.go
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	homestore "github.com/dalemusser/homeready/internal/app/store/homes"
	invitationstore "github.com/dalemusser/homeready/internal/app/store/invitations"
	itemstore "github.com/dalemusser/homeready/internal/app/store/items"
	profilestore "github.com/dalemusser/homeready/internal/app/store/profiles"
	roomstore "github.com/dalemusser/homeready/internal/app/store/rooms"
	sharestore "github.com/dalemusser/homeready/internal/app/store/shares"
	"github.com/dalemusser/homeready/internal/app/system/authz"
	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/formutil"
	"github.com/dalemusser/homeready/internal/app/system/htmlsanitize"
	"github.com/dalemusser/homeready/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Error codes carried in the "error" field of JSON error bodies.
const (
	CodeValidation    = "validation_failed"
	CodeDuplicateName = "duplicate_name"
	CodeConflict      = "conflict"
	CodeNotFound      = "not_found"
	CodeForbidden     = "forbidden"
	CodeStaleState    = "stale_state"
	CodeUnavailable   = "store_unavailable"
	CodeInternal      = "internal"
)

// Body is the JSON shape of every error response.
type Body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Warning bool   `json:"warning,omitempty"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes an error body.
func Error(w http.ResponseWriter, status int, code, msg string) {
	JSON(w, status, Body{Error: code, Message: msg})
}

// BadRequest writes a 400 validation failure.
func BadRequest(w http.ResponseWriter, msg string) {
	Error(w, http.StatusBadRequest, CodeValidation, msg)
}

// Classify maps err onto an HTTP status and error code.
func Classify(err error) (status int, code string) {
	var bodyErr *formutil.BodyError
	switch {
	case stderrors.As(err, &bodyErr):
		return http.StatusBadRequest, CodeValidation

	case isAny(err,
		roomstore.ErrEmptyName, roomstore.ErrInvalidOrder, roomstore.ErrInvalidDirection,
		itemstore.ErrEmptyName, itemstore.ErrInvalidNecessity,
		homestore.ErrEmptyName, homestore.ErrInvalidPalette,
		sharestore.ErrEmptySelection, sharestore.ErrForeignSelection,
		invitationstore.ErrSelfInvite, profilestore.ErrMissingUID, htmlsanitize.ErrMarkup):
		return http.StatusBadRequest, CodeValidation

	case isAny(err, roomstore.ErrDuplicateName, itemstore.ErrDuplicateName):
		return http.StatusConflict, CodeDuplicateName

	case isAny(err, invitationstore.ErrAlreadyMember, docstore.ErrDuplicate):
		return http.StatusConflict, CodeConflict

	case isAny(err, invitationstore.ErrInvitationResolved, docstore.ErrConflict):
		return http.StatusConflict, CodeStaleState

	case isAny(err,
		homestore.ErrNotFound, roomstore.ErrNotFound, itemstore.ErrNotFound, itemstore.ErrRoomNotFound,
		invitationstore.ErrNotFound, invitationstore.ErrHomeNotFound,
		sharestore.ErrNotFound, profilestore.ErrNotFound, docstore.ErrNotFound):
		return http.StatusNotFound, CodeNotFound

	case isAny(err, authz.ErrNotMember, authz.ErrNotOwner):
		return http.StatusForbidden, CodeForbidden

	case isAny(err, context.DeadlineExceeded, txn.ErrNotSupported),
		mongo.IsNetworkError(err), mongo.IsTimeout(err),
		stderrors.Is(err, mongo.ErrClientDisconnected):
		return http.StatusServiceUnavailable, CodeUnavailable
	}
	return http.StatusInternalServerError, CodeInternal
}

// Respond writes the error response for err and logs it at a level that
// matches its class: Warn for stale state, Error for backend failures.
func Respond(w http.ResponseWriter, r *http.Request, log *zap.Logger, op string, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	status, code := Classify(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	}

	switch status {
	case http.StatusInternalServerError:
		log.Error("request failed", fields...)
		Error(w, status, code, "something went wrong")
		return
	case http.StatusServiceUnavailable:
		log.Error("store unavailable", fields...)
		Error(w, status, code, "the data store is unavailable, try again")
		return
	case http.StatusConflict:
		if code == CodeStaleState {
			log.Warn("stale state", fields...)
			JSON(w, status, Body{Error: code, Message: err.Error(), Warning: true})
			return
		}
	}
	log.Debug("request rejected", fields...)
	Error(w, status, code, err.Error())
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if stderrors.Is(err, t) {
			return true
		}
	}
	return false
}

// Unauthorized writes the 401 for handlers reached without a principal.
func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "unauthorized", "sign in required")
}
