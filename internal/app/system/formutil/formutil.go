// Package formutil decodes JSON request bodies for the API handlers.
//
// Bodies are size limited, must hold exactly one JSON value and may not carry
// unknown fields. Decode errors are returned as *BodyError so handlers can
// answer with a 400 without inspecting the cause.
package formutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// BodyError describes a malformed request body.
type BodyError struct {
	Msg string
}

func (e *BodyError) Error() string { return e.Msg }

// Decode reads r's body into v, allowing at most limit bytes.
func Decode(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return &BodyError{Msg: "request body is empty"}
		case errors.As(err, &syntaxErr):
			return &BodyError{Msg: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)}
		case errors.As(err, &typeErr):
			return &BodyError{Msg: fmt.Sprintf("field %q has the wrong type", typeErr.Field)}
		case errors.As(err, &maxErr):
			return &BodyError{Msg: fmt.Sprintf("request body exceeds %d bytes", limit)}
		}
		return &BodyError{Msg: err.Error()}
	}
	if dec.More() {
		return &BodyError{Msg: "request body must hold a single JSON object"}
	}
	return nil
}
