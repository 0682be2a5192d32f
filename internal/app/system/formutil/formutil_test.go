package formutil_test

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/homeready/internal/app/system/formutil"
)

type payload struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		limit   int64
		wantErr bool
	}{
		{"ok", `{"name":"Sala","n":2}`, 1024, false},
		{"empty", ``, 1024, true},
		{"syntax", `{"name":`, 1024, true},
		{"type", `{"n":"two"}`, 1024, true},
		{"unknown field", `{"nome":"Sala"}`, 1024, true},
		{"two values", `{"name":"a"} {"name":"b"}`, 1024, true},
		{"too large", `{"name":"` + strings.Repeat("x", 100) + `"}`, 32, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var p payload
			err := formutil.Decode(httptest.NewRecorder(), req, tt.limit, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			var be *formutil.BodyError
			if err != nil && !errors.As(err, &be) {
				t.Errorf("error %T is not a *BodyError", err)
			}
			if !tt.wantErr && (p.Name != "Sala" || p.N != 2) {
				t.Errorf("decoded %+v", p)
			}
		})
	}
}
