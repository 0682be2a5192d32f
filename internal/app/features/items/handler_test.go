package items_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/homeready/internal/app/features/items"
	"github.com/dalemusser/homeready/internal/domain/models"
	"github.com/dalemusser/homeready/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (http.Handler, *testutil.Fixtures) {
	t.Helper()
	ds := testutil.NewStore(t)
	h := items.NewHandler(ds, zap.NewNop())
	return testutil.APIRouter(func(r chi.Router) { items.MountRoutes(r, h) }), testutil.NewFixtures(t, ds)
}

func names(list []models.Item) []string {
	out := make([]string, 0, len(list))
	for _, it := range list {
		out = append(out, it.Name)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestItemLifecycleAndView(t *testing.T) {
	router, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := testutil.NewUser("Ana", "ana@example.com")
	home := fx.CreateHome(ctx, user.ID, "Casa")
	kitchen := fx.CreateRoom(ctx, home.ID, "Cozinha", 0)
	bedroom := fx.CreateRoom(ctx, home.ID, "Quarto", 1)

	create := func(room models.Room, name, n string) models.Item {
		t.Helper()
		rec := testutil.Serve(router, testutil.WithUser(testutil.JSONRequest(t, "POST", "/api/rooms/"+room.ID+"/items",
			map[string]string{"name": name, "necessityLevel": n}), user))
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %s status = %d, body %s", name, rec.Code, rec.Body.String())
		}
		var it models.Item
		testutil.DecodeJSON(t, rec, &it)
		return it
	}

	abajur := create(bedroom, "Abajur", "low")
	panela := create(kitchen, "Panela", "high")
	pratos := create(kitchen, "Pratos", "")
	if pratos.NecessityLevel != models.NecessityMedium {
		t.Errorf("blank necessity = %q, want medium", pratos.NecessityLevel)
	}

	done := true
	rec := testutil.Serve(router, testutil.WithUser(testutil.JSONRequest(t, "PATCH", "/api/items/"+panela.ID, map[string]any{"done": done}), user))
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d", rec.Code)
	}
	var patched models.Item
	testutil.DecodeJSON(t, rec, &patched)
	if !patched.Done || patched.Name != "Panela" || patched.NecessityLevel != models.NecessityHigh {
		t.Errorf("patched = %+v", patched)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Panela", "Pratos", "Abajur"}},
		{"?sort=status", []string{"Pratos", "Abajur", "Panela"}},
		{"?status=done", []string{"Panela"}},
		{"?status=pending&necessity=low", []string{"Abajur"}},
		{"?room=" + kitchen.ID, []string{"Panela", "Pratos"}},
	}
	for _, tt := range tests {
		rec := testutil.Serve(router, testutil.WithUser(testutil.NewRequest("GET", "/api/homes/"+home.ID+"/items"+tt.query), user))
		if rec.Code != http.StatusOK {
			t.Fatalf("view %q status = %d", tt.query, rec.Code)
		}
		var got []models.Item
		testutil.DecodeJSON(t, rec, &got)
		if !equal(names(got), tt.want) {
			t.Errorf("view %q = %v, want %v", tt.query, names(got), tt.want)
		}
	}

	rec = testutil.Serve(router, testutil.WithUser(testutil.NewRequest("DELETE", "/api/items/"+abajur.ID), user))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	rec = testutil.Serve(router, testutil.WithUser(testutil.NewRequest("GET", "/api/homes/"+home.ID+"/items?necessity=low"), user))
	var low []models.Item
	testutil.DecodeJSON(t, rec, &low)
	if len(low) != 0 {
		t.Errorf("deleted item still listed: %v", names(low))
	}
}

func TestItemValidation(t *testing.T) {
	router, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := testutil.NewUser("Ana", "ana@example.com")
	home := fx.CreateHome(ctx, user.ID, "Casa")
	room := fx.CreateRoom(ctx, home.ID, "Sala", 0)
	item := fx.CreateItem(ctx, room, "Sofá", models.NecessityHigh)

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"duplicate", "POST", "/api/rooms/" + room.ID + "/items", map[string]string{"name": "sofa"}, http.StatusConflict},
		{"empty name", "POST", "/api/rooms/" + room.ID + "/items", map[string]string{"name": " "}, http.StatusBadRequest},
		{"bad necessity", "POST", "/api/rooms/" + room.ID + "/items", map[string]string{"name": "Mesa", "necessityLevel": "urgent"}, http.StatusBadRequest},
		{"missing room", "POST", "/api/rooms/nope/items", map[string]string{"name": "Mesa"}, http.StatusNotFound},
		{"patch bad necessity", "PATCH", "/api/items/" + item.ID, map[string]string{"necessityLevel": "urgent"}, http.StatusBadRequest},
		{"patch missing", "PATCH", "/api/items/nope", map[string]bool{"done": true}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.Serve(router, testutil.WithUser(testutil.JSONRequest(t, tt.method, tt.target, tt.body), user))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := testutil.Serve(router, testutil.WithUser(testutil.NewRequest("GET", "/api/homes/"+home.ID+"/items?status=later"), user))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status filter = %d, want 400", rec.Code)
	}
}

func TestForeignItemIsForbidden(t *testing.T) {
	router, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := testutil.NewUser("Owner", "o@example.com")
	stranger := testutil.NewUser("Stranger", "s@example.com")
	home := fx.CreateHome(ctx, owner.ID, "Casa")
	room := fx.CreateRoom(ctx, home.ID, "Sala", 0)
	item := fx.CreateItem(ctx, room, "Sofá", models.NecessityHigh)

	rec := testutil.Serve(router, testutil.WithUser(testutil.JSONRequest(t, "PATCH", "/api/items/"+item.ID, map[string]bool{"done": true}), stranger))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
