package shares_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/dalemusser/homeready/internal/app/features/shares"
	roomstore "github.com/dalemusser/homeready/internal/app/store/rooms"
	sharestore "github.com/dalemusser/homeready/internal/app/store/shares"
	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/domain/models"
	"github.com/dalemusser/homeready/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type selection struct {
	RoomIDs []string `json:"roomIds"`
	ItemIDs []string `json:"itemIds"`
}

func TestServeGenerate(t *testing.T) {
	ds := testutil.NewStore(t)
	fx := testutil.NewFixtures(t, ds)
	h := shares.NewHandler(ds, zap.NewNop())
	router := testutil.APIRouter(func(r chi.Router) { shares.MountRoutes(r, h) })

	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := testutil.NewUser("Owner", "owner@example.com")
	home := fx.CreateHome(ctx, owner.ID, "Casa")
	kitchen := fx.CreateRoom(ctx, home.ID, "Cozinha", 0)
	bedroom := fx.CreateRoom(ctx, home.ID, "Quarto", 1)
	pan := fx.CreateItem(ctx, kitchen, "Panela", models.NecessityHigh)
	bed := fx.CreateItem(ctx, bedroom, "Cama", models.NecessityHigh)

	rec := testutil.Serve(router, testutil.WithUser(testutil.JSONRequest(t, "POST", "/api/homes/"+home.ID+"/shares",
		selection{RoomIDs: []string{bedroom.ID, kitchen.ID}, ItemIDs: []string{pan.ID, bed.ID, pan.ID}}), owner))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.ID == "" || !strings.HasSuffix(resp.URL, resp.ID) {
		t.Fatalf("response = %+v", resp)
	}

	if err := roomstore.New(ds).Delete(ctx, kitchen.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	snap, err := sharestore.New(ds).Load(ctx, resp.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := snap.Share.RoomsIncluded; len(got) != 2 || got[0] != bedroom.ID || got[1] != kitchen.ID {
		t.Errorf("roomsIncluded = %v, want selection order", got)
	}
	if len(snap.Rooms) != 2 || len(snap.Items) != 2 {
		t.Errorf("snapshot has %d rooms, %d items; want 2, 2", len(snap.Rooms), len(snap.Items))
	}
}

func TestServeGenerate_Rejections(t *testing.T) {
	ds := testutil.NewStore(t)
	fx := testutil.NewFixtures(t, ds)
	h := shares.NewHandler(ds, zap.NewNop())
	router := testutil.APIRouter(func(r chi.Router) { shares.MountRoutes(r, h) })

	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := testutil.NewUser("Owner", "owner@example.com")
	stranger := testutil.NewUser("Stranger", "s@example.com")
	home := fx.CreateHome(ctx, owner.ID, "Casa")
	other := fx.CreateHome(ctx, owner.ID, "Praia")
	kitchen := fx.CreateRoom(ctx, home.ID, "Cozinha", 0)
	pan := fx.CreateItem(ctx, kitchen, "Panela", models.NecessityHigh)
	foreign := fx.CreateRoom(ctx, other.ID, "Varanda", 0)
	foreignItem := fx.CreateItem(ctx, foreign, "Rede", models.NecessityLow)

	tests := []struct {
		name string
		user testutil.TestUser
		sel  selection
		want int
	}{
		{"no rooms", owner, selection{ItemIDs: []string{pan.ID}}, http.StatusBadRequest},
		{"no items", owner, selection{RoomIDs: []string{kitchen.ID}}, http.StatusBadRequest},
		{"room from another home", owner, selection{RoomIDs: []string{foreign.ID}, ItemIDs: []string{pan.ID}}, http.StatusBadRequest},
		{"item from another home", owner, selection{RoomIDs: []string{kitchen.ID}, ItemIDs: []string{foreignItem.ID}}, http.StatusBadRequest},
		{"unknown item", owner, selection{RoomIDs: []string{kitchen.ID}, ItemIDs: []string{"nope"}}, http.StatusBadRequest},
		{"not a member", stranger, selection{RoomIDs: []string{kitchen.ID}, ItemIDs: []string{pan.ID}}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.Serve(router, testutil.WithUser(testutil.JSONRequest(t, "POST", "/api/homes/"+home.ID+"/shares", tt.sel), tt.user))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	var all []models.Share
	if err := ds.Find(ctx, models.SharesCollection, docstore.Query{}, &all); err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("rejected requests wrote %d shares", len(all))
	}
}

func TestServeGenerate_ItemOutsideSelectedRooms(t *testing.T) {
	ds := testutil.NewStore(t)
	fx := testutil.NewFixtures(t, ds)
	h := shares.NewHandler(ds, zap.NewNop())
	router := testutil.APIRouter(func(r chi.Router) { shares.MountRoutes(r, h) })

	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := testutil.NewUser("Owner", "owner@example.com")
	home := fx.CreateHome(ctx, owner.ID, "Casa")
	kitchen := fx.CreateRoom(ctx, home.ID, "Cozinha", 0)
	bedroom := fx.CreateRoom(ctx, home.ID, "Quarto", 1)
	pan := fx.CreateItem(ctx, kitchen, "Panela", models.NecessityHigh)
	bed := fx.CreateItem(ctx, bedroom, "Cama", models.NecessityHigh)

	rec := testutil.Serve(router, testutil.WithUser(testutil.JSONRequest(t, "POST", "/api/homes/"+home.ID+"/shares",
		selection{RoomIDs: []string{kitchen.ID}, ItemIDs: []string{pan.ID, bed.ID}}), owner))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	var items []models.ShareItem
	var resp struct {
		ID string `json:"id"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if err := ds.Find(ctx, docstore.Sub(models.SharesCollection, resp.ID, "items"), docstore.Query{}, &items); err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("share has %d items, want 2", len(items))
	}
}
