package roomstore_test

import (
	"errors"
	"math/rand"
	"testing"

	roomstore "github.com/dalemusser/homeready/internal/app/store/rooms"
	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/htmlsanitize"
	"github.com/dalemusser/homeready/internal/domain/models"
	"github.com/dalemusser/homeready/internal/testutil"
)

func names(rooms []models.Room) []string {
	out := make([]string, len(rooms))
	for i, r := range rooms {
		out[i] = r.Name
	}
	return out
}

func assertPermutation(t *testing.T, rooms []models.Room) {
	t.Helper()
	seen := make(map[int]bool, len(rooms))
	for _, r := range rooms {
		if r.Order < 0 || r.Order >= len(rooms) || seen[r.Order] {
			t.Fatalf("orders are not a zero-based permutation: %+v", rooms)
		}
		seen[r.Order] = true
	}
}

func TestCreateAndList(t *testing.T) {
	store := roomstore.New(testutil.NewStore(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i, n := range []string{"Sala", "Cozinha", "Quarto"} {
		if _, err := store.Create(ctx, "h1", n, i); err != nil {
			t.Fatalf("Create %s: %v", n, err)
		}
	}
	if _, err := store.Create(ctx, "h2", "Sala", 0); err != nil {
		t.Fatalf("same name in other home: %v", err)
	}

	rooms, err := store.List(ctx, "h1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	got := names(rooms)
	want := []string{"Sala", "Cozinha", "Quarto"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List = %v, want %v", got, want)
		}
	}
}

func TestCreate_Validation(t *testing.T) {
	store := roomstore.New(testutil.NewStore(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, "h1", "  ", 0); !errors.Is(err, roomstore.ErrEmptyName) {
		t.Errorf("blank: got %v, want ErrEmptyName", err)
	}
	if _, err := store.Create(ctx, "h1", "Sala", -1); !errors.Is(err, roomstore.ErrInvalidOrder) {
		t.Errorf("negative order: got %v, want ErrInvalidOrder", err)
	}
}

func TestNamesAreStoredAsTyped(t *testing.T) {
	ds := testutil.NewStore(t)
	store := roomstore.New(ds)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rejected := []string{
		"TV a<b c",
		"<b>Sala</b>",
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"Cama &amp; Mesa",
	}
	for _, name := range rejected {
		if _, err := store.Create(ctx, "h1", name, 0); !errors.Is(err, htmlsanitize.ErrMarkup) {
			t.Errorf("Create(%q): got %v, want ErrMarkup", name, err)
		}
	}
	if n := ds.(interface{ Count(string) int }).Count(models.RoomsCollection); n != 0 {
		t.Fatalf("rejected names wrote %d rooms", n)
	}

	kept := []string{"Sala <3", "Cama & Mesa", "Tom's"}
	for i, name := range kept {
		room, err := store.Create(ctx, "h1", name, i)
		if err != nil {
			t.Fatalf("Create(%q): %v", name, err)
		}
		got, err := store.Get(ctx, room.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Name != name {
			t.Errorf("stored name = %q, want %q", got.Name, name)
		}
	}

	room, err := store.Create(ctx, "h1", "Varanda", len(kept))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Rename(ctx, room.ID, "Varanda <i>nova</i>"); !errors.Is(err, htmlsanitize.ErrMarkup) {
		t.Errorf("Rename with markup: got %v, want ErrMarkup", err)
	}
	if got, _ := store.Get(ctx, room.ID); got.Name != "Varanda" {
		t.Errorf("name after rejected rename = %q", got.Name)
	}
}

func TestDuplicateNames(t *testing.T) {
	ds := testutil.NewStore(t)
	store := roomstore.New(ds)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sofa, err := store.Create(ctx, "h1", "Sofá", 0)
	if err != nil {
		t.Fatalf("Create Sofá: %v", err)
	}
	if _, err := store.Create(ctx, "h1", "sofa ", 1); !errors.Is(err, roomstore.ErrDuplicateName) {
		t.Errorf("Create sofa: got %v, want ErrDuplicateName", err)
	}

	other, err := store.Create(ctx, "h1", "Varanda", 1)
	if err != nil {
		t.Fatalf("Create Varanda: %v", err)
	}
	if err := store.Rename(ctx, other.ID, "SOFA"); !errors.Is(err, roomstore.ErrDuplicateName) {
		t.Errorf("Rename to sibling name: got %v, want ErrDuplicateName", err)
	}
	if err := store.Rename(ctx, sofa.ID, "Sofá"); err != nil {
		t.Errorf("Rename to own name: %v", err)
	}
	if err := store.Rename(ctx, sofa.ID, "sofa"); err != nil {
		t.Errorf("Rename to own name, other form: %v", err)
	}

	got, err := store.Get(ctx, sofa.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "sofa" {
		t.Errorf("Name = %q, want %q", got.Name, "sofa")
	}

	rooms, err := store.List(ctx, "h1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rooms) != 2 {
		t.Errorf("expected no write from rejected calls, got %v", names(rooms))
	}
}

func TestRename_Errors(t *testing.T) {
	store := roomstore.New(testutil.NewStore(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Rename(ctx, "ghost", "Sala"); !errors.Is(err, roomstore.ErrNotFound) {
		t.Errorf("missing room: got %v, want ErrNotFound", err)
	}
	r, err := store.Create(ctx, "h1", "Sala", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Rename(ctx, r.ID, ""); !errors.Is(err, roomstore.ErrEmptyName) {
		t.Errorf("blank name: got %v, want ErrEmptyName", err)
	}
}

func TestMove(t *testing.T) {
	store := roomstore.New(testutil.NewStore(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var ids []string
	for i, n := range []string{"A", "B", "C"} {
		r, err := store.Create(ctx, "h1", n, i)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, r.ID)
	}

	tests := []struct {
		name string
		id   string
		dir  roomstore.Direction
		want []string
	}{
		{"first up is a no-op", ids[0], roomstore.Up, []string{"A", "B", "C"}},
		{"last down is a no-op", ids[2], roomstore.Down, []string{"A", "B", "C"}},
		{"move C up", ids[2], roomstore.Up, []string{"A", "C", "B"}},
		{"move A down", ids[0], roomstore.Down, []string{"C", "A", "B"}},
		{"move B up", ids[1], roomstore.Up, []string{"C", "B", "A"}},
	}
	for _, tt := range tests {
		if err := store.Move(ctx, tt.id, tt.dir); err != nil {
			t.Fatalf("%s: Move failed: %v", tt.name, err)
		}
		rooms, err := store.List(ctx, "h1")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		assertPermutation(t, rooms)
		got := names(rooms)
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("%s: order = %v, want %v", tt.name, got, tt.want)
				break
			}
		}
	}

	if err := store.Move(ctx, ids[0], roomstore.Direction("sideways")); !errors.Is(err, roomstore.ErrInvalidDirection) {
		t.Errorf("bad direction: got %v", err)
	}
	if err := store.Move(ctx, "ghost", roomstore.Up); !errors.Is(err, roomstore.ErrNotFound) {
		t.Errorf("missing room: got %v, want ErrNotFound", err)
	}
}

func TestMove_AlwaysPermutation(t *testing.T) {
	store := roomstore.New(testutil.NewStore(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var ids []string
	for i, n := range []string{"A", "B", "C", "D", "E"} {
		r, err := store.Create(ctx, "h1", n, i)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, r.ID)
	}

	rng := rand.New(rand.NewSource(42))
	for step := 0; step < 200; step++ {
		dir := roomstore.Up
		if rng.Intn(2) == 0 {
			dir = roomstore.Down
		}
		if err := store.Move(ctx, ids[rng.Intn(len(ids))], dir); err != nil {
			t.Fatalf("step %d: Move failed: %v", step, err)
		}
		rooms, err := store.List(ctx, "h1")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(rooms) != len(ids) {
			t.Fatalf("room count changed to %d", len(rooms))
		}
		assertPermutation(t, rooms)
	}
}

func TestMove_RepairsGaps(t *testing.T) {
	store := roomstore.New(testutil.NewStore(t))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var last models.Room
	for i, n := range []string{"A", "B", "C"} {
		r, err := store.Create(ctx, "h1", n, i*5)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		last = r
	}
	if err := store.Move(ctx, last.ID, roomstore.Up); err != nil {
		t.Fatalf("Move: %v", err)
	}
	rooms, err := store.List(ctx, "h1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	assertPermutation(t, rooms)
	if got := names(rooms); got[0] != "A" || got[1] != "C" || got[2] != "B" {
		t.Errorf("order = %v, want [A C B]", got)
	}
}

func TestDelete_CascadesToItems(t *testing.T) {
	ds := testutil.NewStore(t)
	store := roomstore.New(ds)
	fx := testutil.NewFixtures(t, ds)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	kitchen, err := store.Create(ctx, "h1", "Cozinha", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	bedroom, err := store.Create(ctx, "h1", "Quarto", 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	bath, err := store.Create(ctx, "h1", "Banheiro", 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, n := range []string{"Panela", "Pratos", "Copos"} {
		fx.CreateItem(ctx, kitchen, n, models.NecessityHigh)
	}
	kept := fx.CreateItem(ctx, bedroom, "Cama", models.NecessityHigh)

	if err := store.Delete(ctx, kitchen.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var items []models.Item
	if err := ds.Find(ctx, models.ItemsCollection, docstore.Where("homeId", "h1"), &items); err != nil {
		t.Fatalf("Find items: %v", err)
	}
	if len(items) != 1 || items[0].ID != kept.ID {
		t.Errorf("remaining items = %+v, want only %s", items, kept.ID)
	}

	rooms, err := store.List(ctx, "h1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rooms) != 2 || rooms[0].ID != bedroom.ID || rooms[1].ID != bath.ID {
		t.Fatalf("remaining rooms = %v", names(rooms))
	}
	assertPermutation(t, rooms)

	if err := store.Delete(ctx, kitchen.ID); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
}
