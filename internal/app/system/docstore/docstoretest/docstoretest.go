// Package docstoretest is a conformance suite every docstore.Store must pass.
package docstoretest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"go.mongodb.org/mongo-driver/bson"
)

type widget struct {
	ID     string   `bson:"_id"`
	Owner  string   `bson:"owner"`
	Name   string   `bson:"name"`
	Order  int      `bson:"order"`
	Tags   []string `bson:"tags"`
	Status string   `bson:"status"`
}

func newWidget(id, owner, name string, order int) widget {
	return widget{ID: id, Owner: owner, Name: name, Order: order, Tags: []string{}, Status: "open"}
}

// Run exercises s, obtained fresh for each subtest from newStore.
func Run(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	t.Helper()

	ctx := func(t *testing.T) context.Context {
		c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		t.Cleanup(cancel)
		return c
	}

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		var w widget
		if err := s.Get(ctx(t), "widgets", "nope", &w); !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Get missing: got %v, want ErrNotFound", err)
		}
	})

	t.Run("CreateGetAndDuplicateID", func(t *testing.T) {
		s := newStore(t)
		c := ctx(t)
		if err := s.Create(c, "widgets", "w1", newWidget("w1", "a", "Lamp", 0)); err != nil {
			t.Fatalf("Create: %v", err)
		}
		var got widget
		if err := s.Get(c, "widgets", "w1", &got); err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.ID != "w1" || got.Name != "Lamp" {
			t.Errorf("Get = %+v", got)
		}
		if err := s.Create(c, "widgets", "w1", newWidget("w1", "a", "Other", 1)); !errors.Is(err, docstore.ErrDuplicate) {
			t.Errorf("Create duplicate id: got %v, want ErrDuplicate", err)
		}
	})

	t.Run("FindFiltersAndSort", func(t *testing.T) {
		s := newStore(t)
		c := ctx(t)
		ws := []widget{
			newWidget("w1", "a", "Chair", 2),
			newWidget("w2", "a", "Table", 0),
			newWidget("w3", "b", "Bed", 0),
			newWidget("w4", "a", "Sofa", 1),
		}
		ws[3].Tags = []string{"soft", "big"}
		for _, w := range ws {
			if err := s.Create(c, "widgets", w.ID, w); err != nil {
				t.Fatalf("Create %s: %v", w.ID, err)
			}
		}

		var got []widget
		if err := s.Find(c, "widgets", docstore.Where("owner", "a").Sort("order"), &got); err != nil {
			t.Fatalf("Find: %v", err)
		}
		want := []string{"w2", "w4", "w1"}
		if len(got) != len(want) {
			t.Fatalf("Find returned %d docs, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i].ID != want[i] {
				t.Errorf("Find[%d] = %s, want %s", i, got[i].ID, want[i])
			}
		}

		var tagged []widget
		if err := s.Find(c, "widgets", docstore.Query{}.Contains("tags", "soft"), &tagged); err != nil {
			t.Fatalf("Find contains: %v", err)
		}
		if len(tagged) != 1 || tagged[0].ID != "w4" {
			t.Errorf("Find contains = %+v", tagged)
		}

		var none []widget
		if err := s.Find(c, "widgets", docstore.Where("owner", "zzz"), &none); err != nil {
			t.Fatalf("Find none: %v", err)
		}
		if none == nil || len(none) != 0 {
			t.Errorf("Find none = %#v, want empty non-nil slice", none)
		}
	})

	t.Run("UpdateSetAndArrays", func(t *testing.T) {
		s := newStore(t)
		c := ctx(t)
		if err := s.Create(c, "widgets", "w1", newWidget("w1", "a", "Lamp", 0)); err != nil {
			t.Fatalf("Create: %v", err)
		}
		steps := []docstore.Update{
			{Set: bson.M{"name": "Desk lamp"}},
			{AddToSet: bson.M{"tags": "x"}},
			{AddToSet: bson.M{"tags": "x"}},
			{AddToSet: bson.M{"tags": "y"}},
			{Pull: bson.M{"tags": "x"}},
		}
		for i, u := range steps {
			if err := s.Update(c, "widgets", "w1", u); err != nil {
				t.Fatalf("Update step %d: %v", i, err)
			}
		}
		var got widget
		if err := s.Get(c, "widgets", "w1", &got); err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Name != "Desk lamp" {
			t.Errorf("Name = %q", got.Name)
		}
		if len(got.Tags) != 1 || got.Tags[0] != "y" {
			t.Errorf("Tags = %v, want [y]", got.Tags)
		}

		if err := s.Update(c, "widgets", "missing", docstore.Update{Set: bson.M{"name": "x"}}); !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("Update missing: got %v, want ErrNotFound", err)
		}
	})

	t.Run("UpsertSetOnInsertOnce", func(t *testing.T) {
		s := newStore(t)
		c := ctx(t)
		first := docstore.Update{Set: bson.M{"name": "one"}, SetOnInsert: bson.M{"status": "created"}}
		if err := s.Upsert(c, "widgets", "w1", first); err != nil {
			t.Fatalf("Upsert insert: %v", err)
		}
		second := docstore.Update{Set: bson.M{"name": "two"}, SetOnInsert: bson.M{"status": "again"}}
		if err := s.Upsert(c, "widgets", "w1", second); err != nil {
			t.Fatalf("Upsert update: %v", err)
		}
		var got widget
		if err := s.Get(c, "widgets", "w1", &got); err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Name != "two" || got.Status != "created" {
			t.Errorf("after upserts got %+v", got)
		}
	})

	t.Run("DeleteMissingIsFine", func(t *testing.T) {
		s := newStore(t)
		if err := s.Delete(ctx(t), "widgets", "nope"); err != nil {
			t.Errorf("Delete missing: %v", err)
		}
	})

	t.Run("CommitIsAllOrNothing", func(t *testing.T) {
		s := newStore(t)
		c := ctx(t)
		if err := s.Create(c, "widgets", "w1", newWidget("w1", "a", "Lamp", 0)); err != nil {
			t.Fatalf("Create: %v", err)
		}
		b := docstore.NewBatch().
			Set("widgets", "w2", newWidget("w2", "a", "Rug", 1)).
			Delete("widgets", "w1").
			Update("widgets", "ghost", docstore.Update{Set: bson.M{"name": "boo"}})
		if err := s.Commit(c, b); !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Commit: got %v, want ErrNotFound", err)
		}
		var w widget
		if err := s.Get(c, "widgets", "w1", &w); err != nil {
			t.Errorf("w1 should survive a failed batch: %v", err)
		}
		if err := s.Get(c, "widgets", "w2", &w); !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("w2 should not exist after a failed batch: %v", err)
		}
	})

	t.Run("UpdateIfPrecondition", func(t *testing.T) {
		s := newStore(t)
		c := ctx(t)
		if err := s.Create(c, "widgets", "w1", newWidget("w1", "a", "Lamp", 0)); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := s.Create(c, "widgets", "w2", newWidget("w2", "a", "Rug", 1)); err != nil {
			t.Fatalf("Create: %v", err)
		}
		closeWidget := docstore.Update{Set: bson.M{"status": "closed"}}
		ok := docstore.NewBatch().
			UpdateIf("widgets", "w1", bson.M{"status": "open"}, closeWidget).
			Update("widgets", "w2", docstore.Update{AddToSet: bson.M{"tags": "t"}})
		if err := s.Commit(c, ok); err != nil {
			t.Fatalf("first Commit: %v", err)
		}
		again := docstore.NewBatch().
			UpdateIf("widgets", "w1", bson.M{"status": "open"}, closeWidget).
			Update("widgets", "w2", docstore.Update{AddToSet: bson.M{"tags": "u"}})
		if err := s.Commit(c, again); !errors.Is(err, docstore.ErrConflict) {
			t.Fatalf("second Commit: got %v, want ErrConflict", err)
		}
		var w2 widget
		if err := s.Get(c, "widgets", "w2", &w2); err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(w2.Tags) != 1 || w2.Tags[0] != "t" {
			t.Errorf("w2 tags = %v, want [t]", w2.Tags)
		}
	})

	t.Run("UniqueIndexes", func(t *testing.T) {
		s := newStore(t)
		c := ctx(t)
		err := s.EnsureIndexes(c, []docstore.Index{
			{Collection: "widgets", Name: "uniq_owner_name", Fields: []string{"owner", "name"}, Unique: true},
			{Collection: "widgets", Name: "uniq_open_order", Fields: []string{"owner", "order"}, Unique: true, Partial: bson.M{"status": "open"}},
		})
		if err != nil {
			t.Fatalf("EnsureIndexes: %v", err)
		}
		if err := s.Create(c, "widgets", "w1", newWidget("w1", "a", "Lamp", 0)); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := s.Create(c, "widgets", "w2", newWidget("w2", "a", "Lamp", 1)); !errors.Is(err, docstore.ErrDuplicate) {
			t.Errorf("duplicate name: got %v, want ErrDuplicate", err)
		}
		if err := s.Create(c, "widgets", "w3", newWidget("w3", "b", "Lamp", 0)); err != nil {
			t.Errorf("same name, other owner: %v", err)
		}
		closed := newWidget("w4", "a", "Rug", 0)
		closed.Status = "closed"
		if err := s.Create(c, "widgets", "w4", closed); err != nil {
			t.Errorf("partial index should ignore closed widgets: %v", err)
		}
		if err := s.Create(c, "widgets", "w5", newWidget("w5", "a", "Mat", 0)); !errors.Is(err, docstore.ErrDuplicate) {
			t.Errorf("partial index: got %v, want ErrDuplicate", err)
		}
	})

	t.Run("SubCollectionsAreScoped", func(t *testing.T) {
		s := newStore(t)
		c := ctx(t)
		p1 := docstore.Sub("parents", "p1", "widgets")
		p2 := docstore.Sub("parents", "p2", "widgets")
		b := docstore.NewBatch().
			Set(p1, "w1", newWidget("w1", "a", "Lamp", 1)).
			Set(p1, "w2", newWidget("w2", "a", "Rug", 0)).
			Set(p2, "w1", newWidget("w1", "a", "Other lamp", 0))
		if err := s.Commit(c, b); err != nil {
			t.Fatalf("Commit: %v", err)
		}
		var got []widget
		if err := s.Find(c, p1, docstore.Query{}.Sort("order"), &got); err != nil {
			t.Fatalf("Find: %v", err)
		}
		if len(got) != 2 || got[0].ID != "w2" || got[1].ID != "w1" {
			t.Fatalf("p1 widgets = %+v", got)
		}
		var one widget
		if err := s.Get(c, p2, "w1", &one); err != nil {
			t.Fatalf("Get p2/w1: %v", err)
		}
		if one.ID != "w1" || one.Name != "Other lamp" {
			t.Errorf("p2/w1 = %+v", one)
		}
	})
}
