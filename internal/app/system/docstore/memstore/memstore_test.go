package memstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/docstore/docstoretest"
	"github.com/dalemusser/homeready/internal/app/system/docstore/memstore"
	"go.mongodb.org/mongo-driver/bson"
)

func TestConformance(t *testing.T) {
	docstoretest.Run(t, func(t *testing.T) docstore.Store {
		return memstore.New()
	})
}

func TestEnsureIndexes_RejectsExistingDuplicates(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := s.Create(ctx, "things", id, bson.M{"name": "same"}); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
	err := s.EnsureIndexes(ctx, []docstore.Index{{Collection: "things", Fields: []string{"name"}, Unique: true}})
	if !errors.Is(err, docstore.ErrDuplicate) {
		t.Fatalf("EnsureIndexes: got %v, want ErrDuplicate", err)
	}
}

func TestConcurrentAddToSet(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	if err := s.Create(ctx, "homes", "h1", bson.M{"members": bson.A{}}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := "u" + string(rune('a'+i%10))
			if err := s.Update(ctx, "homes", "h1", docstore.Update{AddToSet: bson.M{"members": uid}}); err != nil {
				t.Errorf("Update: %v", err)
			}
		}(i)
	}
	wg.Wait()

	var home struct {
		Members []string `bson:"members"`
	}
	if err := s.Get(ctx, "homes", "h1", &home); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(home.Members) != 10 {
		t.Errorf("members = %v, want 10 distinct ids", home.Members)
	}
}

func TestCanceledContext(t *testing.T) {
	s := memstore.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Create(ctx, "things", "a", bson.M{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Create with canceled ctx: got %v", err)
	}
}
