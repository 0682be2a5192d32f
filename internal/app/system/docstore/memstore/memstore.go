// Package memstore is an in-process docstore.Store.
//
// Documents are held in bson-encoded form so they decode exactly like
// documents read back from MongoDB. Every mutation, single or batched, is
// applied to a copy of the touched collections and swapped in only after all
// writes and unique indexes check out, so a failed batch leaves no trace.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"go.mongodb.org/mongo-driver/bson"
)

type entry struct {
	doc bson.M
	seq uint64
}

type op struct {
	docstore.Write
	create bool
	upsert bool
}

// Store is a mutex-guarded in-memory document store.
type Store struct {
	mu      sync.RWMutex
	colls   map[string]map[string]*entry
	indexes map[string][]docstore.Index
	seq     uint64
}

var _ docstore.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		colls:   map[string]map[string]*entry{},
		indexes: map[string][]docstore.Index{},
	}
}

// Get decodes coll/id into out.
func (s *Store) Get(ctx context.Context, coll, id string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	e, ok := s.colls[coll][id]
	s.mu.RUnlock()
	if !ok {
		return docstore.ErrNotFound
	}
	return docstore.DecodeOne(e.doc, out)
}

// Find decodes every document of coll matching q into out.
func (s *Store) Find(ctx context.Context, coll string, q docstore.Query, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filters := make([]docstore.Filter, 0, len(q.Filters))
	for _, f := range q.Filters {
		v, err := canon(f.Value)
		if err != nil {
			return err
		}
		filters = append(filters, docstore.Filter{Field: f.Field, Op: f.Op, Value: v})
	}

	s.mu.RLock()
	var hits []*entry
	for _, e := range s.colls[coll] {
		if matchAll(e.doc, filters) {
			hits = append(hits, e)
		}
	}
	s.mu.RUnlock()

	// Insertion order is the stable fetch order; the sort field refines it.
	sort.Slice(hits, func(i, j int) bool { return hits[i].seq < hits[j].seq })
	if q.OrderBy != "" {
		sort.SliceStable(hits, func(i, j int) bool {
			return compare(hits[i].doc[q.OrderBy], hits[j].doc[q.OrderBy]) < 0
		})
	}

	docs := make([]bson.M, 0, len(hits))
	for _, e := range hits {
		docs = append(docs, e.doc)
	}
	return docstore.DecodeAll(docs, out)
}

// Create inserts doc as coll/id; an existing id is ErrDuplicate.
func (s *Store) Create(ctx context.Context, coll, id string, doc interface{}) error {
	return s.apply(ctx, []op{{
		Write:  docstore.Write{Kind: docstore.WriteSet, Collection: coll, ID: id, Doc: doc},
		create: true,
	}})
}

// Update applies u to an existing document.
func (s *Store) Update(ctx context.Context, coll, id string, u docstore.Update) error {
	return s.apply(ctx, []op{{
		Write: docstore.Write{Kind: docstore.WriteUpdate, Collection: coll, ID: id, Update: u},
	}})
}

// Upsert applies u, creating the document (with SetOnInsert) when missing.
func (s *Store) Upsert(ctx context.Context, coll, id string, u docstore.Update) error {
	return s.apply(ctx, []op{{
		Write:  docstore.Write{Kind: docstore.WriteUpdate, Collection: coll, ID: id, Update: u},
		upsert: true,
	}})
}

// Delete removes coll/id if present.
func (s *Store) Delete(ctx context.Context, coll, id string) error {
	return s.apply(ctx, []op{{
		Write: docstore.Write{Kind: docstore.WriteDelete, Collection: coll, ID: id},
	}})
}

// Commit applies every write in b or none of them.
func (s *Store) Commit(ctx context.Context, b *docstore.Batch) error {
	if b == nil || b.Len() == 0 {
		return nil
	}
	ops := make([]op, 0, b.Len())
	for _, w := range b.Writes() {
		ops = append(ops, op{Write: w})
	}
	return s.apply(ctx, ops)
}

// EnsureIndexes registers indexes. Only unique indexes affect behaviour; a
// unique index that existing documents already violate is rejected.
func (s *Store) EnsureIndexes(ctx context.Context, idx []docstore.Index) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ix := range idx {
		if ix.Name == "" {
			ix.Name = ix.Collection + "_" + strings.Join(ix.Fields, "_")
		}
		if ix.Unique {
			if err := checkIndex(ix, s.colls[ix.Collection]); err != nil {
				return fmt.Errorf("memstore: index %s: %w", ix.Name, err)
			}
		}
		list := s.indexes[ix.Collection]
		replaced := false
		for i := range list {
			if list[i].Name == ix.Name {
				list[i] = ix
				replaced = true
			}
		}
		if !replaced {
			list = append(list, ix)
		}
		s.indexes[ix.Collection] = list
	}
	return nil
}

// Count returns the number of documents in coll.
func (s *Store) Count(coll string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.colls[coll])
}

func (s *Store) apply(ctx context.Context, ops []op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := map[string]map[string]*entry{}
	collFor := func(name string) map[string]*entry {
		if c, ok := work[name]; ok {
			return c
		}
		src := s.colls[name]
		c := make(map[string]*entry, len(src)+1)
		for k, v := range src {
			c[k] = v
		}
		work[name] = c
		return c
	}

	nextSeq := s.seq
	for _, o := range ops {
		c := collFor(o.Collection)
		switch o.Kind {
		case docstore.WriteSet:
			prev, exists := c[o.ID]
			if exists && o.create {
				return fmt.Errorf("memstore: %s/%s: %w", o.Collection, o.ID, docstore.ErrDuplicate)
			}
			doc, err := docstore.Encode(o.Doc, o.ID)
			if err != nil {
				return err
			}
			seq := nextSeq + 1
			if exists {
				seq = prev.seq
			} else {
				nextSeq++
			}
			c[o.ID] = &entry{doc: doc, seq: seq}

		case docstore.WriteUpdate:
			prev, exists := c[o.ID]
			var doc bson.M
			seq := nextSeq + 1
			switch {
			case exists:
				ok, err := matchWhere(prev.doc, o.Where)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("memstore: %s/%s: %w", o.Collection, o.ID, docstore.ErrConflict)
				}
				cp, err := clone(prev.doc)
				if err != nil {
					return err
				}
				doc = cp
				seq = prev.seq
			case o.upsert:
				doc = bson.M{"_id": o.ID}
				if err := setFields(doc, o.Update.SetOnInsert); err != nil {
					return err
				}
				nextSeq++
			default:
				return fmt.Errorf("memstore: %s/%s: %w", o.Collection, o.ID, docstore.ErrNotFound)
			}
			if err := applyUpdate(doc, o.Update); err != nil {
				return fmt.Errorf("memstore: %s/%s: %w", o.Collection, o.ID, err)
			}
			c[o.ID] = &entry{doc: doc, seq: seq}

		case docstore.WriteDelete:
			delete(c, o.ID)
		}
	}

	for name, c := range work {
		for _, ix := range s.indexes[name] {
			if !ix.Unique {
				continue
			}
			if err := checkIndex(ix, c); err != nil {
				return fmt.Errorf("memstore: index %s: %w", ix.Name, err)
			}
		}
	}

	for name, c := range work {
		s.colls[name] = c
	}
	s.seq = nextSeq
	return nil
}

func checkIndex(ix docstore.Index, c map[string]*entry) error {
	seen := make(map[string]struct{}, len(c))
	for _, e := range c {
		ok, err := matchWhere(e.doc, ix.Partial)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		parts := make([]string, 0, len(ix.Fields))
		for _, f := range ix.Fields {
			parts = append(parts, keyPart(e.doc[f]))
		}
		key := strings.Join(parts, "\x00")
		if _, dup := seen[key]; dup {
			return docstore.ErrDuplicate
		}
		seen[key] = struct{}{}
	}
	return nil
}
