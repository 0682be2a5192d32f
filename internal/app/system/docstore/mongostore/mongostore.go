// Package mongostore implements docstore.Store on MongoDB.
//
// Top-level paths map to collections of the same name. A sub-collection path
// such as "shares/<id>/rooms" maps to the collection "shares_rooms"; its
// documents carry the parent id in "_parent" and are keyed "<parent>/<id>" so
// the same local id can appear under several parents.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/txn"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const parentField = "_parent"

// Store is a MongoDB-backed docstore.Store.
type Store struct {
	db     *mongo.Database
	log    *zap.Logger
	strict bool
}

var _ docstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// Strict makes Commit fail instead of writing non-atomically when the
// deployment has no transaction support.
func Strict(strict bool) Option {
	return func(s *Store) { s.strict = strict }
}

// New returns a Store over db.
func New(db *mongo.Database, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{db: db, log: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

type target struct {
	coll   *mongo.Collection
	parent string
}

func (s *Store) target(path string) target {
	if parent, parentID, child, ok := docstore.SplitPath(path); ok {
		return target{coll: s.db.Collection(parent + "_" + child), parent: parentID}
	}
	return target{coll: s.db.Collection(path)}
}

func (t target) key(id string) string {
	if t.parent == "" {
		return id
	}
	return t.parent + "/" + id
}

func (t target) byID(id string) bson.M {
	return bson.M{"_id": t.key(id)}
}

func (t target) encode(doc interface{}, id string) (bson.M, error) {
	m, err := docstore.Encode(doc, t.key(id))
	if err != nil {
		return nil, err
	}
	if t.parent != "" {
		m[parentField] = t.parent
	}
	return m, nil
}

func (t target) local(m bson.M) bson.M {
	if t.parent == "" {
		return m
	}
	if id, ok := m["_id"].(string); ok {
		m["_id"] = strings.TrimPrefix(id, t.parent+"/")
	}
	delete(m, parentField)
	return m
}

// Get decodes coll/id into out.
func (s *Store) Get(ctx context.Context, coll, id string, out interface{}) error {
	t := s.target(coll)
	var m bson.M
	if err := t.coll.FindOne(ctx, t.byID(id)).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return docstore.ErrNotFound
		}
		return err
	}
	return docstore.DecodeOne(t.local(m), out)
}

// Find decodes all documents of coll matching q into out.
func (s *Store) Find(ctx context.Context, coll string, q docstore.Query, out interface{}) error {
	t := s.target(coll)

	conds := make([]bson.M, 0, len(q.Filters)+1)
	if t.parent != "" {
		conds = append(conds, bson.M{parentField: t.parent})
	}
	for _, f := range q.Filters {
		switch f.Op {
		case docstore.Eq:
			conds = append(conds, bson.M{f.Field: bson.M{"$eq": f.Value}})
		case docstore.Contains:
			conds = append(conds, bson.M{f.Field: bson.M{"$elemMatch": bson.M{"$eq": f.Value}}})
		default:
			return fmt.Errorf("mongostore: unsupported filter op %d", f.Op)
		}
	}
	filter := bson.M{}
	switch len(conds) {
	case 0:
	case 1:
		filter = conds[0]
	default:
		filter = bson.M{"$and": conds}
	}

	opts := options.Find()
	if q.OrderBy != "" {
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: 1}, {Key: "_id", Value: 1}})
	}

	cur, err := t.coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return err
	}
	for i := range docs {
		docs[i] = t.local(docs[i])
	}
	return docstore.DecodeAll(docs, out)
}

// Create inserts doc as coll/id.
func (s *Store) Create(ctx context.Context, coll, id string, doc interface{}) error {
	t := s.target(coll)
	m, err := t.encode(doc, id)
	if err != nil {
		return err
	}
	if _, err := t.coll.InsertOne(ctx, m); err != nil {
		return mapErr(err)
	}
	return nil
}

// Update applies u to an existing document.
func (s *Store) Update(ctx context.Context, coll, id string, u docstore.Update) error {
	return s.update(ctx, s.target(coll), id, nil, u)
}

// Upsert applies u, inserting the document when it does not exist.
func (s *Store) Upsert(ctx context.Context, coll, id string, u docstore.Update) error {
	t := s.target(coll)
	if t.parent != "" {
		soi := bson.M{parentField: t.parent}
		for k, v := range u.SetOnInsert {
			soi[k] = v
		}
		u.SetOnInsert = soi
	}
	_, err := t.coll.UpdateOne(ctx, t.byID(id), updateDoc(u), options.Update().SetUpsert(true))
	return mapErr(err)
}

// Delete removes coll/id.
func (s *Store) Delete(ctx context.Context, coll, id string) error {
	t := s.target(coll)
	_, err := t.coll.DeleteOne(ctx, t.byID(id))
	return err
}

// Commit applies b inside one transaction.
func (s *Store) Commit(ctx context.Context, b *docstore.Batch) error {
	if b == nil || b.Len() == 0 {
		return nil
	}
	run := txn.Run
	if s.strict {
		run = txn.RunStrict
	}
	return run(ctx, s.db, s.log, func(ctx context.Context) error {
		for _, w := range b.Writes() {
			if err := s.apply(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) apply(ctx context.Context, w docstore.Write) error {
	t := s.target(w.Collection)
	switch w.Kind {
	case docstore.WriteSet:
		m, err := t.encode(w.Doc, w.ID)
		if err != nil {
			return err
		}
		_, err = t.coll.ReplaceOne(ctx, t.byID(w.ID), m, options.Replace().SetUpsert(true))
		return mapErr(err)
	case docstore.WriteUpdate:
		return s.update(ctx, t, w.ID, w.Where, w.Update)
	case docstore.WriteDelete:
		_, err := t.coll.DeleteOne(ctx, t.byID(w.ID))
		return err
	}
	return fmt.Errorf("mongostore: unknown write kind %d", w.Kind)
}

func (s *Store) update(ctx context.Context, t target, id string, where bson.M, u docstore.Update) error {
	filter := t.byID(id)
	for k, v := range where {
		filter[k] = v
	}
	res, err := t.coll.UpdateOne(ctx, filter, updateDoc(u))
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if len(where) == 0 {
		return fmt.Errorf("mongostore: %s/%s: %w", t.coll.Name(), id, docstore.ErrNotFound)
	}
	n, err := t.coll.CountDocuments(ctx, t.byID(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("mongostore: %s/%s: %w", t.coll.Name(), id, docstore.ErrNotFound)
	}
	return fmt.Errorf("mongostore: %s/%s: %w", t.coll.Name(), id, docstore.ErrConflict)
}

func updateDoc(u docstore.Update) bson.M {
	doc := bson.M{}
	if len(u.Set) > 0 {
		doc["$set"] = u.Set
	}
	if len(u.SetOnInsert) > 0 {
		doc["$setOnInsert"] = u.SetOnInsert
	}
	if len(u.AddToSet) > 0 {
		doc["$addToSet"] = u.AddToSet
	}
	if len(u.Pull) > 0 {
		doc["$pull"] = u.Pull
	}
	if len(doc) == 0 {
		// UpdateOne rejects an empty update document.
		doc["$set"] = bson.M{}
	}
	return doc
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if wafflemongo.IsDup(err) {
		return fmt.Errorf("%w: %v", docstore.ErrDuplicate, err)
	}
	return err
}

/* -------------------------------------------------------------------------- */
/* Indexes                                                                    */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// EnsureIndexes creates missing indexes and rebuilds ones whose keys or
// uniqueness changed. Problems are aggregated so every bad index is reported.
func (s *Store) EnsureIndexes(ctx context.Context, idx []docstore.Index) error {
	var problems []string
	for _, ix := range idx {
		if err := s.ensureIndex(ctx, ix); err != nil {
			problems = append(problems, ix.Collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (s *Store) ensureIndex(ctx context.Context, ix docstore.Index) error {
	coll := s.db.Collection(ix.Collection)
	keys := bson.D{}
	for _, f := range ix.Fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	name := ix.Name
	if name == "" {
		name = ix.Collection + "_" + strings.Join(ix.Fields, "_")
	}

	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return err
	}
	var existing []existingIndex
	if err := cur.All(ctx, &existing); err != nil {
		return err
	}
	for _, e := range existing {
		if e.Name != name {
			continue
		}
		unique := e.Unique != nil && *e.Unique
		if keySig(e.Key) == keySig(keys) && unique == ix.Unique {
			return nil
		}
		s.log.Info("dropping stale index",
			zap.String("collection", ix.Collection),
			zap.String("index", name),
			zap.String("keys", keySig(e.Key)))
		if _, err := coll.Indexes().DropOne(ctx, name); err != nil {
			return err
		}
	}

	opts := options.Index().SetName(name)
	if ix.Unique {
		opts.SetUnique(true)
	}
	if len(ix.Partial) > 0 {
		opts.SetPartialFilterExpression(ix.Partial)
	}

	start := time.Now()
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	switch {
	case err == nil:
		s.log.Info("index ensured",
			zap.String("collection", ix.Collection),
			zap.String("index", name),
			zap.Bool("unique", ix.Unique),
			zap.Duration("took", time.Since(start)))
		return nil
	case strings.Contains(err.Error(), "IndexOptionsConflict"):
		// Same keys already indexed under another name.
		s.log.Warn("index exists under a different name",
			zap.String("collection", ix.Collection),
			zap.String("index", name))
		return nil
	case wafflemongo.IsDup(err):
		return fmt.Errorf("existing documents violate %s: %w", name, docstore.ErrDuplicate)
	}
	return err
}
