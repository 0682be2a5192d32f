// Package docstore is the document-store contract the core relies on.
//
// The store offers collection-scoped create/read/update/delete, equality and
// array-contains filters, ascending order-by, and all-or-nothing multi-document
// batches. A batch cannot read: any invariant spanning several documents is
// expressed as "read current state, compute the full next state, commit it in
// one batch".
//
// Two implementations exist:
//   - memstore: in-process, used for tests and the "memory" backend
//   - mongostore: MongoDB, batches run inside a multi-document transaction
package docstore

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	// ErrNotFound is returned by Get for a missing document, and by Update
	// (direct or batched) when the target document does not exist.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrDuplicate is returned when a write would violate a unique index or
	// create a document whose id already exists.
	ErrDuplicate = errors.New("docstore: duplicate key")

	// ErrConflict is returned by Commit when an UpdateIf precondition does
	// not hold. Nothing in the batch is written.
	ErrConflict = errors.New("docstore: precondition failed")
)

// Store is the document store used by every store package.
//
// out arguments follow the mongo-driver decoding rules: Get decodes into a
// pointer to a struct (or bson.M), Find decodes into a pointer to a slice.
type Store interface {
	Get(ctx context.Context, coll, id string, out interface{}) error
	Find(ctx context.Context, coll string, q Query, out interface{}) error

	Create(ctx context.Context, coll, id string, doc interface{}) error
	Update(ctx context.Context, coll, id string, u Update) error
	Upsert(ctx context.Context, coll, id string, u Update) error
	Delete(ctx context.Context, coll, id string) error

	Commit(ctx context.Context, b *Batch) error

	EnsureIndexes(ctx context.Context, idx []Index) error
}

// Update describes a field-level mutation. Set and SetOnInsert assign whole
// field values; AddToSet and Pull treat the field as a set and add or remove a
// single element. Set semantics keep concurrent writers on the same array
// field from clobbering each other.
type Update struct {
	Set         bson.M
	SetOnInsert bson.M
	AddToSet    bson.M
	Pull        bson.M
}

// IsZero reports whether the update would change nothing.
func (u Update) IsZero() bool {
	return len(u.Set) == 0 && len(u.SetOnInsert) == 0 && len(u.AddToSet) == 0 && len(u.Pull) == 0
}

// Index declares a secondary index. Partial restricts a unique index to
// documents whose fields equal the given values.
type Index struct {
	Collection string
	Name       string
	Fields     []string
	Unique     bool
	Partial    bson.M
}

// Sub returns the path of a sub-collection owned by one parent document,
// e.g. Sub("shares", id, "rooms") == "shares/<id>/rooms".
func Sub(parent, parentID, child string) string {
	return parent + "/" + parentID + "/" + child
}

// SplitPath reverses Sub. ok is false for top-level collections.
func SplitPath(path string) (parent, parentID, child string, ok bool) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
