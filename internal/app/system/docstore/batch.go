package docstore

import "go.mongodb.org/mongo-driver/bson"

// WriteKind identifies the kind of a batched write.
type WriteKind int

const (
	// WriteSet creates or fully replaces a document.
	WriteSet WriteKind = iota
	// WriteUpdate applies an Update to an existing document.
	WriteUpdate
	// WriteDelete removes a document; a missing document is not an error.
	WriteDelete
)

// Write is one operation in a Batch.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Doc        interface{}
	Update     Update
	// Where holds field equalities the stored document must satisfy for a
	// WriteUpdate to apply. A mismatch aborts the batch with ErrConflict.
	Where bson.M
}

// Batch accumulates writes that Commit applies all-or-nothing.
type Batch struct {
	writes []Write
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Set creates or replaces coll/id with doc.
func (b *Batch) Set(coll, id string, doc interface{}) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteSet, Collection: coll, ID: id, Doc: doc})
	return b
}

// Update applies u to the existing document coll/id.
func (b *Batch) Update(coll, id string, u Update) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteUpdate, Collection: coll, ID: id, Update: u})
	return b
}

// UpdateIf applies u to coll/id only if the stored document matches where.
func (b *Batch) UpdateIf(coll, id string, where bson.M, u Update) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteUpdate, Collection: coll, ID: id, Update: u, Where: where})
	return b
}

// Delete removes coll/id.
func (b *Batch) Delete(coll, id string) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteDelete, Collection: coll, ID: id})
	return b
}

// Writes returns the queued writes in order.
func (b *Batch) Writes() []Write {
	return b.writes
}

// Len returns the number of queued writes.
func (b *Batch) Len() int {
	return len(b.writes)
}
