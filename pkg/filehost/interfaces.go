package filehost

import (
	"context"
	"io"
)

// MetadataStore is the per-category index of records. Implementations keep the
// map in memory and persist full snapshots in the background.
type MetadataStore interface {
	Get(id string) (Record, bool)
	Has(id string) bool
	Set(id string, record Record)
	Delete(id string) bool
	Values() []Record

	// Save requests a snapshot of the current contents. It does not block and
	// never reports failures to the caller.
	Save()

	// Flush blocks until every requested snapshot has been written and returns
	// the last write error, if any.
	Flush() error

	// Close drains pending snapshots and stops the writer.
	Close() error
}

// BlobStore holds the bytes of uploaded files on disk.
type BlobStore interface {
	// Stage writes reader into dir under a fresh name and returns the stored
	// path and byte count.
	Stage(ctx context.Context, dir, originalName string, reader io.Reader) (string, int64, error)

	// Read returns the full contents of the file at path.
	Read(ctx context.Context, path string) ([]byte, error)

	// Remove deletes the file at path.
	Remove(ctx context.Context, path string) error
}

// Filter matches documents whose dotted field paths equal the given values.
type Filter map[string]interface{}

// DocumentStore is the external document database.
type DocumentStore interface {
	InsertOne(ctx context.Context, collection string, doc interface{}) error
	FindOne(ctx context.Context, collection string, filter Filter) (map[string]interface{}, error)
	Distinct(ctx context.Context, collection, field string) ([]interface{}, error)
	Find(ctx context.Context, collection string, filter Filter, projection []string) ([]map[string]interface{}, error)
	Close(ctx context.Context) error
}
