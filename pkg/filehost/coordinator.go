package filehost

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Coordinator runs the create, edit and delete protocol across the backing
// file, the category MetadataStore and the external DocumentStore.
//
// Per category, the filename check and the store mutation that follows it run
// under one lock, so two uploads of the same name cannot both pass the check.
type Coordinator struct {
	registry *Registry
	blobs    BlobStore
	docs     DocumentStore
	logger   *slog.Logger
	now      func() time.Time
	locks    map[Category]*sync.Mutex
}

func newCategoryLocks(r *Registry) map[Category]*sync.Mutex {
	locks := make(map[Category]*sync.Mutex)
	for _, e := range r.Entries() {
		locks[e.Category] = &sync.Mutex{}
	}
	return locks
}

func (c *Coordinator) lock(category Category) func() {
	mu := c.locks[category]
	mu.Lock()
	return mu.Unlock
}

// StageUpload writes an incoming file into the directory of the category its
// MIME type resolves to. The resolved category must match the requested one.
func (c *Coordinator) StageUpload(ctx context.Context, category Category, originalName, mimeType string, reader io.Reader) (*UploadedFile, error) {
	entry, err := c.registry.Resolve(mimeType)
	if err != nil {
		return nil, err
	}
	if entry.Category != category {
		return nil, fmt.Errorf("%w: %s upload sent to %s", ErrUnsupportedMediaType, entry.Category, category)
	}

	path, size, err := c.blobs.Stage(ctx, entry.Dir, originalName, reader)
	if err != nil {
		return nil, &StorageError{Path: entry.Dir, Op: "stage", Err: err}
	}

	return &UploadedFile{
		Path:         path,
		OriginalName: originalName,
		Size:         size,
		MimeType:     mimeType,
	}, nil
}

// Create indexes a staged upload and records its external document.
//
// The record is inserted into the metadata store before the document store
// write. If that write fails the record stays in place and the returned error
// wraps a DocumentError.
func (c *Coordinator) Create(ctx context.Context, category Category, file UploadedFile, payload map[string]interface{}) (*Record, error) {
	entry, err := c.registry.Lookup(category)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()
	record := Record{
		ID:         uuid.NewString(),
		Filename:   file.OriginalName,
		Filepath:   file.Path,
		Size:       file.Size,
		UploadDate: now,
		EditDate:   now,
	}

	unlock := c.lock(category)
	if other, taken := findByFilename(entry.Store, record.Filename, ""); taken {
		unlock()
		c.discard(ctx, file.Path)
		c.logger.Info("Rejected duplicate filename", "category", category, "filename", record.Filename, "existing_id", other.ID)
		return nil, &RecordError{Category: category, ID: record.ID, Op: "create", Err: ErrConflict}
	}
	entry.Store.Set(record.ID, record)
	unlock()
	entry.Store.Save()

	doc := buildDocument(entry, record, payload)
	if err := c.docs.InsertOne(ctx, entry.Collection, doc); err != nil {
		c.logger.Error("Failed to insert external document", "category", category, "id", record.ID, "collection", entry.Collection, "error", err)
		return nil, &RecordError{
			Category: category,
			ID:       record.ID,
			Op:       "create",
			Err:      &DocumentError{Collection: entry.Collection, Op: "insert", Err: err},
		}
	}

	c.logger.Info("File created", "category", category, "id", record.ID, "filename", record.Filename, "size", record.Size)
	return &record, nil
}

// Edit replaces the backing file and/or overrides fields of an existing
// record. editDate is always refreshed. The external document is not touched.
func (c *Coordinator) Edit(ctx context.Context, category Category, id string, req EditRequest) (*Record, error) {
	entry, err := c.registry.Lookup(category)
	if err != nil {
		return nil, err
	}

	unlock := c.lock(category)
	defer unlock()

	record, ok := entry.Store.Get(id)
	if !ok {
		c.discardUpload(ctx, req.File)
		return nil, &RecordError{Category: category, ID: id, Op: "edit", Err: ErrNotFound}
	}

	// Names are checked before any disk mutation so a rejected edit leaves
	// the old file in place.
	for _, name := range []string{uploadName(req.File), req.Filename} {
		if name == "" {
			continue
		}
		if _, taken := findByFilename(entry.Store, name, id); taken {
			c.discardUpload(ctx, req.File)
			return nil, &RecordError{Category: category, ID: id, Op: "edit", Err: ErrConflict}
		}
	}

	if req.File != nil {
		if err := c.blobs.Remove(ctx, record.Filepath); err != nil {
			c.logger.Error("Failed to delete old file", "category", category, "id", id, "error", err)
			c.discardUpload(ctx, req.File)
			return nil, &RecordError{
				Category: category,
				ID:       id,
				Op:       "edit",
				Err:      &StorageError{Path: record.Filepath, Op: "remove", Err: err},
			}
		}
		record.Filename = req.File.OriginalName
		record.Filepath = req.File.Path
		record.Size = req.File.Size
	}

	if req.Filename != "" {
		record.Filename = req.Filename
	}
	if req.UploadDate != nil {
		record.UploadDate = req.UploadDate.UTC()
	}

	now := c.now().UTC()
	if now.Before(record.EditDate) {
		now = record.EditDate
	}
	record.EditDate = now

	entry.Store.Set(id, record)
	entry.Store.Save()

	c.logger.Info("File updated", "category", category, "id", id, "replaced_file", req.File != nil)
	return &record, nil
}

// Delete removes the backing file and then the record. When the file cannot
// be removed the record is left intact. The external document is not removed.
func (c *Coordinator) Delete(ctx context.Context, category Category, id string) error {
	entry, err := c.registry.Lookup(category)
	if err != nil {
		return err
	}

	unlock := c.lock(category)
	defer unlock()

	record, ok := entry.Store.Get(id)
	if !ok {
		return &RecordError{Category: category, ID: id, Op: "delete", Err: ErrNotFound}
	}

	if err := c.blobs.Remove(ctx, record.Filepath); err != nil {
		c.logger.Error("Failed to delete file", "category", category, "id", id, "error", err)
		return &RecordError{
			Category: category,
			ID:       id,
			Op:       "delete",
			Err:      &StorageError{Path: record.Filepath, Op: "remove", Err: err},
		}
	}

	entry.Store.Delete(id)
	entry.Store.Save()

	c.logger.Info("File deleted", "category", category, "id", id)
	return nil
}

// Discard removes a staged upload that will not be handed to Create or Edit.
func (c *Coordinator) Discard(ctx context.Context, file *UploadedFile) {
	c.discardUpload(ctx, file)
}

func (c *Coordinator) discardUpload(ctx context.Context, file *UploadedFile) {
	if file != nil {
		c.discard(ctx, file.Path)
	}
}

func (c *Coordinator) discard(ctx context.Context, path string) {
	if err := c.blobs.Remove(ctx, path); err != nil {
		c.logger.Warn("Failed to remove staged upload", "path", path, "error", err)
	}
}

func findByFilename(store MetadataStore, filename, exceptID string) (Record, bool) {
	for _, r := range store.Values() {
		if r.Filename == filename && r.ID != exceptID {
			return r, true
		}
	}
	return Record{}, false
}

func uploadName(file *UploadedFile) string {
	if file == nil {
		return ""
	}
	return file.OriginalName
}

func buildDocument(entry *Entry, record Record, payload map[string]interface{}) Document {
	metadata := make(map[string]interface{}, len(payload)+1)
	if entry.PayloadKeys == nil {
		for k, v := range payload {
			metadata[k] = v
		}
	} else {
		for _, k := range entry.PayloadKeys {
			if v, ok := payload[k]; ok {
				metadata[k] = v
			}
		}
	}
	if entry.StampUploadDate {
		metadata["uploadDate"] = record.UploadDate.Format(time.RFC3339Nano)
	}

	doc := Document{
		ID:          record.ID,
		ContentPath: record.Filepath,
		Metadata:    metadata,
	}
	if !entry.OmitFilename {
		doc.Filename = record.Filename
	}
	return doc
}
