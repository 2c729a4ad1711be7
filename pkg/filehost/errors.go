package filehost

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrNotFound indicates a record or document does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a filename is already taken within a category
	ErrConflict = errors.New("file with the same name already exists")

	// ErrBadRequest indicates the caller supplied unusable input
	ErrBadRequest = errors.New("bad request")

	// ErrUnsupportedMediaType indicates an upload whose MIME type maps to no category
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrUnknownCategory indicates a category missing from the registry
	ErrUnknownCategory = fmt.Errorf("category %w", ErrNotFound)

	// ErrDocumentNotFound is returned by document stores when a lookup matches nothing
	ErrDocumentNotFound = fmt.Errorf("document %w", ErrNotFound)
)

// RecordError represents an error related to a metadata record operation
type RecordError struct {
	Category Category
	ID       string
	Op       string
	Err      error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation %s failed for record %s: %v", e.Category, e.Op, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to disk operations
type StorageError struct {
	Path string
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DocumentError represents an error related to document store operations
type DocumentError struct {
	Collection string
	Op         string
	Err        error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document operation %s failed on collection %s: %v", e.Op, e.Collection, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}
