package filehost

import (
	"errors"
	"fmt"
	"strings"
)

// Entry binds a category to its storage directory, document collection,
// response content type and metadata store.
type Entry struct {
	Category    Category
	Dir         string
	Collection  string
	ContentType string
	Store       MetadataStore

	// Editable categories expose Edit over HTTP.
	Editable bool
	// Divisions enables the division queries for the category.
	Divisions bool
	// PayloadKeys limits the metadata payload copied into the external
	// document. Nil keeps the whole payload.
	PayloadKeys []string
	// StampUploadDate adds the record upload date to the document metadata.
	StampUploadDate bool
	// OmitFilename leaves the filename out of the external document.
	OmitFilename bool
}

// Registry resolves categories and MIME types to registry entries.
type Registry struct {
	entries map[Category]*Entry
}

// NewRegistry validates the entries and builds a registry.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[Category]*Entry, len(entries))}
	for i := range entries {
		e := entries[i]
		if !e.Category.IsValid() {
			return nil, fmt.Errorf("invalid category %q", e.Category)
		}
		if _, exists := r.entries[e.Category]; exists {
			return nil, fmt.Errorf("category %s registered twice", e.Category)
		}
		if e.Store == nil {
			return nil, fmt.Errorf("category %s has no metadata store", e.Category)
		}
		if e.Dir == "" || e.Collection == "" || e.ContentType == "" {
			return nil, fmt.Errorf("category %s needs a directory, collection and content type", e.Category)
		}
		r.entries[e.Category] = &e
	}
	if len(r.entries) == 0 {
		return nil, errors.New("registry needs at least one category")
	}
	return r, nil
}

// Lookup returns the entry registered for category.
func (r *Registry) Lookup(category Category) (*Entry, error) {
	e, ok := r.entries[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	return e, nil
}

// Resolve returns the entry for an upload's declared MIME type.
func (r *Registry) Resolve(mimeType string) (*Entry, error) {
	category, err := CategoryForMIME(mimeType)
	if err != nil {
		return nil, err
	}
	return r.Lookup(category)
}

// Entries returns the registered entries in routing order.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, 0, len(r.entries))
	for _, c := range Categories() {
		if e, ok := r.entries[c]; ok {
			out = append(out, e)
		}
	}
	return out
}

// CategoryForMIME maps a MIME type to its category: application/pdf is PDF,
// image/* is Image and video/* is Video.
func CategoryForMIME(mimeType string) (Category, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case mt == "application/pdf":
		return CategoryPDF, nil
	case strings.HasPrefix(mt, "image/"):
		return CategoryImage, nil
	case strings.HasPrefix(mt, "video/"):
		return CategoryVideo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMediaType, mimeType)
	}
}
