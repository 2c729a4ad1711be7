package filehost

import (
	"context"
	"errors"
	"log/slog"
	"sort"
)

// Query serves the read-only operations. Listings and raw bytes come from the
// metadata store and disk, document lookups go straight to the document store.
type Query struct {
	registry *Registry
	blobs    BlobStore
	docs     DocumentStore
	logger   *slog.Logger
}

// ListAll returns every record currently held in memory for the category,
// oldest upload first.
func (q *Query) ListAll(ctx context.Context, category Category) ([]Record, error) {
	entry, err := q.registry.Lookup(category)
	if err != nil {
		return nil, err
	}
	records := entry.Store.Values()
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].UploadDate.Equal(records[j].UploadDate) {
			return records[i].ID < records[j].ID
		}
		return records[i].UploadDate.Before(records[j].UploadDate)
	})
	return records, nil
}

// FetchRaw reads the backing file of a record.
func (q *Query) FetchRaw(ctx context.Context, category Category, id string) (*RawFile, error) {
	entry, err := q.registry.Lookup(category)
	if err != nil {
		return nil, err
	}
	record, ok := entry.Store.Get(id)
	if !ok {
		return nil, &RecordError{Category: category, ID: id, Op: "fetch", Err: ErrNotFound}
	}

	data, err := q.blobs.Read(ctx, record.Filepath)
	if err != nil {
		// A record whose file vanished is a storage failure, not a missing record.
		return nil, &RecordError{
			Category: category,
			ID:       id,
			Op:       "fetch",
			Err:      &StorageError{Path: record.Filepath, Op: "read", Err: err},
		}
	}

	return &RawFile{
		Filename:    record.Filename,
		ContentType: entry.ContentType,
		Data:        data,
	}, nil
}

// FetchExternalDocument looks a document up by identifier in the category
// collection, bypassing the metadata store.
func (q *Query) FetchExternalDocument(ctx context.Context, category Category, id string) (map[string]interface{}, error) {
	entry, err := q.registry.Lookup(category)
	if err != nil {
		return nil, err
	}
	doc, err := q.docs.FindOne(ctx, entry.Collection, Filter{"_id": id})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &RecordError{Category: category, ID: id, Op: "fetch_document", Err: ErrNotFound}
		}
		return nil, &DocumentError{Collection: entry.Collection, Op: "find_one", Err: err}
	}
	return doc, nil
}

// ListDivisions returns the distinct division tags of the category's documents.
// Tags that are not strings are logged and left out.
func (q *Query) ListDivisions(ctx context.Context, category Category) ([]string, error) {
	entry, err := q.divisionEntry(category)
	if err != nil {
		return nil, err
	}
	values, err := q.docs.Distinct(ctx, entry.Collection, DivisionField)
	if err != nil {
		return nil, &DocumentError{Collection: entry.Collection, Op: "distinct", Err: err}
	}

	divisions := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			q.logger.Warn("Skipping non-string division", "category", category, "collection", entry.Collection, "value", v)
			continue
		}
		divisions = append(divisions, s)
	}
	return divisions, nil
}

// ListByDivision returns the documents tagged with division, projected to
// identifiers or filenames.
func (q *Query) ListByDivision(ctx context.Context, category Category, division string, projection Projection) ([]map[string]interface{}, error) {
	entry, err := q.divisionEntry(category)
	if err != nil {
		return nil, err
	}
	docs, err := q.docs.Find(ctx, entry.Collection, Filter{DivisionField: division}, projection.Fields())
	if err != nil {
		return nil, &DocumentError{Collection: entry.Collection, Op: "find", Err: err}
	}
	if docs == nil {
		docs = []map[string]interface{}{}
	}
	return docs, nil
}

func (q *Query) divisionEntry(category Category) (*Entry, error) {
	entry, err := q.registry.Lookup(category)
	if err != nil {
		return nil, err
	}
	if !entry.Divisions {
		return nil, ErrUnknownCategory
	}
	return entry, nil
}
