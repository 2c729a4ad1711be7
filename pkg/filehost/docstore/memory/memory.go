package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-filehost/pkg/filehost"
)

// Store implements filehost.DocumentStore in process memory. Documents are
// normalized through JSON on insert so reads see the same shapes a remote
// database would return.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]map[string]interface{}
}

var _ filehost.DocumentStore = (*Store)(nil)

// New creates an empty in-memory document store
func New() *Store {
	return &Store{
		collections: make(map[string][]map[string]interface{}),
	}
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc interface{}) error {
	normalized, err := normalize(doc)
	if err != nil {
		return err
	}
	if _, ok := normalized["_id"]; !ok {
		normalized["_id"] = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.collections[collection] {
		if reflect.DeepEqual(existing["_id"], normalized["_id"]) {
			return fmt.Errorf("duplicate key: _id %v already exists in %s", normalized["_id"], collection)
		}
	}
	s.collections[collection] = append(s.collections[collection], normalized)
	return nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter filehost.Filter) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.collections[collection] {
		if filehost.MatchFilter(doc, filter) {
			return copyDoc(doc), nil
		}
	}
	return nil, filehost.ErrDocumentNotFound
}

// Distinct returns the unique values at field in first-seen order. Array
// values contribute their elements.
func (s *Store) Distinct(ctx context.Context, collection, field string) ([]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []interface{}{}
	add := func(v interface{}) {
		for _, seen := range out {
			if reflect.DeepEqual(seen, v) {
				return
			}
		}
		out = append(out, v)
	}
	for _, doc := range s.collections[collection] {
		v, ok := filehost.LookupField(doc, field)
		if !ok {
			continue
		}
		if list, isList := v.([]interface{}); isList {
			for _, item := range list {
				add(item)
			}
			continue
		}
		add(v)
	}
	return out, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter filehost.Filter, projection []string) ([]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []map[string]interface{}{}
	for _, doc := range s.collections[collection] {
		if filehost.MatchFilter(doc, filter) {
			out = append(out, filehost.Project(copyDoc(doc), projection))
		}
	}
	return out, nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

func normalize(doc interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("document must be an object: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("document must be an object")
	}
	return out, nil
}

func copyDoc(doc map[string]interface{}) map[string]interface{} {
	out, err := normalize(doc)
	if err != nil {
		return doc
	}
	return out
}
