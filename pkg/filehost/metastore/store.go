package metastore

import (
	"log/slog"
	"sync"

	"github.com/tendant/simple-filehost/pkg/filehost"
)

// Store implements filehost.MetadataStore with an in-memory map and a single
// background writer that mirrors the map to a JSON snapshot file.
type Store struct {
	mu      sync.RWMutex
	records map[string]filehost.Record
	order   []string // insertion order, kept for stable snapshots

	path   string
	logger *slog.Logger

	state     sync.Mutex
	written   *sync.Cond
	requested uint64
	completed uint64
	lastErr   error
	closed    bool
	kick      chan struct{}
	done      chan struct{}
}

var _ filehost.MetadataStore = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for load and save outcomes
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates an empty store persisting to path and starts its writer.
// Call Load to restore a previous snapshot.
func New(path string, opts ...Option) *Store {
	s := &Store{
		records: make(map[string]filehost.Record),
		path:    path,
		logger:  slog.Default(),
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.written = sync.NewCond(&s.state)
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(id string) (filehost.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	return r, ok
}

func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[id]
	return ok
}

func (s *Store) Set(id string, record filehost.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; !exists {
		s.order = append(s.order, id)
	}
	s.records[id] = record
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; !exists {
		return false
	}
	delete(s.records, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Values returns a copy of every record in insertion order.
func (s *Store) Values() []filehost.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]filehost.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// replace swaps the whole contents, used by Load.
func (s *Store) replace(entries []entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]filehost.Record, len(entries))
	s.order = s.order[:0]
	for _, e := range entries {
		if _, exists := s.records[e.ID]; !exists {
			s.order = append(s.order, e.ID)
		}
		s.records[e.ID] = e.Record
	}
}

func (s *Store) entries() []entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, entry{ID: id, Record: s.records[id]})
	}
	return out
}
