package filehost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultLoginCollection is the document collection holding login records.
const DefaultLoginCollection = "login"

// Service bundles the coordinator, query façade and accounts that share one
// registry, blob store and document store.
type Service struct {
	Registry *Registry
	Uploads  *Coordinator
	Query    *Query
	Accounts *Accounts

	docs DocumentStore
}

type settings struct {
	registry        *Registry
	blobs           BlobStore
	docs            DocumentStore
	logger          *slog.Logger
	now             func() time.Time
	loginCollection string
}

// Option represents a functional option for configuring the service
type Option func(*settings)

// WithRegistry sets the category registry
func WithRegistry(registry *Registry) Option {
	return func(s *settings) {
		s.registry = registry
	}
}

// WithBlobStore sets the disk store for uploaded bytes
func WithBlobStore(blobs BlobStore) Option {
	return func(s *settings) {
		s.blobs = blobs
	}
}

// WithDocumentStore sets the external document database
func WithDocumentStore(docs DocumentStore) Option {
	return func(s *settings) {
		s.docs = docs
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for upload and edit dates
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithLoginCollection sets the collection used by Accounts
func WithLoginCollection(name string) Option {
	return func(s *settings) {
		s.loginCollection = name
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (*Service, error) {
	s := &settings{
		logger:          slog.Default(),
		now:             time.Now,
		loginCollection: DefaultLoginCollection,
	}
	for _, option := range options {
		option(s)
	}

	if s.registry == nil {
		return nil, errors.New("registry is required")
	}
	if s.blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if s.docs == nil {
		return nil, errors.New("document store is required")
	}

	return &Service{
		Registry: s.registry,
		Uploads: &Coordinator{
			registry: s.registry,
			blobs:    s.blobs,
			docs:     s.docs,
			logger:   s.logger,
			now:      s.now,
			locks:    newCategoryLocks(s.registry),
		},
		Query: &Query{
			registry: s.registry,
			blobs:    s.blobs,
			docs:     s.docs,
			logger:   s.logger,
		},
		Accounts: &Accounts{
			docs:       s.docs,
			collection: s.loginCollection,
			logger:     s.logger,
		},
		docs: s.docs,
	}, nil
}

// Flush waits for every category snapshot requested so far.
func (s *Service) Flush() error {
	var errs []error
	for _, e := range s.Registry.Entries() {
		if err := e.Store.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s snapshot: %w", e.Category, err))
		}
	}
	return errors.Join(errs...)
}

// Close drains the metadata snapshots and disconnects the document store.
func (s *Service) Close(ctx context.Context) error {
	var g errgroup.Group
	for _, e := range s.Registry.Entries() {
		e := e
		g.Go(func() error {
			if err := e.Store.Close(); err != nil {
				return fmt.Errorf("close %s store: %w", e.Category, err)
			}
			return nil
		})
	}
	storeErr := g.Wait()
	docErr := s.docs.Close(ctx)
	return errors.Join(storeErr, docErr)
}
