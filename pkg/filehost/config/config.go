package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-filehost/pkg/filehost"
	"github.com/tendant/simple-filehost/pkg/filehost/docstore/memory"
	mongostore "github.com/tendant/simple-filehost/pkg/filehost/docstore/mongo"
	pgstore "github.com/tendant/simple-filehost/pkg/filehost/docstore/postgres"
	"github.com/tendant/simple-filehost/pkg/filehost/metastore"
	fsstorage "github.com/tendant/simple-filehost/pkg/filehost/storage/fs"
	"golang.org/x/sync/errgroup"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:          "8080",
		Environment:   "development",
		UploadsDir:    "uploads",
		SnapshotDir:   ".",
		DatabaseType:  "memory",
		MongoDatabase: "test",
		MaxUploadMB:   512,
		Categories:    DefaultCategories(),
	}
}

// ServerConfig represents server configuration for the file host
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Disk layout
	UploadsDir  string
	SnapshotDir string

	// Document database
	DatabaseType  string // "memory", "mongo", "postgres"
	DatabaseURL   string
	MongoDatabase string

	MaxUploadMB        int64
	APIKeySHA256       string
	CORSAllowedOrigins []string

	Categories []CategoryConfig
}

// CategoryConfig names the directory, collection and snapshot file of a category.
type CategoryConfig struct {
	Category     filehost.Category
	Dir          string
	Collection   string
	SnapshotFile string
	ContentType  string
}

// DefaultCategories returns the layout existing deployments use on disk and
// in the document database.
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{
			Category:     filehost.CategoryPDF,
			Dir:          "pdfs",
			Collection:   "books1234",
			SnapshotFile: "pdfFilesData.json",
			ContentType:  "application/pdf",
		},
		{
			Category:     filehost.CategoryImage,
			Dir:          "images",
			Collection:   "Gallery123",
			SnapshotFile: "imageFilesData.json",
			ContentType:  "image/jpeg",
		},
		{
			Category:     filehost.CategoryVideo,
			Dir:          "videos",
			Collection:   "Videos123",
			SnapshotFile: "videoFilesData.json",
			ContentType:  "video/mp4",
		},
	}
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *ServerConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.UploadsDir == "" {
		return errors.New("uploads_dir is required")
	}
	if c.SnapshotDir == "" {
		return errors.New("snapshot_dir is required")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("max_upload_mb must be positive")
	}

	switch c.DatabaseType {
	case "memory":
	case "mongo":
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using mongo")
		}
		if c.MongoDatabase == "" {
			return errors.New("mongo_database is required when using mongo")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using postgres")
		}
	default:
		return fmt.Errorf("database_type must be 'memory', 'mongo' or 'postgres', got: %s", c.DatabaseType)
	}

	if len(c.Categories) == 0 {
		return errors.New("at least one category is required")
	}
	seen := make(map[filehost.Category]bool)
	for _, cc := range c.Categories {
		if !cc.Category.IsValid() {
			return fmt.Errorf("invalid category %q", cc.Category)
		}
		if seen[cc.Category] {
			return fmt.Errorf("category %s configured twice", cc.Category)
		}
		seen[cc.Category] = true
		if cc.Dir == "" || cc.Collection == "" || cc.SnapshotFile == "" {
			return fmt.Errorf("category %s needs a directory, collection and snapshot file", cc.Category)
		}
	}

	return nil
}

// BuildService connects the document database, loads every category
// snapshot and assembles the service.
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (*filehost.Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	blobs, err := fsstorage.New(fsstorage.Config{BaseDir: c.UploadsDir})
	if err != nil {
		return nil, fmt.Errorf("failed to build blob store: %w", err)
	}

	docs, err := c.buildDocumentStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build document store: %w", err)
	}

	entries := make([]filehost.Entry, len(c.Categories))
	stores := make([]*metastore.Store, len(c.Categories))
	for i, cc := range c.Categories {
		if err := blobs.EnsureDir(cc.Dir); err != nil {
			logger.Error("Failed to create upload directory", "category", cc.Category, "dir", cc.Dir, "error", err)
		}
		stores[i] = metastore.New(filepath.Join(c.SnapshotDir, cc.SnapshotFile), metastore.WithLogger(logger))
		entries[i] = entryFor(cc, stores[i])
	}

	// Load never fails; a bad snapshot is logged and the store starts empty.
	var g errgroup.Group
	for _, store := range stores {
		store := store
		g.Go(func() error {
			store.Load()
			return nil
		})
	}
	_ = g.Wait()

	registry, err := filehost.NewRegistry(entries...)
	if err != nil {
		closeAll(ctx, stores, docs)
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}

	svc, err := filehost.New(
		filehost.WithRegistry(registry),
		filehost.WithBlobStore(blobs),
		filehost.WithDocumentStore(docs),
		filehost.WithLogger(logger),
	)
	if err != nil {
		closeAll(ctx, stores, docs)
		return nil, err
	}
	return svc, nil
}

// entryFor applies the per-category behaviour: PDFs and images are editable,
// images and videos are classified by division, and video documents keep only
// the description and division of the payload plus the upload date.
func entryFor(cc CategoryConfig, store filehost.MetadataStore) filehost.Entry {
	e := filehost.Entry{
		Category:    cc.Category,
		Dir:         cc.Dir,
		Collection:  cc.Collection,
		ContentType: cc.ContentType,
		Store:       store,
	}
	if e.ContentType == "" {
		e.ContentType = "application/octet-stream"
	}

	switch cc.Category {
	case filehost.CategoryPDF:
		e.Editable = true
		e.OmitFilename = true
	case filehost.CategoryImage:
		e.Editable = true
		e.Divisions = true
	case filehost.CategoryVideo:
		e.Divisions = true
		e.PayloadKeys = []string{"description", "Division"}
		e.StampUploadDate = true
	}
	return e
}

func (c *ServerConfig) buildDocumentStore(ctx context.Context) (filehost.DocumentStore, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "mongo":
		store, err := mongostore.Connect(ctx, mongostore.Config{URI: c.DatabaseURL, Database: c.MongoDatabase})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		store := pgstore.NewWithPool(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func closeAll(ctx context.Context, stores []*metastore.Store, docs filehost.DocumentStore) {
	for _, s := range stores {
		_ = s.Close()
	}
	_ = docs.Close(ctx)
}
