package filehost_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-filehost/pkg/filehost"
	"github.com/tendant/simple-filehost/pkg/filehost/docstore/memory"
	"github.com/tendant/simple-filehost/pkg/filehost/metastore"
	fsstorage "github.com/tendant/simple-filehost/pkg/filehost/storage/fs"
)

// testEnv wires a service over temp directories and in-memory documents.
type testEnv struct {
	svc         *filehost.Service
	docs        *memory.Store
	blobs       *fsstorage.Backend
	stores      map[filehost.Category]*metastore.Store
	snapshotDir string
	clock       *fakeClock
}

type envOptions struct {
	docs   filehost.DocumentStore
	blobs  filehost.BlobStore
	logger *slog.Logger
}

type envOption func(*envOptions)

func withDocs(docs filehost.DocumentStore) envOption {
	return func(o *envOptions) { o.docs = docs }
}

func withLogger(logger *slog.Logger) envOption {
	return func(o *envOptions) { o.logger = logger }
}

func withBlobs(blobs filehost.BlobStore) envOption {
	return func(o *envOptions) { o.blobs = blobs }
}

func testEntries(stores map[filehost.Category]*metastore.Store) []filehost.Entry {
	return []filehost.Entry{
		{
			Category:     filehost.CategoryPDF,
			Dir:          "pdfs",
			Collection:   "books",
			ContentType:  "application/pdf",
			Store:        stores[filehost.CategoryPDF],
			Editable:     true,
			OmitFilename: true,
		},
		{
			Category:    filehost.CategoryImage,
			Dir:         "images",
			Collection:  "gallery",
			ContentType: "image/jpeg",
			Store:       stores[filehost.CategoryImage],
			Editable:    true,
			Divisions:   true,
		},
		{
			Category:        filehost.CategoryVideo,
			Dir:             "videos",
			Collection:      "videos",
			ContentType:     "video/mp4",
			Store:           stores[filehost.CategoryVideo],
			Divisions:       true,
			PayloadKeys:     []string{"description", "Division"},
			StampUploadDate: true,
		},
	}
}

func setupTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	root := t.TempDir()
	snapshotDir := filepath.Join(root, "data")

	blobs, err := fsstorage.New(fsstorage.Config{BaseDir: filepath.Join(root, "uploads")})
	require.NoError(t, err)
	docs := memory.New()

	o := envOptions{docs: docs, blobs: blobs, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	stores := map[filehost.Category]*metastore.Store{}
	for _, c := range filehost.Categories() {
		stores[c] = metastore.New(filepath.Join(snapshotDir, string(c)+".json"))
	}

	registry, err := filehost.NewRegistry(testEntries(stores)...)
	require.NoError(t, err)

	clock := newFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	svc, err := filehost.New(
		filehost.WithRegistry(registry),
		filehost.WithBlobStore(o.blobs),
		filehost.WithDocumentStore(o.docs),
		filehost.WithClock(clock.Now),
		filehost.WithLogger(o.logger),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })

	return &testEnv{
		svc:         svc,
		docs:        docs,
		blobs:       blobs,
		stores:      stores,
		snapshotDir: snapshotDir,
		clock:       clock,
	}
}

// upload stages content the way the HTTP layer does.
func (e *testEnv) upload(t *testing.T, category filehost.Category, name, mimeType, content string) *filehost.UploadedFile {
	t.Helper()
	file, err := e.svc.Uploads.StageUpload(context.Background(), category, name, mimeType, strings.NewReader(content))
	require.NoError(t, err)
	return file
}

func (e *testEnv) create(t *testing.T, category filehost.Category, name, mimeType, content string, payload map[string]interface{}) *filehost.Record {
	t.Helper()
	file := e.upload(t, category, name, mimeType, content)
	rec, err := e.svc.Uploads.Create(context.Background(), category, *file, payload)
	require.NoError(t, err)
	return rec
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingDocs fails every write and read against the document database.
type failingDocs struct {
	filehost.DocumentStore
}

var errDatabaseDown = errors.New("database unavailable")

func (f failingDocs) InsertOne(ctx context.Context, collection string, doc interface{}) error {
	return errDatabaseDown
}

func (f failingDocs) FindOne(ctx context.Context, collection string, filter filehost.Filter) (map[string]interface{}, error) {
	return nil, errDatabaseDown
}

func (f failingDocs) Distinct(ctx context.Context, collection, field string) ([]interface{}, error) {
	return nil, errDatabaseDown
}

func (f failingDocs) Close(ctx context.Context) error {
	return nil
}

// stuckRemove refuses to delete files, simulating an unlink failure.
type stuckRemove struct {
	filehost.BlobStore
}

func (s stuckRemove) Remove(ctx context.Context, path string) error {
	return errors.New("permission denied")
}

func (f failingDocs) Find(ctx context.Context, collection string, filter filehost.Filter, projection []string) ([]map[string]interface{}, error) {
	return nil, errDatabaseDown
}
