package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-filehost/pkg/filehost"
	"github.com/tendant/simple-filehost/pkg/filehost/docstore/memory"
)

func seed(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	docs := []filehost.Document{
		{ID: "a", ContentPath: "uploads/images/a.jpg", Filename: "a.jpg", Metadata: map[string]interface{}{"Division": "North"}},
		{ID: "b", ContentPath: "uploads/images/b.jpg", Filename: "b.jpg", Metadata: map[string]interface{}{"Division": "South"}},
		{ID: "c", ContentPath: "uploads/images/c.jpg", Filename: "c.jpg", Metadata: map[string]interface{}{"Division": "North"}},
		{ID: "d", ContentPath: "uploads/images/d.jpg", Filename: "d.jpg", Metadata: map[string]interface{}{}},
	}
	for _, d := range docs {
		require.NoError(t, store.InsertOne(ctx, "gallery", d))
	}
}

func TestStore_InsertAndFindOne(t *testing.T) {
	store := memory.New()
	seed(t, store)
	ctx := context.Background()

	doc, err := store.FindOne(ctx, "gallery", filehost.Filter{"_id": "b"})
	require.NoError(t, err)
	assert.Equal(t, "b.jpg", doc["filename"])
	assert.Equal(t, "uploads/images/b.jpg", doc["content_path"])

	_, err = store.FindOne(ctx, "gallery", filehost.Filter{"_id": "zzz"})
	assert.True(t, errors.Is(err, filehost.ErrNotFound))

	_, err = store.FindOne(ctx, "other", filehost.Filter{"_id": "a"})
	assert.True(t, errors.Is(err, filehost.ErrDocumentNotFound))
}

func TestStore_DuplicateID(t *testing.T) {
	store := memory.New()
	seed(t, store)

	err := store.InsertOne(context.Background(), "gallery", filehost.Document{ID: "a"})
	assert.Error(t, err)
	assert.Equal(t, 4, store.Count("gallery"))
}

func TestStore_Distinct(t *testing.T) {
	store := memory.New()
	seed(t, store)

	values, err := store.Distinct(context.Background(), "gallery", filehost.DivisionField)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"North", "South"}, values)

	values, err = store.Distinct(context.Background(), "empty", filehost.DivisionField)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestStore_FindWithProjection(t *testing.T) {
	store := memory.New()
	seed(t, store)
	ctx := context.Background()

	ids, err := store.Find(ctx, "gallery", filehost.Filter{filehost.DivisionField: "North"}, []string{"_id"})
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{{"_id": "a"}, {"_id": "c"}}, ids)

	names, err := store.Find(ctx, "gallery", filehost.Filter{filehost.DivisionField: "North"}, []string{"filename"})
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{
		{"_id": "a", "filename": "a.jpg"},
		{"_id": "c", "filename": "c.jpg"},
	}, names)

	full, err := store.Find(ctx, "gallery", filehost.Filter{filehost.DivisionField: "South"}, nil)
	require.NoError(t, err)
	require.Len(t, full, 1)
	assert.Contains(t, full[0], "metadata")
}

func TestStore_ReturnedDocumentsAreCopies(t *testing.T) {
	store := memory.New()
	seed(t, store)
	ctx := context.Background()

	doc, err := store.FindOne(ctx, "gallery", filehost.Filter{"_id": "a"})
	require.NoError(t, err)
	doc["filename"] = "changed"

	again, err := store.FindOne(ctx, "gallery", filehost.Filter{"_id": "a"})
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", again["filename"])
}
