package filehost_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-filehost/pkg/filehost"
)

func TestQuery_ListAllOrdersByUploadDate(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	list, err := env.svc.Query.ListAll(ctx, filehost.CategoryPDF)
	require.NoError(t, err)
	assert.Empty(t, list)

	first := env.create(t, filehost.CategoryPDF, "1.pdf", "application/pdf", "1", nil)
	env.clock.Advance(time.Minute)
	second := env.create(t, filehost.CategoryPDF, "2.pdf", "application/pdf", "2", nil)

	list, err = env.svc.Query.ListAll(ctx, filehost.CategoryPDF)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	other, err := env.svc.Query.ListAll(ctx, filehost.CategoryImage)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestQuery_FetchRawErrors(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Query.FetchRaw(ctx, filehost.CategoryImage, "nope")
	assert.True(t, errors.Is(err, filehost.ErrNotFound))

	rec := env.create(t, filehost.CategoryImage, "a.jpg", "image/jpeg", "a", nil)
	require.NoError(t, os.Remove(rec.Filepath))

	_, err = env.svc.Query.FetchRaw(ctx, filehost.CategoryImage, rec.ID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, filehost.ErrNotFound), "a missing backing file is a storage failure")
	var storageErr *filehost.StorageError
	assert.True(t, errors.As(err, &storageErr))
}

func TestQuery_FetchExternalDocument(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	rec := env.create(t, filehost.CategoryPDF, "a.pdf", "application/pdf", "a",
		map[string]interface{}{"title": "A"})

	doc, err := env.svc.Query.FetchExternalDocument(ctx, filehost.CategoryPDF, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, doc["_id"])
	assert.Equal(t, rec.Filepath, doc["content_path"])

	_, err = env.svc.Query.FetchExternalDocument(ctx, filehost.CategoryPDF, "missing")
	assert.True(t, errors.Is(err, filehost.ErrNotFound))
}

func TestQuery_FetchExternalDocumentDatabaseDown(t *testing.T) {
	env := setupTestEnv(t, withDocs(failingDocs{}))

	_, err := env.svc.Query.FetchExternalDocument(context.Background(), filehost.CategoryPDF, "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, filehost.ErrNotFound))
	var docErr *filehost.DocumentError
	assert.True(t, errors.As(err, &docErr))
}

func TestQuery_Divisions(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	north := env.create(t, filehost.CategoryImage, "n1.jpg", "image/jpeg", "1", map[string]interface{}{"Division": "North"})
	north2 := env.create(t, filehost.CategoryImage, "n2.jpg", "image/jpeg", "2", map[string]interface{}{"Division": "North"})
	env.create(t, filehost.CategoryImage, "s.jpg", "image/jpeg", "3", map[string]interface{}{"Division": "South"})
	env.create(t, filehost.CategoryImage, "none.jpg", "image/jpeg", "4", nil)
	env.create(t, filehost.CategoryVideo, "v.mp4", "video/mp4", "5", map[string]interface{}{"Division": "East"})

	divisions, err := env.svc.Query.ListDivisions(ctx, filehost.CategoryImage)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"North", "South"}, divisions)

	divisions, err = env.svc.Query.ListDivisions(ctx, filehost.CategoryVideo)
	require.NoError(t, err)
	assert.Equal(t, []string{"East"}, divisions)

	ids, err := env.svc.Query.ListByDivision(ctx, filehost.CategoryImage, "North", filehost.ProjectID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []map[string]interface{}{{"_id": north.ID}, {"_id": north2.ID}}, ids)

	names, err := env.svc.Query.ListByDivision(ctx, filehost.CategoryImage, "North", filehost.ProjectFilename)
	require.NoError(t, err)
	assert.ElementsMatch(t, []map[string]interface{}{
		{"_id": north.ID, "filename": "n1.jpg"},
		{"_id": north2.ID, "filename": "n2.jpg"},
	}, names)

	empty, err := env.svc.Query.ListByDivision(ctx, filehost.CategoryImage, "West", filehost.ProjectID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestQuery_DivisionsUnavailableForPDF(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Query.ListDivisions(ctx, filehost.CategoryPDF)
	assert.True(t, errors.Is(err, filehost.ErrUnknownCategory))

	_, err = env.svc.Query.ListByDivision(ctx, filehost.CategoryPDF, "North", filehost.ProjectID)
	assert.True(t, errors.Is(err, filehost.ErrNotFound))
}

func TestQuery_DivisionsDatabaseDown(t *testing.T) {
	env := setupTestEnv(t, withDocs(failingDocs{}))

	_, err := env.svc.Query.ListDivisions(context.Background(), filehost.CategoryImage)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errDatabaseDown))
}

func TestQuery_ListDivisionsLogsNonStringValues(t *testing.T) {
	var buf bytes.Buffer
	env := setupTestEnv(t, withLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	ctx := context.Background()

	env.create(t, filehost.CategoryImage, "n.jpg", "image/jpeg", "n", map[string]interface{}{"Division": "North"})
	require.NoError(t, env.docs.InsertOne(ctx, "gallery", map[string]interface{}{
		"_id":      "legacy",
		"metadata": map[string]interface{}{"Division": 7},
	}))

	divisions, err := env.svc.Query.ListDivisions(ctx, filehost.CategoryImage)
	require.NoError(t, err)
	assert.Equal(t, []string{"North"}, divisions)
	assert.Contains(t, buf.String(), "Skipping non-string division")
	assert.Contains(t, buf.String(), "value=7")
}
