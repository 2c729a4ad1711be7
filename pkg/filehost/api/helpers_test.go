package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-filehost/pkg/filehost"
	"github.com/tendant/simple-filehost/pkg/filehost/docstore/memory"
	"github.com/tendant/simple-filehost/pkg/filehost/metastore"
	fsstorage "github.com/tendant/simple-filehost/pkg/filehost/storage/fs"
)

type testServer struct {
	router *chi.Mux
	svc    *filehost.Service
	docs   *memory.Store
}

func newTestService(t *testing.T, docs filehost.DocumentStore) *filehost.Service {
	t.Helper()
	root := t.TempDir()

	blobs, err := fsstorage.New(fsstorage.Config{BaseDir: filepath.Join(root, "uploads")})
	require.NoError(t, err)

	store := func(name string) *metastore.Store {
		return metastore.New(filepath.Join(root, "data", name))
	}
	registry, err := filehost.NewRegistry(
		filehost.Entry{
			Category:     filehost.CategoryPDF,
			Dir:          "pdfs",
			Collection:   "books",
			ContentType:  "application/pdf",
			Store:        store("pdf.json"),
			Editable:     true,
			OmitFilename: true,
		},
		filehost.Entry{
			Category:    filehost.CategoryImage,
			Dir:         "images",
			Collection:  "gallery",
			ContentType: "image/jpeg",
			Store:       store("image.json"),
			Editable:    true,
			Divisions:   true,
		},
		filehost.Entry{
			Category:        filehost.CategoryVideo,
			Dir:             "videos",
			Collection:      "videos",
			ContentType:     "video/mp4",
			Store:           store("video.json"),
			Divisions:       true,
			PayloadKeys:     []string{"description", "Division"},
			StampUploadDate: true,
		},
	)
	require.NoError(t, err)

	svc, err := filehost.New(
		filehost.WithRegistry(registry),
		filehost.WithBlobStore(blobs),
		filehost.WithDocumentStore(docs),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc
}

func setupTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	docs := memory.New()
	svc := newTestService(t, docs)

	r := chi.NewRouter()
	Register(r, svc, opts...)
	return &testServer{router: r, svc: svc, docs: docs}
}

type formFile struct {
	name        string
	contentType string
	content     string
}

// multipartBody builds a multipart request body with an optional file part.
func multipartBody(t *testing.T, file *formFile, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, file.name))
		h.Set("Content-Type", file.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(file.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, category, name, contentType, content string, metadata string) *httptest.ResponseRecorder {
	t.Helper()
	fields := map[string]string{}
	if metadata != "" {
		fields["metadata"] = metadata
	}
	body, ct := multipartBody(t, &formFile{name: name, contentType: contentType, content: content}, fields)
	return s.do(t, http.MethodPost, "/"+category+"/create", body, ct)
}

// mustCreate uploads a file and returns the new record id.
func (s *testServer) mustCreate(t *testing.T, category, name, contentType, content, metadata string) string {
	t.Helper()
	w := s.upload(t, category, name, contentType, content, metadata)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp MutationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func httptestRecorder(s *testServer, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

var errDatabaseDown = errors.New("connection refused: 10.0.0.7:27017")

// downDocs fails every call against the document database.
type downDocs struct{}

func (downDocs) InsertOne(ctx context.Context, collection string, doc interface{}) error {
	return errDatabaseDown
}

func (downDocs) FindOne(ctx context.Context, collection string, filter filehost.Filter) (map[string]interface{}, error) {
	return nil, errDatabaseDown
}

func (downDocs) Distinct(ctx context.Context, collection, field string) ([]interface{}, error) {
	return nil, errDatabaseDown
}

func (downDocs) Find(ctx context.Context, collection string, filter filehost.Filter, projection []string) ([]map[string]interface{}, error) {
	return nil, errDatabaseDown
}

func (downDocs) Close(ctx context.Context) error {
	return nil
}
