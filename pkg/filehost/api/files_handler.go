package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-filehost/pkg/filehost"
)

// DefaultMaxUploadBytes caps a single multipart request.
const DefaultMaxUploadBytes int64 = 512 << 20

// multipart parts above this size spill to temporary files
const multipartMemory = 32 << 20

// MutationResponse is returned by create and edit.
type MutationResponse struct {
	Success string `json:"success"`
	ID      string `json:"id,omitempty"`
}

// DeleteResponse is returned by delete.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// FilesHandler serves the per-category file routes.
type FilesHandler struct {
	svc            *filehost.Service
	logger         *slog.Logger
	maxUploadBytes int64
	mutation       []func(http.Handler) http.Handler
}

// NewFilesHandler creates a files handler over svc.
func NewFilesHandler(svc *filehost.Service, opts ...Option) *FilesHandler {
	o := buildOptions(opts)
	return &FilesHandler{
		svc:            svc,
		logger:         o.logger,
		maxUploadBytes: o.maxUploadBytes,
		mutation:       o.mutation,
	}
}

// Register adds the routes of every registered category to r. Create, edit
// and delete run behind the mutation middlewares; reads stay open.
func (h *FilesHandler) Register(r chi.Router) {
	for _, entry := range h.svc.Registry.Entries() {
		entry := entry
		category := entry.Category

		r.Route("/"+string(category), func(r chi.Router) {
			r.Get("/fetch", h.listAll(category))
			r.Get("/fetch/{id}", h.fetchRaw(category))
			r.Get("/data/fetch/{id}", h.fetchDocument(category))

			if entry.Divisions {
				r.Get("/divisions", h.listDivisions(category))
				r.Get("/divisions/{division}", h.listByDivision(category, filehost.ProjectID))
				r.Get("/filename/{division}", h.listByDivision(category, filehost.ProjectFilename))
			}

			r.Group(func(r chi.Router) {
				r.Use(h.mutation...)
				r.Post("/create", h.create(category))
				if entry.Editable {
					r.Patch("/edit/{id}", h.edit(category))
				}
				r.Delete("/delete/{id}", h.delete(category))
			})
		})
	}

	// Image filenames were served at the root before categories had their own.
	if entry, err := h.svc.Registry.Lookup(filehost.CategoryImage); err == nil && entry.Divisions {
		r.Get("/filename/{division}", h.listByDivision(filehost.CategoryImage, filehost.ProjectFilename))
	}
}

func (h *FilesHandler) listAll(category filehost.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := h.svc.Query.ListAll(r.Context(), category)
		if err != nil {
			writeError(w, r, h.logger, category, err)
			return
		}
		render.JSON(w, r, records)
	}
}

func (h *FilesHandler) fetchRaw(category filehost.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := h.svc.Query.FetchRaw(r.Context(), category, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, h.logger, category, err)
			return
		}
		w.Header().Set("Content-Type", raw.ContentType)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(raw.Data); err != nil {
			h.logger.Warn("Failed to write file response", "category", category, "error", err)
		}
	}
}

func (h *FilesHandler) fetchDocument(category filehost.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.svc.Query.FetchExternalDocument(r.Context(), category, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, h.logger, category, err)
			return
		}
		render.JSON(w, r, doc)
	}
}

func (h *FilesHandler) listDivisions(category filehost.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		divisions, err := h.svc.Query.ListDivisions(r.Context(), category)
		if err != nil {
			writeError(w, r, h.logger, category, err)
			return
		}
		render.JSON(w, r, divisions)
	}
}

func (h *FilesHandler) listByDivision(category filehost.Category, projection filehost.Projection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := h.svc.Query.ListByDivision(r.Context(), category, chi.URLParam(r, "division"), projection)
		if err != nil {
			writeError(w, r, h.logger, category, err)
			return
		}
		render.JSON(w, r, docs)
	}
}

func (h *FilesHandler) create(category filehost.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := h.parseForm(w, r); err != nil {
			writeError(w, r, h.logger, category, err)
			return
		}

		payload, err := parseMetadata(r.FormValue("metadata"))
		if err != nil {
			writeError(w, r, h.logger, category, err)
			return
		}

		file, err := h.stageFormFile(r, category)
		if err != nil {
			writeError(w, r, h.logger, category, err)
			return
		}
		if file == nil {
			writeError(w, r, h.logger, category, badRequest("No file uploaded", nil))
			return
		}

		record, err := h.svc.Uploads.Create(ctx, category, *file, payload)
		if err != nil {
			writeError(w, r, h.logger, category, err)
			return
		}

		render.JSON(w, r, MutationResponse{Success: "success", ID: record.ID})
	}
}

func (h *FilesHandler) edit(category filehost.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")
		if err := h.parseForm(w, r); err != nil {
			writeError(w, r, h.logger, category, err)
			return
		}

		req := filehost.EditRequest{Filename: r.FormValue("newFilename")}
		if raw := strings.TrimSpace(r.FormValue("newUploadDate")); raw != "" {
			uploadDate, err := filehost.ParseDate(raw)
			if err != nil {
				writeError(w, r, h.logger, category, badRequest("Invalid upload date", err))
				return
			}
			req.UploadDate = &uploadDate
		}

		file, err := h.stageFormFile(r, category)
		if err != nil {
			writeError(w, r, h.logger, category, err)
			return
		}
		req.File = file

		record, err := h.svc.Uploads.Edit(ctx, category, id, req)
		if err != nil {
			writeError(w, r, h.logger, category, err)
			return
		}

		render.JSON(w, r, MutationResponse{Success: category.Label() + " updated successfully", ID: record.ID})
	}
}

func (h *FilesHandler) delete(category filehost.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Uploads.Delete(r.Context(), category, chi.URLParam(r, "id")); err != nil {
			writeError(w, r, h.logger, category, err)
			return
		}
		render.JSON(w, r, DeleteResponse{Success: true, Message: category.Label() + " file deleted successfully"})
	}
}

// parseForm reads a multipart body within the upload limit. Non-multipart
// bodies are accepted so edits can send plain form fields.
func (h *FilesHandler) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequest("Invalid form data", err)
	}
	return nil
}

// stageFormFile writes the "file" part to disk. It returns nil when the
// request carries no file.
func (h *FilesHandler) stageFormFile(r *http.Request, category filehost.Category) (*filehost.UploadedFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	defer r.MultipartForm.RemoveAll()

	part, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, badRequest("Invalid form data", err)
	}
	defer part.Close()

	return h.svc.Uploads.StageUpload(r.Context(), category, header.Filename, header.Header.Get("Content-Type"), part)
}

func parseMetadata(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}, nil
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, badRequest("Invalid metadata", err)
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return payload, nil
}
