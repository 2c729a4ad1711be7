package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/tendant/simple-filehost/pkg/filehost"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// requestError carries a client-facing message for a specific status.
type requestError struct {
	status  int
	message string
	err     error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *requestError) Unwrap() error {
	return e.err
}

func badRequest(message string, err error) error {
	return &requestError{status: http.StatusBadRequest, message: message, err: err}
}

const internalMessage = "Internal Server Error"

// writeError maps err to a status code and message. Internal details such as
// paths and driver messages are logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, category filehost.Category, err error) {
	status, message := classify(category, err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Status: status, Message: message})
}

func classify(category filehost.Category, err error) (int, string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.status, reqErr.message
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "File too large"
	}

	switch {
	case errors.Is(err, filehost.ErrUnknownCategory):
		return http.StatusNotFound, notFoundMessage
	case errors.Is(err, filehost.ErrNotFound):
		return http.StatusNotFound, category.Label() + " not found"
	case errors.Is(err, filehost.ErrConflict):
		return http.StatusConflict, "File with the same name already exists"
	case errors.Is(err, filehost.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, "Invalid file type"
	case errors.Is(err, filehost.ErrBadRequest):
		return http.StatusBadRequest, "Bad Request"
	}

	var storageErr *filehost.StorageError
	var recordErr *filehost.RecordError
	if errors.As(err, &storageErr) && storageErr.Op == "remove" && errors.As(err, &recordErr) {
		switch recordErr.Op {
		case "edit":
			return http.StatusInternalServerError, "Error deleting old " + fileNoun(category) + " file"
		case "delete":
			return http.StatusInternalServerError, "Error deleting " + fileNoun(category) + " file"
		}
	}
	return http.StatusInternalServerError, internalMessage
}

// fileNoun is the category name as it appears mid-sentence.
func fileNoun(category filehost.Category) string {
	if category == filehost.CategoryPDF {
		return category.Label()
	}
	return strings.ToLower(category.Label())
}
