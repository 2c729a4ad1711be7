package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-filehost/pkg/filehost"
)

const (
	welcomeMessage  = "Welcome to the file host server"
	notFoundMessage = "Resource Not Found"
)

type options struct {
	logger         *slog.Logger
	maxUploadBytes int64
	mutation       []func(http.Handler) http.Handler
}

// Option configures the HTTP handlers
type Option func(*options)

// WithLogger sets the handler logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxUploadBytes caps multipart request bodies
func WithMaxUploadBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxUploadBytes = n
		}
	}
}

// WithMutationMiddleware guards create, edit and delete, e.g. with an API key check
func WithMutationMiddleware(middlewares ...func(http.Handler) http.Handler) Option {
	return func(o *options) {
		o.mutation = append(o.mutation, middlewares...)
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:         slog.Default(),
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Register mounts the whole HTTP surface on r: welcome, file routes,
// account routes and the JSON not-found fallback.
func Register(r chi.Router, svc *filehost.Service, opts ...Option) {
	r.Get("/", Welcome)
	NewFilesHandler(svc, opts...).Register(r)
	NewAccountsHandler(svc, opts...).Register(r)
	r.NotFound(NotFound)
	r.MethodNotAllowed(NotFound)
}

// Welcome answers the root path
func Welcome(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, welcomeMessage)
}

// NotFound is the fallback for unknown routes
func NotFound(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, ErrorResponse{Status: http.StatusNotFound, Message: notFoundMessage})
}
