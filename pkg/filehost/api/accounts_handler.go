package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-filehost/pkg/filehost"
)

// SignupRequest wraps the login record sent by clients.
type SignupRequest struct {
	LoginData filehost.LoginRecord `json:"loginData"`
}

// AccountsHandler serves login lookup and signup.
type AccountsHandler struct {
	accounts *filehost.Accounts
	logger   *slog.Logger
}

func NewAccountsHandler(svc *filehost.Service, opts ...Option) *AccountsHandler {
	o := buildOptions(opts)
	return &AccountsHandler{accounts: svc.Accounts, logger: o.logger}
}

func (h *AccountsHandler) Register(r chi.Router) {
	r.Get("/login/fetch/{username}", h.FetchUser)
	r.Post("/signup", h.Signup)
}

// FetchUser returns the login record of a username
func (h *AccountsHandler) FetchUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.FindUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		if errors.Is(err, filehost.ErrNotFound) {
			err = &requestError{status: http.StatusNotFound, message: "User doesn't exist", err: err}
		}
		writeError(w, r, h.logger, "", err)
		return
	}
	render.JSON(w, r, user)
}

// Signup stores a new login record
func (h *AccountsHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, "", badRequest("Invalid request body", err))
		return
	}
	if err := h.accounts.Signup(r.Context(), req.LoginData); err != nil {
		if errors.Is(err, filehost.ErrBadRequest) {
			err = badRequest("Login data is required", err)
		}
		writeError(w, r, h.logger, "", err)
		return
	}
	render.JSON(w, r, MutationResponse{Success: "success"})
}
