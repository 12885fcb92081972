// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Package httpapi exposes the directory operations over HTTP. It owns
// request decoding, response shaping (the password hash never leaves this
// layer), the capability check on administrative reads, and the mapping of
// domain errors to status codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"

	"github.com/rosterd/rosterd/internal/directory"
	"github.com/rosterd/rosterd/pkg/errutil"
)

// maxBodyBytes bounds request bodies; account payloads are small.
const maxBodyBytes = 1 << 20

// createPersonRequest is the registration payload.
type createPersonRequest struct {
	Username    string `json:"username" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"displayName,omitempty"`
}

// personResponse is the external view of an account. The password hash is
// deliberately absent.
type personResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toPersonResponse(a *directory.Account) personResponse {
	return personResponse{
		ID:          a.ID.String(),
		Username:    a.Username,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		CreatedAt:   a.CreatedAt,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Handler serves the directory API.
type Handler struct {
	service  *directory.Service
	hasher   directory.PasswordHasher
	validate *validator.Validate
	logger   *slog.Logger

	// onRegistered is invoked after each successful registration (metrics).
	onRegistered func()
	// onRequest is invoked after each request with the matched route
	// template and response status (metrics).
	onRequest func(route, status string)
}

// NewHandler creates a Handler.
func NewHandler(service *directory.Service, hasher directory.PasswordHasher, logger *slog.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("directory service is required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:      service,
		hasher:       hasher,
		validate:     validator.New(),
		logger:       logger,
		onRegistered: func() {},
		onRequest:    func(string, string) {},
	}, nil
}

// OnRegistered registers a callback invoked after each successful
// registration.
func (h *Handler) OnRegistered(fn func()) {
	if fn != nil {
		h.onRegistered = fn
	}
}

// OnRequest registers a callback invoked after each request with the matched
// route template and response status.
func (h *Handler) OnRequest(fn func(route, status string)) {
	if fn != nil {
		h.onRequest = fn
	}
}

// Router builds the API routes. Reads are gated by the credential check;
// registration is open.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.countRequest)
	r.HandleFunc("/persons", h.handleCreate).Methods(http.MethodPost)
	r.Handle("/persons", h.requireAuth(http.HandlerFunc(h.handleList))).Methods(http.MethodGet)
	r.Handle("/persons/{id}", h.requireAuth(http.HandlerFunc(h.handleGet))).Methods(http.MethodGet)
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPersonRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid person data: "+err.Error(), "PERSON_INVALID")
		return
	}

	account, err := h.service.Register(r.Context(), directory.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.onRegistered()
	h.writeJSON(w, http.StatusCreated, toPersonResponse(account))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := ulid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid person id", "PERSON_INVALID_ID")
		return
	}

	account, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toPersonResponse(account))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page, ok := h.queryInt(w, r, "pageNumber", directory.DefaultPage)
	if !ok {
		return
	}
	size, ok := h.queryInt(w, r, "pageSize", directory.DefaultPageSize)
	if !ok {
		return
	}
	if page < 0 || (r.URL.Query().Has("pageSize") && size < 1) {
		h.writeError(w, http.StatusBadRequest, "pageNumber must be >= 0 and pageSize >= 1", "PERSON_INVALID_PAGE")
		return
	}

	accounts, err := h.service.List(r.Context(), page, size)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]personResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toPersonResponse(a))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// statusRecorder captures the response status for the request counter.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// countRequest reports the matched route template and status to onRequest.
func (h *Handler) countRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		h.onRequest(route, strconv.Itoa(rec.status))
	})
}

// queryInt parses an optional integer query parameter.
func (h *Handler) queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, name+" must be an integer", "PERSON_INVALID_PAGE")
		return 0, false
	}
	return v, true
}

// requireAuth verifies a basic-auth credential against the directory before
// allowing administrative reads. This is the transport-side capability
// check; the core never sees authorization.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			h.unauthorized(w)
			return
		}

		principal, err := h.service.FindPrincipalByUsername(r.Context(), username)
		if err != nil {
			if errors.Is(err, directory.ErrPrincipalNotFound) {
				h.unauthorized(w)
				return
			}
			h.writeDomainError(w, err)
			return
		}

		valid, err := h.hasher.Verify(password, principal.PasswordHash)
		if err != nil || !valid {
			h.unauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="roster"`)
	h.writeError(w, http.StatusUnauthorized, "invalid credentials", "PERSON_UNAUTHORIZED")
}

// writeDomainError maps directory errors to status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrDuplicateEmail), errors.Is(err, directory.ErrDuplicateUsername):
		h.writeError(w, http.StatusConflict, err.Error(), errutil.CodeOf(err))
	case errors.Is(err, directory.ErrInvalidAccount):
		h.writeError(w, http.StatusBadRequest, err.Error(), errutil.CodeOf(err))
	case errors.Is(err, directory.ErrNotFound), errors.Is(err, directory.ErrPrincipalNotFound):
		h.writeError(w, http.StatusNotFound, err.Error(), errutil.CodeOf(err))
	default:
		errutil.LogError(h.logger, "request failed", err)
		h.writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response write failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg, code string) {
	h.writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
