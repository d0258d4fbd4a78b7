package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/userhub/engine/internal/api/types"
	"github.com/userhub/engine/internal/models"
	"github.com/userhub/engine/internal/services"
)

const (
	defaultLimit  = 10
	maxUpdateBody = 1 << 20
)

// Enqueuer schedules background ingest work and returns the task id.
type Enqueuer interface {
	EnqueueFetch(ctx context.Context, count int) (string, error)
}

type UsersHandler struct {
	svc      services.UserService
	enqueue  Enqueuer
	validate *validator.Validate
	maxFetch int
}

// NewUsersHandler wires the user endpoints. enq may be nil, in which case
// async ingest requests are rejected.
func NewUsersHandler(svc services.UserService, enq Enqueuer, maxFetch int) *UsersHandler {
	return &UsersHandler{svc: svc, enqueue: enq, validate: validator.New(), maxFetch: maxFetch}
}

func (h *UsersHandler) Routes(r chi.Router) {
	r.Post("/users/fetch", h.Fetch)
	r.Get("/users", h.List)
	r.Get("/users/{id}", h.Get)
	r.Put("/users/{id}", h.Update)
	r.Delete("/users/{id}", h.Delete)
	r.Get("/random", h.Random)
}

func (h *UsersHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count, err := strconv.Atoi(q.Get("count"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "count must be an integer")
		return
	}
	async, _ := strconv.ParseBool(q.Get("async"))
	in := types.FetchQuery{Count: count, Async: async}
	if err := h.validate.Struct(in); err != nil {
		writeDetail(w, http.StatusBadRequest, "count must be at least 1")
		return
	}

	if in.Async {
		if h.enqueue == nil {
			writeDetail(w, http.StatusBadRequest, "async ingest is not available")
			return
		}
		if h.maxFetch > 0 && in.Count > h.maxFetch {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Too many users requested, max - %d", h.maxFetch))
			return
		}
		id, err := h.enqueue.EnqueueFetch(r.Context(), in.Count)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, types.TaskAccepted{TaskID: id, Count: in.Count})
		return
	}

	report, err := h.svc.FetchAndSave(r.Context(), in.Count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("X-Skipped-Count", strconv.Itoa(report.Skipped()))
	writeJSON(w, http.StatusOK, report.Created)
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	page := types.PageQuery{Limit: defaultLimit}
	q := r.URL.Query()
	var err error
	if v := q.Get("limit"); v != "" {
		if page.Limit, err = strconv.Atoi(v); err != nil {
			writeDetail(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if page.Offset, err = strconv.Atoi(v); err != nil {
			writeDetail(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
	}
	if err := h.validate.Struct(page); err != nil {
		writeDetail(w, http.StatusBadRequest, "limit must be between 1 and 1000 and offset must not be negative")
		return
	}

	users, err := h.svc.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	u, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var upd models.UserUpdate
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBody)).Decode(&upd); err != nil {
		if errors.Is(err, io.EOF) {
			writeDetail(w, http.StatusBadRequest, "request body is empty")
			return
		}
		writeDetail(w, http.StatusBadRequest, "invalid json body")
		return
	}
	u, err := h.svc.Update(r.Context(), id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) Random(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetRandom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func userID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "user id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}
