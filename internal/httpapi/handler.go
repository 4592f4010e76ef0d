// Package httpapi implements the collection orchestrator's HTTP surface:
// POST /submit, GET /status, GET /databases. Grounded in
// the donor's internal/handlers package shape (a Handler struct wrapping
// the objects it delegates to, one method per route, responses through
// pkg/response).
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/techappsUT/social-queue/internal/platformlog"
	"github.com/techappsUT/social-queue/internal/platformtypes"
	"github.com/techappsUT/social-queue/internal/store"
	"github.com/techappsUT/social-queue/internal/taskparser"
	"github.com/techappsUT/social-queue/pkg/response"
)

// Orchestrator is the subset of *orchestrator.Orchestrator the HTTP
// surface depends on, narrowed to an interface so handlers can be
// tested without a full Orchestrator.
type Orchestrator interface {
	Databases() ([]store.CatalogEntry, error)
	Status(includeTaskCounts bool) ([]store.StatusRow, error)
	Submit(ctx context.Context, tasks []*platformtypes.Task) (added []string, allAdded bool, err error)
}

// Handler serves the orchestrator's HTTP surface.
type Handler struct {
	orchestrator Orchestrator
	logger       platformlog.Logger
}

// New builds a Handler.
func New(o Orchestrator, logger platformlog.Logger) *Handler {
	return &Handler{orchestrator: o, logger: logger}
}

// Submit handles POST /submit. It accepts the same JSON shapes as a task
// file: a single task object, an array of task objects, or a task group
// object.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	tasks, err := taskparser.ParseTaskData(body)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid task payload", err)
		return
	}

	added, allAdded, err := h.orchestrator.Submit(r.Context(), tasks)
	if err != nil {
		h.logger.Error("submit failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "failed to submit tasks", err)
		return
	}

	response.Success(w, map[string]interface{}{
		"added":     added,
		"all_added": allAdded,
	})
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	rows, err := h.orchestrator.Status(true)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to read status", err)
		return
	}
	response.Success(w, rows)
}

// Databases handles GET /databases.
func (h *Handler) Databases(w http.ResponseWriter, r *http.Request) {
	entries, err := h.orchestrator.Databases()
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "failed to read databases", err)
		return
	}
	response.Success(w, entries)
}

// Router builds the chi router serving this Handler's routes, matching
// the donor's setupRouter shape (cmd/api/router.go): RequestID/RealIP/
// Logger/Recoverer/Timeout plus a permissive CORS policy, then explicit
// route registration.
func Router(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Post("/submit", h.Submit)
	r.Get("/status", h.Status)
	r.Get("/databases", h.Databases)

	return r
}
