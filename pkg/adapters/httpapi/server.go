// Package httpapi exposes project and flow management over HTTP: CRUD for
// both, plus save, validate, import and export endpoints. Handlers are
// hand-written chi routes speaking JSON; prometheus metrics ride on a
// private registry under /metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/flowyaml"
	"github.com/aretw0/espalier/pkg/ports"
)

// ProjectStore is the optional project-management surface. The file store
// implements it; payload-only stores (redis) do not, and the project
// endpoints answer 501 without it.
type ProjectStore interface {
	CreateProject(ctx context.Context, name, description string) (domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, projectID string) (domain.Project, error)
	RenameProject(ctx context.Context, projectID, name string) (domain.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// FlowRenamer is the optional rename surface of a store.
type FlowRenamer interface {
	RenameFlow(ctx context.Context, projectID, oldID, newID string) error
}

// Config wires the server's collaborators. Store is required.
type Config struct {
	Store     ports.FlowStore
	Projects  ProjectStore
	Validator ports.FlowValidator
	Exporters []ports.FlowExporter
	Locker    ports.FlowLocker
	Logger    *slog.Logger
}

// Server is the HTTP adapter.
type Server struct {
	store     ports.FlowStore
	projects  ProjectStore
	validator ports.FlowValidator
	exporters map[ports.ExportFormat]ports.FlowExporter
	locker    ports.FlowLocker
	logger    *slog.Logger
	metrics   *metrics
}

// lockTTL bounds how long a save may hold a flow lock.
const lockTTL = 30 * time.Second

// NewHandler builds the routed handler.
func NewHandler(cfg Config) http.Handler {
	s := &Server{
		store:     cfg.Store,
		projects:  cfg.Projects,
		validator: cfg.Validator,
		exporters: make(map[ports.ExportFormat]ports.FlowExporter),
		locker:    cfg.Locker,
		logger:    cfg.Logger,
		metrics:   newMetrics(),
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	for _, exp := range cfg.Exporters {
		s.exporters[exp.Format()] = exp
	}

	r := chi.NewRouter()
	r.Use(s.metrics.instrument)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/projects", s.listProjects)
		r.Post("/projects", s.createProject)
		r.Patch("/projects/{projectID}", s.renameProject)
		r.Delete("/projects/{projectID}", s.deleteProject)
		r.Get("/projects/{projectID}/flows", s.listFlows)

		r.Get("/flows/{projectID}/{flowID}", s.getFlow)
		r.Post("/flows/{projectID}/{flowID}/save", s.saveFlow)
		r.Post("/flows/{projectID}/{flowID}/rename", s.renameFlow)
		r.Delete("/flows/{projectID}/{flowID}", s.deleteFlow)
		r.Get("/flows/{projectID}/{flowID}/export", s.exportFlow)

		r.Post("/flows/validate", s.validateFlow)
		r.Post("/flows/import", s.importFlow)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	if s.projects == nil {
		http.Error(w, "project management not supported by this store", http.StatusNotImplemented)
		return
	}
	projects, err := s.projects.ListProjects(r.Context())
	if err != nil {
		s.fail(w, "list projects", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	if s.projects == nil {
		http.Error(w, "project management not supported by this store", http.StatusNotImplemented)
		return
	}
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	project, err := s.projects.CreateProject(r.Context(), body.Name, body.Description)
	if err != nil {
		s.fail(w, "create project", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, project)
}

func (s *Server) renameProject(w http.ResponseWriter, r *http.Request) {
	if s.projects == nil {
		http.Error(w, "project management not supported by this store", http.StatusNotImplemented)
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	project, err := s.projects.RenameProject(r.Context(), chi.URLParam(r, "projectID"), body.Name)
	if err != nil {
		s.fail(w, "rename project", err)
		return
	}
	s.writeJSON(w, http.StatusOK, project)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if s.projects == nil {
		http.Error(w, "project management not supported by this store", http.StatusNotImplemented)
		return
	}
	if err := s.projects.DeleteProject(r.Context(), chi.URLParam(r, "projectID")); err != nil {
		s.fail(w, "delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := s.store.ListFlows(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.fail(w, "list flows", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"flows": flows})
}

func (s *Server) getFlow(w http.ResponseWriter, r *http.Request) {
	flow, err := s.store.LoadFlow(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "flowID"))
	if err != nil {
		s.fail(w, "load flow", err)
		return
	}
	s.writeJSON(w, http.StatusOK, flow)
}

func (s *Server) saveFlow(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	flowID := chi.URLParam(r, "flowID")

	var flow domain.Flow
	if err := json.NewDecoder(r.Body).Decode(&flow); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	flow.ID = flowID
	if err := flow.CheckShape(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, projectID+"/"+flowID, lockTTL)
		if err != nil {
			s.fail(w, "lock flow", err)
			return
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("unlock failed", "flow", flowID, "err", err)
			}
		}()
	}

	if err := s.store.SaveFlow(ctx, projectID, &flow); err != nil {
		s.fail(w, "save flow", err)
		return
	}
	s.logger.Info("flow saved", "project", projectID, "flow", flowID,
		"nodes", len(flow.Nodes), "edges", len(flow.Edges))
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) renameFlow(w http.ResponseWriter, r *http.Request) {
	renamer, ok := s.store.(FlowRenamer)
	if !ok {
		http.Error(w, "rename not supported by this store", http.StatusNotImplemented)
		return
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := renamer.RenameFlow(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "flowID"), body.ID); err != nil {
		s.fail(w, "rename flow", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": body.ID})
}

func (s *Server) deleteFlow(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteFlow(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "flowID")); err != nil {
		s.fail(w, "delete flow", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) validateFlow(w http.ResponseWriter, r *http.Request) {
	if s.validator == nil {
		http.Error(w, "no validator configured", http.StatusNotImplemented)
		return
	}
	var flow domain.Flow
	if err := json.NewDecoder(r.Body).Decode(&flow); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	report, err := s.validator.Validate(r.Context(), &flow)
	if err != nil {
		s.fail(w, "validate flow", err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) importFlow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		YAML string `json:"yaml"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	flow, err := flowyaml.Decode([]byte(body.YAML))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusOK, flow)
}

func (s *Server) exportFlow(w http.ResponseWriter, r *http.Request) {
	format := ports.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = ports.ExportYAML
	}
	exp, ok := s.exporters[format]
	if !ok {
		http.Error(w, fmt.Sprintf("no exporter for %q", format), http.StatusBadRequest)
		return
	}

	flow, err := s.store.LoadFlow(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "flowID"))
	if err != nil {
		s.fail(w, "load flow", err)
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	if err := exp.Export(r.Context(), flow, w); err != nil {
		s.logger.Error("export failed", "format", format, "err", err)
	}
}

func contentType(format ports.ExportFormat) string {
	switch format {
	case ports.ExportPNG:
		return "image/png"
	case ports.ExportMermaid:
		return "text/plain; charset=utf-8"
	default:
		return "text/yaml; charset=utf-8"
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

// fail maps domain sentinels to HTTP statuses and logs server-side faults.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrFlowNotFound), errors.Is(err, domain.ErrProjectNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.logger.Error(op+" failed", "err", err)
		http.Error(w, fmt.Sprintf("%s: %v", op, err), http.StatusInternalServerError)
	}
}
