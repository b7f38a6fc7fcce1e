package espalier

import (
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/espalier/internal/editor"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/geometry"
	"github.com/aretw0/espalier/pkg/ports"
)

// Version is the library release version.
const Version = "0.3.0"

// Editor is the high-level entry point for the Espalier library. It wraps
// the internal editing session and provides a simplified API for hosts:
// the graph aggregate, the interaction machine, the view transform and the
// persistence bridge, wired to whatever collaborators the host injects.
type Editor struct {
	session   *editor.Session
	projectID string
	store     ports.FlowStore
	validator ports.FlowValidator
	exporters []ports.FlowExporter
	hooks     domain.EditorHooks
	logger    *slog.Logger
}

// Option defines a functional option for configuring the Editor.
type Option func(*Editor)

// WithStore injects the persistence backend used by Save and Open.
func WithStore(store ports.FlowStore) Option {
	return func(e *Editor) {
		e.store = store
	}
}

// WithValidator injects the diagnostics collaborator used by Validate.
func WithValidator(v ports.FlowValidator) Option {
	return func(e *Editor) {
		e.validator = v
	}
}

// WithExporter registers an exporter. May be given multiple times; the
// last exporter registered for a format wins.
func WithExporter(exp ports.FlowExporter) Option {
	return func(e *Editor) {
		e.exporters = append(e.exporters, exp)
	}
}

// WithHooks registers host callbacks for notices, dirty transitions,
// selection changes and path invalidation.
func WithHooks(hooks domain.EditorHooks) Option {
	return func(e *Editor) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// New initializes an Editor scoped to one project. The editor starts with
// an empty, clean flow; use Open or Load to seed it from a snapshot.
func New(projectID string, opts ...Option) *Editor {
	e := &Editor{projectID: projectID}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if projectID != "" {
		e.logger = e.logger.With("project", projectID)
	}

	e.session = editor.NewSession(editor.Config{
		ProjectID: projectID,
		Store:     e.store,
		Validator: e.validator,
		Exporters: e.exporters,
		Hooks:     e.hooks,
		Logger:    e.logger,
	})
	return e
}

// NewFlow resets the editor to a fresh flow with the given identity.
func (e *Editor) NewFlow(id, name, description string) error {
	return e.session.Load(&domain.Flow{ID: id, Name: name, Description: description})
}

// Open loads a flow from the configured store and seeds the session.
func (e *Editor) Open(ctx context.Context, flowID string) error {
	if e.store == nil {
		return domain.ErrFlowNotFound
	}
	flow, err := e.store.LoadFlow(ctx, e.projectID, flowID)
	if err != nil {
		return err
	}
	return e.session.Load(flow)
}

// Load seeds the session from an already materialized snapshot.
func (e *Editor) Load(flow *domain.Flow) error {
	return e.session.Load(flow)
}

// Save persists the current snapshot through the store. Saves issued while
// one is outstanding return domain.ErrSavePending.
func (e *Editor) Save(ctx context.Context) error {
	return e.session.Save(ctx)
}

// Validate runs the configured validator over the current snapshot.
func (e *Editor) Validate(ctx context.Context) (*domain.Report, error) {
	return e.session.Validate(ctx)
}

// Export renders the current snapshot in the given format.
func (e *Editor) Export(ctx context.Context, format ports.ExportFormat, w io.Writer) error {
	return e.session.Export(ctx, format, w)
}

// Graph exposes the mutable graph aggregate.
func (e *Editor) Graph() *editor.Graph {
	return e.session.Graph()
}

// Machine exposes the pointer-gesture state machine for host event routing.
func (e *Editor) Machine() *editor.Machine {
	return e.session.Machine()
}

// Session exposes the full editing session for hosts that need selection,
// panels or the view transform directly.
func (e *Editor) Session() *editor.Session {
	return e.session
}

// View returns the current pan/zoom transform.
func (e *Editor) View() geometry.View {
	return e.session.View()
}

// Dirty reports whether unsaved changes exist.
func (e *Editor) Dirty() bool {
	return e.session.Dirty()
}

// Snapshot returns the normalized persistence payload of the current flow.
func (e *Editor) Snapshot() *domain.Flow {
	return e.session.Snapshot()
}
