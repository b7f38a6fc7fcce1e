package editor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/geometry"
	"github.com/aretw0/espalier/pkg/ports"
)

// Panel is a resizable layout region of the hosting UI. The machine
// tracks its width during a resize gesture; widths are presentational
// and never persisted.
type Panel struct {
	ID    string
	Min   float64
	Max   float64
	Width float64
}

// Config carries the collaborators of a session. Only Store is required
// for Save to work; everything else degrades gracefully when absent.
type Config struct {
	ProjectID string
	Store     ports.FlowStore
	Validator ports.FlowValidator
	Exporters []ports.FlowExporter
	Hooks     domain.EditorHooks
	Logger    *slog.Logger
}

// Session is one editing session over one flow: the graph aggregate, the
// view transform, the gesture machine, the dirty bridge and the
// collaborator ports. It is owned by the hosting UI layer; there are no
// ambient singletons, so multiple editors can coexist and tests stay
// hermetic.
type Session struct {
	FlowID      string
	Name        string
	Description string

	projectID string
	graph     *Graph
	view      geometry.View
	machine   Machine
	dirty     *dirtyTracker
	selection domain.Selection
	hooks     domain.EditorHooks
	panels    map[string]*Panel

	store     ports.FlowStore
	validator ports.FlowValidator
	exporters map[ports.ExportFormat]ports.FlowExporter
	logger    *slog.Logger

	saveMu      sync.Mutex
	savePending bool
}

// NewSession creates an empty session wired to the given collaborators.
func NewSession(cfg Config) *Session {
	s := &Session{
		projectID: cfg.ProjectID,
		graph:     NewGraph(),
		view:      geometry.NewView(0, 0),
		dirty:     newDirtyTracker(),
		hooks:     cfg.Hooks,
		panels:    make(map[string]*Panel),
		store:     cfg.Store,
		validator: cfg.Validator,
		exporters: make(map[ports.ExportFormat]ports.FlowExporter),
		logger:    cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	for _, exp := range cfg.Exporters {
		s.exporters[exp.Format()] = exp
	}
	s.machine.s = s
	s.graph.SetNotifier(s.notice)
	s.graph.SetMutateHook(func() { s.dirty.Set(true) })
	if s.hooks.OnDirtyChange != nil {
		s.dirty.Subscribe(s.hooks.OnDirtyChange)
	}
	return s
}

// Graph exposes the mutable aggregate.
func (s *Session) Graph() *Graph { return s.graph }

// Machine exposes the interaction state machine.
func (s *Session) Machine() *Machine { return &s.machine }

// View returns the current view transform.
func (s *Session) View() geometry.View { return s.view }

// SetViewOrigin records the workspace container's screen position, which
// the transform needs to invert pointer coordinates.
func (s *Session) SetViewOrigin(x, y float64) {
	s.view.OriginX = x
	s.view.OriginY = y
	s.pathsInvalid()
}

// RegisterPanel declares a resizable panel with its width bounds.
func (s *Session) RegisterPanel(p Panel) {
	panel := p
	if panel.Width < panel.Min {
		panel.Width = panel.Min
	}
	s.panels[panel.ID] = &panel
}

// PanelWidth returns a panel's current width.
func (s *Session) PanelWidth(id string) (float64, bool) {
	p, ok := s.panels[id]
	if !ok {
		return 0, false
	}
	return p.Width, true
}

// Dirty reports whether unsaved changes exist.
func (s *Session) Dirty() bool { return s.dirty.Dirty() }

// SubscribeDirty registers a listener for dirty-flag transitions.
func (s *Session) SubscribeDirty(fn func(bool)) (cancel func()) {
	return s.dirty.Subscribe(fn)
}

// Selection returns the current selection (one node xor one edge).
func (s *Session) Selection() domain.Selection { return s.selection }

// SelectNode selects a node, clearing any edge selection.
func (s *Session) SelectNode(id string) {
	if s.graph.Node(id) == nil {
		return
	}
	s.setSelection(domain.Selection{NodeID: id})
}

// SelectEdge selects an edge, clearing any node selection.
func (s *Session) SelectEdge(id string) {
	if s.graph.Edge(id) == nil {
		return
	}
	s.setSelection(domain.Selection{EdgeID: id})
}

// ClearSelection deselects everything.
func (s *Session) ClearSelection() {
	s.setSelection(domain.Selection{})
}

func (s *Session) setSelection(sel domain.Selection) {
	if s.selection == sel {
		return
	}
	s.selection = sel
	if s.hooks.OnSelectionChange != nil {
		s.hooks.OnSelectionChange(sel)
	}
}

// RemoveNode deletes a node through the graph and drops it from the
// selection if it was selected.
func (s *Session) RemoveNode(id string) error {
	if err := s.graph.RemoveNode(id); err != nil {
		return err
	}
	if s.selection.NodeID == id {
		s.ClearSelection()
	}
	// Cascade deletion may have removed the selected edge too.
	if s.selection.EdgeID != "" && s.graph.Edge(s.selection.EdgeID) == nil {
		s.ClearSelection()
	}
	return nil
}

// RemoveEdge deletes an edge through the graph, clearing its selection.
func (s *Session) RemoveEdge(id string) error {
	if err := s.graph.RemoveEdge(id); err != nil {
		return err
	}
	if s.selection.EdgeID == id {
		s.ClearSelection()
	}
	return nil
}

// Load seeds the session from a persisted snapshot. Dirty is cleared
// unless load-time reconciliation pruned or rewrote edges: the in-memory
// flow then already differs from its persisted form and stays dirty.
func (s *Session) Load(flow *domain.Flow) error {
	mutated, err := s.graph.Load(flow)
	if err != nil {
		return err
	}
	s.FlowID = flow.ID
	s.Name = flow.Name
	s.Description = flow.Description
	s.selection = domain.Selection{}
	s.dirty.Set(mutated)
	return nil
}

// Snapshot builds the normalized persistence payload, including the flow
// identity fields.
func (s *Session) Snapshot() *domain.Flow {
	flow := s.graph.Snapshot()
	flow.ID = s.FlowID
	flow.Name = s.Name
	flow.Description = s.Description
	return flow
}

// Save hands the snapshot to the store. A save issued while a previous
// one is still outstanding is dropped with a notice rather than queued;
// dirty state clears only on acknowledgment and survives failures.
func (s *Session) Save(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("save: no store configured")
	}

	s.saveMu.Lock()
	if s.savePending {
		s.saveMu.Unlock()
		s.notice(domain.Notice{Level: domain.NoticeInfo, Message: "save already in progress"})
		return domain.ErrSavePending
	}
	s.savePending = true
	s.saveMu.Unlock()

	defer func() {
		s.saveMu.Lock()
		s.savePending = false
		s.saveMu.Unlock()
	}()

	snapshot := s.Snapshot()
	if err := s.store.SaveFlow(ctx, s.projectID, snapshot); err != nil {
		s.logger.Warn("save failed", "flow", s.FlowID, "err", err)
		s.notice(domain.Notice{Level: domain.NoticeError, Message: "saving failed: " + err.Error()})
		return err
	}
	s.dirty.Set(false)
	s.logger.Debug("flow saved", "flow", s.FlowID, "nodes", len(snapshot.Nodes), "edges", len(snapshot.Edges))
	return nil
}

// Validate submits the snapshot to the validator collaborator. The report
// is for display only; the graph is never mutated by validation.
func (s *Session) Validate(ctx context.Context) (*domain.Report, error) {
	if s.validator == nil {
		return nil, fmt.Errorf("validate: no validator configured")
	}
	report, err := s.validator.Validate(ctx, s.Snapshot())
	if err != nil {
		s.notice(domain.Notice{Level: domain.NoticeError, Message: "validation failed: " + err.Error()})
		return nil, err
	}
	return report, nil
}

// Export renders the snapshot through the exporter registered for format.
func (s *Session) Export(ctx context.Context, format ports.ExportFormat, w io.Writer) error {
	exp, ok := s.exporters[format]
	if !ok {
		return fmt.Errorf("export: no exporter for %q", format)
	}
	if err := exp.Export(ctx, s.Snapshot(), w); err != nil {
		s.notice(domain.Notice{Level: domain.NoticeError, Message: "export failed: " + err.Error()})
		return err
	}
	return nil
}

// ConnectionPath computes the rendered curve of an edge from its two
// registered anchors.
func (s *Session) ConnectionPath(edgeID string) (geometry.Curve, bool) {
	edge := s.graph.Edge(edgeID)
	if edge == nil {
		return geometry.Curve{}, false
	}
	src, ok := s.graph.Anchor(domain.PortRef{NodeID: edge.Source, Direction: domain.PortOut, PortID: edge.SourcePort})
	if !ok {
		return geometry.Curve{}, false
	}
	dst, ok := s.graph.Anchor(domain.PortRef{NodeID: edge.Target, Direction: domain.PortIn, PortID: edge.TargetPort})
	if !ok {
		return geometry.Curve{}, false
	}
	return geometry.ConnectionPath(src, dst), true
}

func (s *Session) notice(n domain.Notice) {
	if s.hooks.OnNotice != nil {
		s.hooks.OnNotice(n)
	}
}

func (s *Session) pathsInvalid() {
	if s.hooks.OnPathsInvalid != nil {
		s.hooks.OnPathsInvalid()
	}
}
