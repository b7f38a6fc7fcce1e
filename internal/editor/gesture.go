package editor

import (
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/geometry"
)

// Mode is the current interactive state. Exactly one non-idle mode is
// active at a time; every non-idle mode is entered from Idle and exits
// back to it on release or cancel.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDraggingNode
	ModeLinking
	ModePanning
	ModeResizingPanel
)

func (m Mode) String() string {
	switch m {
	case ModeDraggingNode:
		return "dragging"
	case ModeLinking:
		return "linking"
	case ModePanning:
		return "panning"
	case ModeResizingPanel:
		return "resizing"
	default:
		return "idle"
	}
}

// Button identifies the pressed pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

// HitKind describes what the pointer landed on. The host performs hit
// testing (it owns the rendered surfaces) and reports the result; the
// machine stays free of any UI framework.
type HitKind int

const (
	HitCanvas HitKind = iota
	HitNode
	HitInputPort
	HitOutputPort
	HitPanelResizer
)

// Hit is the hit-test result attached to a pointer event.
type Hit struct {
	Kind    HitKind
	NodeID  string
	PortID  string
	PanelID string
}

// PointerEvent is a host-translated pointer press/move/release.
type PointerEvent struct {
	PointerID int
	Button    Button
	Screen    geometry.Point
	Hit       Hit
}

// WheelEvent is a host-translated wheel tick. Zoom requires the modifier;
// unmodified wheel input is left to the host (scrolling).
type WheelEvent struct {
	Screen   geometry.Point
	DeltaY   float64
	Modifier bool
}

const wheelZoomStep = 1.1

// Machine is the pointer-driven interaction state machine. It owns the
// view transform and panel layout, and mutates the graph through the
// session that hosts it. Gestures hold exclusive capture on their pointer
// id; events from other pointers are ignored until release or cancel.
type Machine struct {
	s *Session

	mode      Mode
	pointerID int

	// DraggingNode
	dragNodeID   string
	dragStart    geometry.Point
	nodeStartPos domain.Position

	// Linking
	linkSource  domain.PortRef
	linkAnchor  geometry.Point
	linkPointer geometry.Point

	// Panning
	panLast geometry.Point

	// ResizingPanel
	resizePanelID string
	resizeStartX  float64
	panelStartW   float64
}

// Mode returns the active interactive mode.
func (m *Machine) Mode() Mode { return m.mode }

// TempCurve returns the transient linking curve from the source anchor to
// the pointer, valid only while a linking gesture is active.
func (m *Machine) TempCurve() (geometry.Curve, bool) {
	if m.mode != ModeLinking {
		return geometry.Curve{}, false
	}
	return geometry.ConnectionPath(m.linkAnchor, m.linkPointer), true
}

// PointerDown routes a press into a gesture. Entry requires Idle, with one
// exception: a press on an output port while linking cancels the prior
// linking gesture and starts a new one (at most one is ever active).
func (m *Machine) PointerDown(ev PointerEvent) {
	if m.mode == ModeLinking && ev.Button == ButtonPrimary && ev.Hit.Kind == HitOutputPort {
		m.cancelLink()
	}
	if m.mode != ModeIdle {
		return
	}

	switch {
	case ev.Button == ButtonPrimary && ev.Hit.Kind == HitNode:
		node := m.s.graph.Node(ev.Hit.NodeID)
		if node == nil {
			return
		}
		m.mode = ModeDraggingNode
		m.pointerID = ev.PointerID
		m.dragNodeID = node.ID
		m.dragStart = m.s.view.ToLogical(ev.Screen)
		m.nodeStartPos = node.Position
		m.s.SelectNode(node.ID)

	case ev.Button == ButtonPrimary && ev.Hit.Kind == HitOutputPort:
		ref := domain.PortRef{NodeID: ev.Hit.NodeID, Direction: domain.PortOut, PortID: ev.Hit.PortID}
		anchor, ok := m.s.graph.Anchor(ref)
		if !ok {
			anchor = ev.Screen
		}
		m.mode = ModeLinking
		m.pointerID = ev.PointerID
		m.linkSource = ref
		m.linkAnchor = anchor
		m.linkPointer = ev.Screen

	case ev.Button == ButtonSecondary && ev.Hit.Kind == HitCanvas:
		m.mode = ModePanning
		m.pointerID = ev.PointerID
		m.panLast = ev.Screen

	case ev.Button == ButtonPrimary && ev.Hit.Kind == HitPanelResizer:
		panel := m.s.panels[ev.Hit.PanelID]
		if panel == nil {
			return
		}
		m.mode = ModeResizingPanel
		m.pointerID = ev.PointerID
		m.resizePanelID = panel.ID
		m.resizeStartX = ev.Screen.X
		m.panelStartW = panel.Width
	}
}

// PointerMove advances the active gesture. Events from a pointer other
// than the capturing one are ignored.
func (m *Machine) PointerMove(ev PointerEvent) {
	if m.mode == ModeIdle || ev.PointerID != m.pointerID {
		return
	}

	switch m.mode {
	case ModeDraggingNode:
		logical := m.s.view.ToLogical(ev.Screen)
		pos := domain.Position{
			X: m.nodeStartPos.X + (logical.X - m.dragStart.X),
			Y: m.nodeStartPos.Y + (logical.Y - m.dragStart.Y),
		}
		// MoveNode snaps to the grid and marks the graph dirty.
		_ = m.s.graph.MoveNode(m.dragNodeID, pos)

	case ModeLinking:
		m.linkPointer = ev.Screen

	case ModePanning:
		m.s.view = m.s.view.Pan(ev.Screen.X-m.panLast.X, ev.Screen.Y-m.panLast.Y)
		m.panLast = ev.Screen
		m.s.pathsInvalid()

	case ModeResizingPanel:
		panel := m.s.panels[m.resizePanelID]
		if panel == nil {
			return
		}
		width := m.panelStartW + (ev.Screen.X - m.resizeStartX)
		if width < panel.Min {
			width = panel.Min
		}
		if width > panel.Max {
			width = panel.Max
		}
		panel.Width = width
		m.s.pathsInvalid()
	}
}

// PointerUp completes the active gesture. A linking release over an input
// port commits the edge (subject to the occupied-port rule); anywhere else
// it discards the temp curve.
func (m *Machine) PointerUp(ev PointerEvent) {
	if m.mode == ModeIdle || ev.PointerID != m.pointerID {
		return
	}

	if m.mode == ModeLinking && ev.Hit.Kind == HitInputPort {
		label := ""
		if port, ok := m.s.graph.outputPort(m.linkSource.NodeID, m.linkSource.PortID); ok {
			label = port.Label
		}
		// Self-loops and occupied ports are rejected inside AddEdge; the
		// gesture ends either way.
		_, _ = m.s.graph.AddEdge(m.linkSource.NodeID, ev.Hit.NodeID, m.linkSource.PortID, label)
	}
	m.reset()
}

// PointerCancel fully unwinds the active gesture: temp visuals dropped,
// a partially dragged node restored, no partial edge committed.
func (m *Machine) PointerCancel(ev PointerEvent) {
	if m.mode == ModeIdle || ev.PointerID != m.pointerID {
		return
	}
	m.abort()
}

// Escape aborts whatever gesture is active, regardless of pointer.
func (m *Machine) Escape() {
	if m.mode == ModeIdle {
		return
	}
	m.abort()
}

// Wheel rescales the view around the pointer's logical position when the
// zoom modifier is held. The point under the cursor keeps its screen
// position; scale stays clamped to its bounds.
func (m *Machine) Wheel(ev WheelEvent) {
	if !ev.Modifier {
		return
	}
	scale := m.s.view.Scale
	if ev.DeltaY < 0 {
		scale *= wheelZoomStep
	} else {
		scale /= wheelZoomStep
	}
	m.s.view = m.s.view.ZoomAt(ev.Screen, scale)
	m.s.pathsInvalid()
}

func (m *Machine) abort() {
	if m.mode == ModeDraggingNode {
		_ = m.s.graph.MoveNode(m.dragNodeID, m.nodeStartPos)
	}
	m.reset()
}

func (m *Machine) cancelLink() {
	if m.mode == ModeLinking {
		m.reset()
	}
}

func (m *Machine) reset() {
	m.mode = ModeIdle
	m.pointerID = 0
	m.dragNodeID = ""
	m.linkSource = domain.PortRef{}
	m.resizePanelID = ""
}
