package domain

import "errors"

// ErrFlowNotFound is returned when a flow id cannot be found in a store.
var ErrFlowNotFound = errors.New("flow not found")

// ErrProjectNotFound is returned when a project id cannot be found in a store.
var ErrProjectNotFound = errors.New("project not found")

// ErrNodeNotFound is returned when an operation references a node id that
// does not exist in the graph.
var ErrNodeNotFound = errors.New("node not found")

// ErrEdgeNotFound is returned when an operation references an edge id that
// does not exist in the graph.
var ErrEdgeNotFound = errors.New("edge not found")

// ErrPortOccupied is returned by AddEdge when the (source, source port)
// pair already carries an edge.
var ErrPortOccupied = errors.New("output port already connected")

// ErrSelfLoop is returned by AddEdge when source and target are the same
// node. Linking gestures swallow it silently; programmatic callers see it.
var ErrSelfLoop = errors.New("self-loop rejected")

// ErrSavePending is returned when a save is requested while a previous
// save acknowledgment is still outstanding.
var ErrSavePending = errors.New("save already in flight")
