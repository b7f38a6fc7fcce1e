package domain

// NoticeLevel classifies a transient editor notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a non-blocking message surfaced to the author: a pruned edge,
// a rejected duplicate connection, a failed collaborator call. Nothing in
// the editor is fatal; inconsistencies degrade to a notice.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Selection identifies the single selected element. Exactly one of NodeID
// or EdgeID is set; selecting one kind clears the other.
type Selection struct {
	NodeID string
	EdgeID string
}

// EditorHooks defines callbacks for observing editor activity. All hooks
// are optional and invoked synchronously on the mutating call.
type EditorHooks struct {
	OnNotice          func(Notice)
	OnDirtyChange     func(bool)
	OnSelectionChange func(Selection)
	// OnPathsInvalid fires when anchors moved without the graph changing
	// (view transform, panel resize) and connection paths need recompute.
	OnPathsInvalid func()
}
