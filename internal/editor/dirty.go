package editor

// dirtyTracker owns the unsaved-changes flag and its subscriptions. The
// flag is set by any mutating model or authoring-view operation and
// cleared only by a successful save acknowledgment; collaborator failures
// leave it untouched so the author can retry.
type dirtyTracker struct {
	dirty  bool
	nextID int
	subs   map[int]func(bool)
}

func newDirtyTracker() *dirtyTracker {
	return &dirtyTracker{subs: make(map[int]func(bool))}
}

// Dirty reports whether unsaved changes exist.
func (d *dirtyTracker) Dirty() bool { return d.dirty }

// Set transitions the flag and fans out to subscribers on change only.
func (d *dirtyTracker) Set(dirty bool) {
	if d.dirty == dirty {
		return
	}
	d.dirty = dirty
	for _, fn := range d.subs {
		fn(dirty)
	}
}

// Subscribe registers a listener for flag transitions (navigation guards
// and similar unrelated UI). The returned cancel func removes it.
func (d *dirtyTracker) Subscribe(fn func(bool)) (cancel func()) {
	d.nextID++
	id := d.nextID
	d.subs[id] = fn
	return func() { delete(d.subs, id) }
}
