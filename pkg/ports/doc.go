// Package ports defines the collaborator interfaces of the editing engine.
// The engine itself performs no network or file I/O; persistence,
// validation and export are driven through these ports so the storage
// layer (filesystem, Redis, memory) and the presentation layer stay
// decoupled from the core.
package ports
