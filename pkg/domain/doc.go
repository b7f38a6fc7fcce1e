// Package domain contains the core types of the Espalier flow model:
// nodes, edges, flows, the editor notice/hook surface, and the validation
// report shape shared by all collaborators.
//
// The types here are deliberately free of behavior beyond normalization
// helpers; the editing rules live in internal/editor and the structural
// validation rules in pkg/validate.
package domain
