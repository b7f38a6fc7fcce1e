// Package flowyaml converts flows to and from their YAML interchange
// form: a `flow` mapping of node ids to node definitions, with outgoing
// connections folded into ordered `next` maps, plus an optional
// `metadata` section for the flow identity.
//
// The YAML form is the hand-editable representation. Positions are not
// round-tripped; imported nodes are laid out on the default grid and the
// editor reconciles ports after load.
package flowyaml
