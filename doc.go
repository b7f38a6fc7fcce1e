/*
Package espalier is an embeddable editing engine for interactive decision
trees: question nodes branching on expected answers, message nodes carrying
guidance, and labeled connections between them.

It separates the graph model (nodes, edges, derived output ports) from the
interaction layer (pointer gestures, pan/zoom, selection) and from
persistence (stores, validators, exporters). The hosting UI owns rendering
and hit testing; the engine owns every rule about what a gesture or edit
means. This hexagonal split lets the same engine back a browser canvas, a
native shell, or a headless import/export pipeline.

# Concept

The engine derives structure instead of storing it. A question node's
output ports are computed from its declared answers; a message node's
ports are computed from the connections the author actually made. Editing
an answer list reconciles the existing edges against it: matching edges
are rebound and relabeled, orphaned edges are pruned with a notice. Ports
are never persisted.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/espalier"
		"github.com/aretw0/espalier/pkg/adapters/file"
		"github.com/aretw0/espalier/pkg/domain"
	)

	func main() {
		store, err := file.NewStore("./data")
		if err != nil {
			log.Fatal(err)
		}

		ed := espalier.New("support-trees", espalier.WithStore(store))
		if err := ed.NewFlow("triage", "Triage", ""); err != nil {
			log.Fatal(err)
		}

		g := ed.Graph()
		q, _ := g.AddNode(domain.NodeTypeQuestion)
		g.SetQuestion(q.ID, "Is the device powered on?")
		g.SetAnswers(q.ID, []domain.Answer{{Value: "Yes"}, {Value: "No"}})

		m, _ := g.AddNode(domain.NodeTypeMessage)
		g.SetMessage(m.ID, "Plug it in and try again.")
		g.AddEdge(q.ID, m.ID, "no", "No")

		if err := ed.Save(context.Background()); err != nil {
			log.Fatal(err)
		}
	}
*/
package espalier
