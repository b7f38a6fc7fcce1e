package espalier_test

import (
	"fmt"
	"os"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/domain"
)

// Example builds a small triage flow through the editor facade and shows
// how the derived structure reacts: the question's answers become output
// ports, and connecting an edge canonicalizes its label.
func Example() {
	ed := espalier.New("support")
	if err := ed.NewFlow("device-triage", "Device triage", ""); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	g := ed.Graph()
	q, _ := g.AddNode(domain.NodeTypeQuestion)
	m, _ := g.AddNode(domain.NodeTypeMessage)

	g.SetAnswers(q.ID, []domain.Answer{{Value: "Yes"}, {Value: "No"}})
	g.AddEdge(q.ID, m.ID, "no", "")

	snapshot := ed.Snapshot()
	fmt.Println(snapshot.Nodes[0].ID, snapshot.Nodes[1].ID)
	fmt.Println(snapshot.Edges[0].SourcePort, snapshot.Edges[0].Label)
	fmt.Println("dirty:", ed.Dirty())
	// Output:
	// question_1 message_1
	// no No
	// dirty: true
}
