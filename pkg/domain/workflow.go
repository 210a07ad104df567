package domain

import (
	"errors"
	"fmt"
	"sort"
)

const ExecutionOrderV1 = "v1"

var (
	ErrGraphBuilt = errors.New("graph already built")
)

type Settings struct {
	ExecutionOrder string
	Timezone       string
}

// WorkflowGraph is an immutable workflow definition. Use GraphBuilder to
// construct one; accessors hand out copies.
type WorkflowGraph struct {
	id          string
	name        string
	nodes       []Node
	connections []Connection
	settings    Settings
	byName      map[string]int
}

func (g *WorkflowGraph) ID() string {
	return g.id
}

func (g *WorkflowGraph) Name() string {
	return g.name
}

func (g *WorkflowGraph) Settings() Settings {
	return g.settings
}

func (g *WorkflowGraph) Nodes() []Node {
	nodes := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		nodes[i] = n.clone()
	}

	return nodes
}

func (g *WorkflowGraph) Connections() []Connection {
	connections := make([]Connection, len(g.connections))
	copy(connections, g.connections)

	return connections
}

func (g *WorkflowGraph) NodeByName(name string) (Node, bool) {
	idx, ok := g.byName[name]
	if !ok {
		return Node{}, false
	}

	return g.nodes[idx].clone(), true
}

func (g *WorkflowGraph) Triggers() []Node {
	var triggers []Node
	for _, n := range g.nodes {
		if n.IsTrigger() {
			triggers = append(triggers, n.clone())
		}
	}

	return triggers
}

// Outgoing returns the connections leaving the named node in insertion order.
func (g *WorkflowGraph) Outgoing(name string) []Connection {
	var out []Connection
	for _, c := range g.connections {
		if c.Source == name {
			out = append(out, c)
		}
	}

	return out
}

func (g *WorkflowGraph) Incoming(name string) []Connection {
	var in []Connection
	for _, c := range g.connections {
		if c.Target == name {
			in = append(in, c)
		}
	}

	return in
}

// CredentialIDs returns the sorted, de-duplicated ids of every credential a
// node in the graph references.
func (g *WorkflowGraph) CredentialIDs() []string {
	seen := map[string]struct{}{}
	for _, n := range g.nodes {
		for _, ref := range n.Credentials {
			seen[ref.ID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

type GraphBuilder struct {
	graph *WorkflowGraph
	ids   map[string]struct{}
	built bool
}

func NewGraphBuilder(id, name string, settings Settings) *GraphBuilder {
	return &GraphBuilder{
		graph: &WorkflowGraph{
			id:       id,
			name:     name,
			settings: settings,
			byName:   map[string]int{},
		},
		ids: map[string]struct{}{},
	}
}

func (b *GraphBuilder) AddNode(node Node) error {
	if b.built {
		return ErrGraphBuilt
	}

	if node.ID == "" {
		return &ValidationError{Graph: b.graph.name, Node: node.Name, Reason: "node id is required"}
	}

	if node.Name == "" {
		return &ValidationError{Graph: b.graph.name, Node: node.ID, Reason: "node name is required"}
	}

	if _, exists := b.ids[node.ID]; exists {
		return &ValidationError{Graph: b.graph.name, Node: node.Name, Reason: fmt.Sprintf("duplicate node id %q", node.ID)}
	}

	if _, exists := b.graph.byName[node.Name]; exists {
		return &ValidationError{Graph: b.graph.name, Node: node.Name, Reason: "duplicate node name"}
	}

	if node.Kind == "" {
		node.Kind = NodeKindUnknown
	}

	b.ids[node.ID] = struct{}{}
	b.graph.byName[node.Name] = len(b.graph.nodes)
	b.graph.nodes = append(b.graph.nodes, node.clone())

	return nil
}

// AddConnection rejects edges whose endpoints have not been added yet.
func (b *GraphBuilder) AddConnection(c Connection) error {
	if b.built {
		return ErrGraphBuilt
	}

	if _, ok := b.graph.byName[c.Source]; !ok {
		return &ValidationError{Graph: b.graph.name, Node: c.Source, Reason: "connection source does not exist"}
	}

	if _, ok := b.graph.byName[c.Target]; !ok {
		return &ValidationError{Graph: b.graph.name, Node: c.Target, Reason: "connection target does not exist"}
	}

	if c.SourcePort < 0 || c.TargetPort < 0 {
		return &ValidationError{Graph: b.graph.name, Node: c.Source, Reason: "connection ports must not be negative"}
	}

	b.graph.connections = append(b.graph.connections, c)

	return nil
}

func (b *GraphBuilder) Build() (*WorkflowGraph, error) {
	if b.built {
		return nil, ErrGraphBuilt
	}

	if b.graph.name == "" {
		return nil, &ValidationError{Reason: "workflow name is required"}
	}

	if len(b.graph.nodes) == 0 {
		return nil, &ValidationError{Graph: b.graph.name, Reason: "workflow has no nodes"}
	}

	b.built = true

	return b.graph, nil
}
