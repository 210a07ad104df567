package n8n

import (
	"encoding/json"
	"fmt"

	"github.com/flowbaker/deployer/pkg/domain"
)

// FromGraph converts a graph to its wire form. Node order is kept and each
// source's outputs keep fan-out order; unused lower outputs become empty lists.
func FromGraph(g *domain.WorkflowGraph) Workflow {
	graphNodes := g.Nodes()
	nodes := make([]Node, len(graphNodes))

	for i, n := range graphNodes {
		parameters := n.Parameters
		if parameters == nil {
			parameters = map[string]any{}
		}

		var credentials map[string]CredentialRef
		if len(n.Credentials) > 0 {
			credentials = make(map[string]CredentialRef, len(n.Credentials))
			for credentialType, ref := range n.Credentials {
				credentials[credentialType] = CredentialRef{ID: ref.ID, Name: ref.Name}
			}
		}

		nodes[i] = Node{
			Parameters:  parameters,
			Type:        n.Type,
			TypeVersion: n.TypeVersion,
			Position:    []float64{n.Position.X, n.Position.Y},
			ID:          n.ID,
			Name:        n.Name,
			WebhookID:   n.WebhookID,
			Credentials: credentials,
		}
	}

	var connections Connections
	sourceIndex := map[string]int{}

	for _, c := range g.Connections() {
		idx, ok := sourceIndex[c.Source]
		if !ok {
			idx = len(connections)
			sourceIndex[c.Source] = idx
			connections = append(connections, SourceConnections{Node: c.Source})
		}

		source := &connections[idx]
		for len(source.Main) <= c.SourcePort {
			source.Main = append(source.Main, []Target{})
		}

		source.Main[c.SourcePort] = append(source.Main[c.SourcePort], Target{
			Node:  c.Target,
			Type:  ConnectionTypeMain,
			Index: c.TargetPort,
		})
	}

	if connections == nil {
		connections = Connections{}
	}

	settings := g.Settings()

	return Workflow{
		ID:          g.ID(),
		Name:        g.Name(),
		Nodes:       nodes,
		Connections: connections,
		Settings: Settings{
			ExecutionOrder: settings.ExecutionOrder,
			Timezone:       settings.Timezone,
		},
	}
}

// ToGraph rebuilds a graph from its wire form. Node kinds come from the type
// tags; unknown tags map to NodeKindUnknown.
func ToGraph(w Workflow) (*domain.WorkflowGraph, error) {
	b := domain.NewGraphBuilder(w.ID, w.Name, domain.Settings{
		ExecutionOrder: w.Settings.ExecutionOrder,
		Timezone:       w.Settings.Timezone,
	})

	for _, n := range w.Nodes {
		var position domain.NodePosition
		if len(n.Position) == 2 {
			position = domain.NodePosition{X: n.Position[0], Y: n.Position[1]}
		}

		var credentials map[string]domain.CredentialRef
		if len(n.Credentials) > 0 {
			credentials = make(map[string]domain.CredentialRef, len(n.Credentials))
			for credentialType, ref := range n.Credentials {
				credentials[credentialType] = domain.CredentialRef{ID: ref.ID, Name: ref.Name}
			}
		}

		if err := b.AddNode(domain.Node{
			ID:          n.ID,
			Name:        n.Name,
			Kind:        KindForType(n.Type),
			Type:        n.Type,
			TypeVersion: n.TypeVersion,
			Parameters:  n.Parameters,
			Position:    position,
			Credentials: credentials,
			WebhookID:   n.WebhookID,
		}); err != nil {
			return nil, err
		}
	}

	for _, source := range w.Connections {
		for port, targets := range source.Main {
			for _, target := range targets {
				if err := b.AddConnection(domain.Connection{
					Source:     source.Node,
					SourcePort: port,
					Target:     target.Node,
					TargetPort: target.Index,
				}); err != nil {
					return nil, err
				}
			}
		}
	}

	return b.Build()
}

// MarshalWorkflows renders graphs as an import:workflow artifact. Output is
// deterministic for identical graphs.
func MarshalWorkflows(graphs []*domain.WorkflowGraph) ([]byte, error) {
	workflows := make([]Workflow, len(graphs))
	for i, g := range graphs {
		workflows[i] = FromGraph(g)
	}

	data, err := json.MarshalIndent(workflows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflows: %w", err)
	}

	return append(data, '\n'), nil
}

func MarshalCredentials(credentials []domain.Credential) ([]byte, error) {
	wire := make([]Credential, len(credentials))
	for i, c := range credentials {
		data := c.Data
		if data == nil {
			data = map[string]any{}
		}

		wire[i] = Credential{
			ID:   c.ID,
			Name: c.Name,
			Type: c.Type,
			Data: data,
		}
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credentials: %w", err)
	}

	return append(data, '\n'), nil
}

// ParseWorkflows reads an import:workflow artifact back into graphs.
func ParseWorkflows(data []byte) ([]*domain.WorkflowGraph, error) {
	var workflows []Workflow
	if err := json.Unmarshal(data, &workflows); err != nil {
		return nil, fmt.Errorf("failed to parse workflows: %w", err)
	}

	graphs := make([]*domain.WorkflowGraph, 0, len(workflows))
	for _, w := range workflows {
		g, err := ToGraph(w)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}

	return graphs, nil
}
