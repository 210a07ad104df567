package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNode(id, name string, kind NodeKind) Node {
	return Node{
		ID:         id,
		Name:       name,
		Kind:       kind,
		Type:       "test." + string(kind),
		Parameters: map[string]any{"nested": map[string]any{"value": 1}},
	}
}

func TestGraphBuilder_AddConnection(t *testing.T) {
	b := NewGraphBuilder("wf-1", "Test", Settings{ExecutionOrder: ExecutionOrderV1})
	require.NoError(t, b.AddNode(testNode("a", "A", NodeKindTrigger)))
	require.NoError(t, b.AddNode(testNode("b", "B", NodeKindHTTP)))

	tests := []struct {
		name       string
		connection Connection
		wantErr    string
	}{
		{
			name:       "known endpoints",
			connection: Connection{Source: "A", Target: "B"},
		},
		{
			name:       "unknown source",
			connection: Connection{Source: "X", Target: "B"},
			wantErr:    "connection source does not exist",
		},
		{
			name:       "unknown target",
			connection: Connection{Source: "A", Target: "Y"},
			wantErr:    "connection target does not exist",
		},
		{
			name:       "negative port",
			connection: Connection{Source: "A", SourcePort: -1, Target: "B"},
			wantErr:    "ports must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.AddConnection(tt.connection)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGraphBuilder_AddNodeRejectsDuplicates(t *testing.T) {
	b := NewGraphBuilder("wf-1", "Test", Settings{})
	require.NoError(t, b.AddNode(testNode("a", "A", NodeKindTrigger)))

	err := b.AddNode(testNode("a", "Other", NodeKindHTTP))
	assert.ErrorContains(t, err, "duplicate node id")

	err = b.AddNode(testNode("b", "A", NodeKindHTTP))
	assert.ErrorContains(t, err, "duplicate node name")

	err = b.AddNode(Node{Name: "No ID"})
	assert.ErrorContains(t, err, "node id is required")
}

func TestGraphBuilder_Build(t *testing.T) {
	_, err := NewGraphBuilder("wf-1", "Empty", Settings{}).Build()
	assert.ErrorContains(t, err, "workflow has no nodes")

	b := NewGraphBuilder("wf-1", "Once", Settings{})
	require.NoError(t, b.AddNode(testNode("a", "A", NodeKindTrigger)))

	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "Once", g.Name())
	assert.Equal(t, "wf-1", g.ID())

	assert.ErrorIs(t, b.AddNode(testNode("b", "B", NodeKindHTTP)), ErrGraphBuilt)
	assert.ErrorIs(t, b.AddConnection(Connection{Source: "A", Target: "A"}), ErrGraphBuilt)

	_, err = b.Build()
	assert.ErrorIs(t, err, ErrGraphBuilt)
}

func TestWorkflowGraph_AccessorsReturnCopies(t *testing.T) {
	b := NewGraphBuilder("wf-1", "Copies", Settings{})
	require.NoError(t, b.AddNode(testNode("a", "A", NodeKindTrigger)))
	require.NoError(t, b.AddNode(testNode("b", "B", NodeKindHTTP)))
	require.NoError(t, b.AddConnection(Connection{Source: "A", Target: "B"}))

	g, err := b.Build()
	require.NoError(t, err)

	nodes := g.Nodes()
	nodes[0].Name = "changed"
	nodes[0].Parameters["nested"].(map[string]any)["value"] = 2

	connections := g.Connections()
	connections[0].Target = "changed"

	node, ok := g.NodeByName("A")
	require.True(t, ok)
	assert.Equal(t, 1, node.Parameters["nested"].(map[string]any)["value"])
	assert.Equal(t, "B", g.Connections()[0].Target)
}

func TestWorkflowGraph_Validate(t *testing.T) {
	b := NewGraphBuilder("wf-1", "Dead weight", Settings{})
	require.NoError(t, b.AddNode(testNode("t", "Trigger", NodeKindTrigger)))
	require.NoError(t, b.AddNode(testNode("a", "Live", NodeKindHTTP)))
	require.NoError(t, b.AddNode(testNode("o", "Orphan", NodeKindNoOp)))
	require.NoError(t, b.AddNode(testNode("x", "Island Start", NodeKindHTTP)))
	require.NoError(t, b.AddNode(testNode("y", "Island End", NodeKindRespond)))
	require.NoError(t, b.AddConnection(Connection{Source: "Trigger", Target: "Live"}))
	require.NoError(t, b.AddConnection(Connection{Source: "Island Start", Target: "Island End"}))

	g, err := b.Build()
	require.NoError(t, err)

	report := g.Validate()
	assert.False(t, report.OK())

	kinds := map[string]WarningKind{}
	for _, w := range report.Warnings {
		kinds[w.Node] = w.Kind
	}

	assert.Equal(t, map[string]WarningKind{
		"Orphan":       WarningOrphan,
		"Island Start": WarningUnreachable,
		"Island End":   WarningUnreachable,
	}, kinds)
}

func TestWorkflowGraph_ValidateLoopIsReachable(t *testing.T) {
	b := NewGraphBuilder("wf-1", "Loop", Settings{})
	require.NoError(t, b.AddNode(testNode("t", "Trigger", NodeKindTrigger)))
	require.NoError(t, b.AddNode(testNode("b", "Batch", NodeKindBatch)))
	require.NoError(t, b.AddNode(testNode("s", "Step", NodeKindHTTP)))
	require.NoError(t, b.AddConnection(Connection{Source: "Trigger", Target: "Batch"}))
	require.NoError(t, b.AddConnection(Connection{Source: "Batch", SourcePort: 1, Target: "Step"}))
	require.NoError(t, b.AddConnection(Connection{Source: "Step", Target: "Batch"}))

	g, err := b.Build()
	require.NoError(t, err)

	assert.True(t, g.Validate().OK())
	assert.Len(t, g.Outgoing("Batch"), 1)
	assert.Len(t, g.Incoming("Batch"), 2)
}

func TestWorkflowGraph_ValidateWithoutTrigger(t *testing.T) {
	b := NewGraphBuilder("wf-1", "Manual", Settings{})
	require.NoError(t, b.AddNode(testNode("a", "A", NodeKindHTTP)))
	require.NoError(t, b.AddNode(testNode("b", "B", NodeKindHTTP)))
	require.NoError(t, b.AddConnection(Connection{Source: "A", Target: "B"}))

	g, err := b.Build()
	require.NoError(t, err)

	report := g.Validate()
	require.Len(t, report.Warnings, 3)
	assert.Equal(t, WarningNoTrigger, report.Warnings[2].Kind)
}
