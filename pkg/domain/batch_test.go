package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphUsing(t *testing.T, id, name string, credentialIDs ...string) *WorkflowGraph {
	t.Helper()

	b := NewGraphBuilder(id, name, Settings{})
	trigger := testNode(id+"-t", "Trigger", NodeKindTrigger)
	require.NoError(t, b.AddNode(trigger))

	call := testNode(id+"-c", "Call", NodeKindHTTP)
	call.Credentials = map[string]CredentialRef{}
	for _, credentialID := range credentialIDs {
		call.Credentials[CredentialTypeHTTPHeaderAuth+"-"+credentialID] = CredentialRef{ID: credentialID}
	}
	require.NoError(t, b.AddNode(call))
	require.NoError(t, b.AddConnection(Connection{Source: "Trigger", Target: "Call"}))

	g, err := b.Build()
	require.NoError(t, err)

	return g
}

func TestDeploymentBatch_Validate(t *testing.T) {
	llm := NewHeaderAuthPlaceholder("llm", "LLM Key", "x-api-key")

	tests := []struct {
		name    string
		batch   DeploymentBatch
		wantErr string
	}{
		{
			name: "valid",
			batch: DeploymentBatch{
				Workflows:   []*WorkflowGraph{graphUsing(t, "a", "A", "llm"), graphUsing(t, "b", "B")},
				Credentials: []Credential{llm},
			},
		},
		{
			name: "duplicate name",
			batch: DeploymentBatch{
				Workflows: []*WorkflowGraph{graphUsing(t, "a", "A"), graphUsing(t, "b", "A")},
			},
			wantErr: "duplicate workflow name",
		},
		{
			name: "duplicate id",
			batch: DeploymentBatch{
				Workflows: []*WorkflowGraph{graphUsing(t, "a", "A"), graphUsing(t, "a", "B")},
			},
			wantErr: "duplicate workflow id",
		},
		{
			name: "dangling credential reference",
			batch: DeploymentBatch{
				Workflows: []*WorkflowGraph{graphUsing(t, "a", "A", "missing")},
			},
			wantErr: `unknown credential "missing"`,
		},
		{
			name: "duplicate credential",
			batch: DeploymentBatch{
				Credentials: []Credential{llm, llm},
			},
			wantErr: "duplicate credential id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.batch.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestDeploymentBatch_PendingSecrets(t *testing.T) {
	basic := Credential{ID: "real", Name: "Real", Type: "basicAuth", Data: map[string]any{"user": "u"}}
	batch := DeploymentBatch{
		Workflows: []*WorkflowGraph{
			graphUsing(t, "a", "A", "llm"),
			graphUsing(t, "b", "B", "llm", "real"),
			graphUsing(t, "c", "C", "real"),
		},
		Credentials: []Credential{
			NewHeaderAuthPlaceholder("llm", "LLM Key", "x-api-key"),
			basic,
		},
	}

	pending := batch.PendingSecrets()
	require.Len(t, pending, 1)
	assert.Equal(t, "llm", pending[0].CredentialID)
	assert.Equal(t, []string{"A", "B"}, pending[0].Workflows)
	assert.Contains(t, pending[0].Error(), "needs real secret material before these workflows can run: A, B")
	assert.Nil(t, basic.Pending())
}
