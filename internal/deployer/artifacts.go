package deployer

import (
	"github.com/flowbaker/deployer/pkg/domain"
	"github.com/flowbaker/deployer/pkg/n8n"
)

// Artifacts are the import files produced from one catalog batch.
type Artifacts struct {
	Workflows   []byte
	Credentials []byte
	Warnings    []domain.ValidationWarning
}

// WorkflowArtifact validates every workflow in the batch and returns the
// schema-checked workflow import file with the validation warnings.
func WorkflowArtifact(batch domain.DeploymentBatch) ([]byte, []domain.ValidationWarning, error) {
	var warnings []domain.ValidationWarning
	for _, wf := range batch.Workflows {
		warnings = append(warnings, wf.Validate().Warnings...)
	}

	data, err := n8n.MarshalWorkflows(batch.Workflows)
	if err != nil {
		return nil, warnings, err
	}

	if err := n8n.ValidateArtifact(n8n.ArtifactWorkflows, data); err != nil {
		return nil, warnings, err
	}

	return data, warnings, nil
}

// CredentialArtifact returns the schema-checked credential import file.
func CredentialArtifact(batch domain.DeploymentBatch) ([]byte, error) {
	data, err := n8n.MarshalCredentials(batch.Credentials)
	if err != nil {
		return nil, err
	}

	if err := n8n.ValidateArtifact(n8n.ArtifactCredentials, data); err != nil {
		return nil, err
	}

	return data, nil
}

// BuildArtifacts produces both import files the way a deployment run does.
func BuildArtifacts(batch domain.DeploymentBatch) (*Artifacts, error) {
	workflows, warnings, err := WorkflowArtifact(batch)
	if err != nil {
		return nil, err
	}

	credentials, err := CredentialArtifact(batch)
	if err != nil {
		return nil, err
	}

	return &Artifacts{
		Workflows:   workflows,
		Credentials: credentials,
		Warnings:    warnings,
	}, nil
}
