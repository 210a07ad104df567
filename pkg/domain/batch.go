package domain

import "fmt"

// DeploymentBatch is everything one run pushes to the remote engine. It is
// built fresh per run and never persisted locally.
type DeploymentBatch struct {
	Workflows   []*WorkflowGraph
	Credentials []Credential
	Service     string
}

func (b DeploymentBatch) WorkflowNames() []string {
	names := make([]string, len(b.Workflows))
	for i, wf := range b.Workflows {
		names[i] = wf.Name()
	}

	return names
}

func (b DeploymentBatch) WorkflowByName(name string) (*WorkflowGraph, bool) {
	for _, wf := range b.Workflows {
		if wf.Name() == name {
			return wf, true
		}
	}

	return nil, false
}

func (b DeploymentBatch) CredentialByID(id string) (Credential, bool) {
	for _, c := range b.Credentials {
		if c.ID == id {
			return c, true
		}
	}

	return Credential{}, false
}

// Validate checks batch-wide invariants: unique workflow names and ids, and
// every node credential reference resolving to a batch credential.
func (b DeploymentBatch) Validate() error {
	names := map[string]struct{}{}
	ids := map[string]struct{}{}

	for _, wf := range b.Workflows {
		if _, ok := names[wf.Name()]; ok {
			return &ValidationError{Graph: wf.Name(), Reason: "duplicate workflow name in batch"}
		}
		names[wf.Name()] = struct{}{}

		if wf.ID() != "" {
			if _, ok := ids[wf.ID()]; ok {
				return &ValidationError{Graph: wf.Name(), Reason: fmt.Sprintf("duplicate workflow id %q in batch", wf.ID())}
			}
			ids[wf.ID()] = struct{}{}
		}

		for _, id := range wf.CredentialIDs() {
			if _, ok := b.CredentialByID(id); !ok {
				return &ValidationError{Graph: wf.Name(), Reason: fmt.Sprintf("references unknown credential %q", id)}
			}
		}
	}

	credentialIDs := map[string]struct{}{}
	for _, c := range b.Credentials {
		if c.ID == "" || c.Type == "" {
			return &ValidationError{Reason: fmt.Sprintf("credential %q needs an id and a type", c.Name)}
		}

		if _, ok := credentialIDs[c.ID]; ok {
			return &ValidationError{Reason: fmt.Sprintf("duplicate credential id %q", c.ID)}
		}
		credentialIDs[c.ID] = struct{}{}
	}

	return nil
}

// DependentWorkflows lists, in batch order, the workflows with a node that
// uses the given credential.
func (b DeploymentBatch) DependentWorkflows(credentialID string) []string {
	var names []string
	for _, wf := range b.Workflows {
		for _, id := range wf.CredentialIDs() {
			if id == credentialID {
				names = append(names, wf.Name())
				break
			}
		}
	}

	return names
}

func (b DeploymentBatch) PendingSecrets() []SecretNotProvisioned {
	var pending []SecretNotProvisioned
	for _, c := range b.Credentials {
		notice := c.Pending()
		if notice == nil {
			continue
		}

		notice.Workflows = b.DependentWorkflows(c.ID)
		pending = append(pending, *notice)
	}

	return pending
}
