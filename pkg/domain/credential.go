package domain

import (
	"fmt"
	"strings"
)

const (
	CredentialTypeHTTPHeaderAuth = "httpHeaderAuth"

	// PlaceholderSecret is imported in place of real secret material. The
	// deployer never holds real secrets.
	PlaceholderSecret = "PLACEHOLDER_NEEDS_REAL_KEY"
)

type Credential struct {
	ID          string
	Name        string
	Type        string
	Data        map[string]any
	Placeholder bool
}

func NewHeaderAuthPlaceholder(id, name, header string) Credential {
	return Credential{
		ID:   id,
		Name: name,
		Type: CredentialTypeHTTPHeaderAuth,
		Data: map[string]any{
			"name":  header,
			"value": PlaceholderSecret,
		},
		Placeholder: true,
	}
}

func (c Credential) Ref() CredentialRef {
	return CredentialRef{ID: c.ID, Name: c.Name}
}

// Pending returns a notice for placeholder credentials and nil otherwise.
func (c Credential) Pending() *SecretNotProvisioned {
	if !c.Placeholder {
		return nil
	}

	return &SecretNotProvisioned{
		CredentialID:   c.ID,
		CredentialName: c.Name,
		CredentialType: c.Type,
	}
}

// SecretNotProvisioned marks a credential that was imported with placeholder
// material. It is the expected end state of every run and is reported, not
// treated as a failure.
type SecretNotProvisioned struct {
	CredentialID   string
	CredentialName string
	CredentialType string
	Workflows      []string
	Imported       bool
}

func (s *SecretNotProvisioned) Error() string {
	msg := fmt.Sprintf("credential %q (%s) needs real secret material", s.CredentialName, s.CredentialType)
	if len(s.Workflows) > 0 {
		msg += fmt.Sprintf(" before these workflows can run: %s", strings.Join(s.Workflows, ", "))
	}

	return msg
}
