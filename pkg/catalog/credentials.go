package catalog

import "github.com/flowbaker/deployer/pkg/domain"

const (
	AnthropicCredentialID = "anthropic-header"
	SupabaseCredentialID  = "supabase-header"
)

type credentials struct {
	llm      domain.Credential
	database domain.Credential
}

func newCredentials() credentials {
	return credentials{
		llm:      domain.NewHeaderAuthPlaceholder(AnthropicCredentialID, "Anthropic API Key", "x-api-key"),
		database: domain.NewHeaderAuthPlaceholder(SupabaseCredentialID, "Supabase Service Key", "apikey"),
	}
}

func (c credentials) all() []domain.Credential {
	return []domain.Credential{c.llm, c.database}
}
