package model

// Provider identifies which task-tracking backend a project's credentials belong to.
type Provider string

const (
	ProviderNotion Provider = "notion"
	ProviderGitHub Provider = "github"
)

// Normalize maps the empty provider to ProviderNotion. Records written before
// providers existed carry no provider field.
func (p Provider) Normalize() Provider {
	if p == "" {
		return ProviderNotion
	}
	return p
}

// Valid reports whether p names a known provider. The empty provider is valid.
func (p Provider) Valid() bool {
	switch p.Normalize() {
	case ProviderNotion, ProviderGitHub:
		return true
	default:
		return false
	}
}
