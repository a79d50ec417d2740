package model

import "time"

// Project is a named credential record: an access token plus the identifier
// of the external resource it grants access to. The JSON field names match
// the persisted "notion-projects" blob layout.
type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Token      string    `json:"notionToken"`
	DatabaseID string    `json:"databaseId"`
	Provider   Provider  `json:"provider,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Credentials returns the override carried by this project.
func (p Project) Credentials() Credentials {
	return Credentials{
		Token:      p.Token,
		DatabaseID: p.DatabaseID,
		Provider:   p.Provider.Normalize(),
	}
}

// MaskedToken returns a display-safe form of the project's token.
func (p Project) MaskedToken() string {
	return MaskSecret(p.Token)
}
