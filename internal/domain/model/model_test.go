package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		secret string
		want   string
	}{
		{"", ""},
		{"short", "***"},
		{"exactly12chr", "***"},
		{"secret_0123456789abcdef", "secret_0...cdef"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskSecret(tt.secret), tt.secret)
	}
}

func TestProvider(t *testing.T) {
	assert.Equal(t, ProviderNotion, Provider("").Normalize())
	assert.Equal(t, ProviderGitHub, ProviderGitHub.Normalize())
	assert.True(t, Provider("").Valid())
	assert.True(t, ProviderGitHub.Valid())
	assert.False(t, Provider("jira").Valid())
}

func TestProjectCredentials(t *testing.T) {
	p := Project{ID: "p1", Token: "secret_0123456789abcdef", DatabaseID: "db"}

	assert.Equal(t, Credentials{Token: "secret_0123456789abcdef", DatabaseID: "db", Provider: ProviderNotion}, p.Credentials())
	assert.Equal(t, "secret_0...cdef", p.MaskedToken())
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, DefaultTaskLimit, TaskFilter{}.EffectiveLimit())
	assert.Equal(t, 5, TaskFilter{Limit: 5}.EffectiveLimit())
	assert.Equal(t, "Status", StatusUpdate{}.EffectivePropertyName())
	assert.Equal(t, "Stage", StatusUpdate{PropertyName: "Stage"}.EffectivePropertyName())
}
