package model

// Credentials is the token and scope pair attached to a task source call.
// A nil *Credentials means "no override": the callee falls back to its
// configured defaults.
type Credentials struct {
	Token      string
	DatabaseID string
	Provider   Provider
}

// MaskSecret shortens a secret for logs and API responses: the first 8 and
// last 4 characters for secrets longer than 12, "***" otherwise.
func MaskSecret(secret string) string {
	if len(secret) > 12 {
		return secret[:8] + "..." + secret[len(secret)-4:]
	}
	if secret == "" {
		return ""
	}
	return "***"
}
