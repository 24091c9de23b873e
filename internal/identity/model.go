package identity

import "time"

// Platform roles.
const (
	RoleUser      = "USER"
	RoleAgent     = "AGENT"
	RoleAffiliate = "AFFILIATE"
	RoleAdmin     = "ADMIN"
)

// User represents a registered platform account. Players carry the AgentID of
// the agent that onboarded them; players acquired through an affiliate link
// also carry AffiliateLinkID.
type User struct {
	ID              string
	Email           string
	FullName        string
	PasswordHash    []byte
	Role            string
	AgentID         string
	AffiliateLinkID string
	Active          bool
	TokenVersion    int
	CreatedAt       time.Time
}

// Credentials is the login request structure.
type Credentials struct {
	Email    string
	Password string
}

// ValidRole reports whether role is one of the platform roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAgent, RoleAffiliate, RoleAdmin:
		return true
	}
	return false
}
