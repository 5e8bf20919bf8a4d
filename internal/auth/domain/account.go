package domain

import "time"

// Role is the coarse permission level of an account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// DefaultLocale is assigned when an account does not pick one.
const DefaultLocale = "en"

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account is a member of the congregation app. An account always has at
// least one way to sign in: a credential digest, an external identity, or
// both.
type Account struct {
	ID                   string
	Email                string
	CredentialDigest     string // argon2id PHC string, empty for external-only accounts
	ExternalIdentityID   string // provider subject, empty when not linked
	DisplayName          string
	AvatarURL            string
	Role                 Role
	Locale               string
	Settings             map[string]any
	CredentialsChangedAt *time.Time
	LinkedAt             *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (a Account) HasPassword() bool {
	return a.CredentialDigest != ""
}

func (a Account) HasExternalIdentity() bool {
	return a.ExternalIdentityID != ""
}
