package identity

import "time"

// ProviderEmail is the only sign-in method accounts are linked to.
const ProviderEmail = "email"

// Identity links an account to a sign-in method.
type Identity struct {
	ID       string
	Provider string
}

// Account represents a registered vendor login.
type Account struct {
	ID                string
	Email             string
	DisplayName       string
	PasswordHash      []byte
	Identities        []Identity
	ConfirmationToken string
	ConfirmedAt       *time.Time
	TokenVersion      int
	LastSignInAt      *time.Time
	CreatedAt         time.Time
}

// Confirmed reports whether the email address has been verified.
func (a Account) Confirmed() bool {
	return a.ConfirmedAt != nil
}

// RegisterInput carries account-creation data.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// RegisterResult is the outcome of Register. Duplicate marks an obfuscated
// account returned for an email that is already taken.
type RegisterResult struct {
	Account   Account
	Duplicate bool
}
