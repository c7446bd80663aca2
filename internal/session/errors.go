package session

import (
	"errors"
	"strings"
)

var (
	// ErrAccountExists is returned when sign-up hits an existing account that the
	// provider reported as a success.
	ErrAccountExists = errors.New("user already registered")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("session manager already started")
	// ErrStopped is returned by Start on a manager that was already stopped.
	ErrStopped = errors.New("session manager stopped")
)

// Kind classifies provider failures for user-facing messaging.
type Kind int

const (
	KindUnknown Kind = iota
	KindAlreadyExists
	KindWeakPassword
	KindInvalidEmail
	KindInvalidCredentials
	KindEmailNotConfirmed
)

func (k Kind) String() string {
	switch k {
	case KindAlreadyExists:
		return "already_exists"
	case KindWeakPassword:
		return "weak_password"
	case KindInvalidEmail:
		return "invalid_email"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindEmailNotConfirmed:
		return "email_not_confirmed"
	default:
		return "unknown"
	}
}

// AuthError is what the public operations return on failure. Error returns the
// provider's message verbatim; Title and Description are the user-facing text.
type AuthError struct {
	Kind    Kind
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *AuthError) Unwrap() error { return e.Err }

// Title is the toast heading for the failed operation.
func (e *AuthError) Title() string {
	switch e.Op {
	case opSignUp:
		return "Sign up failed"
	case opSignIn:
		return "Sign in failed"
	case opSignOut:
		return "Sign out failed"
	default:
		return "Something went wrong"
	}
}

// Description is the toast body for the failure kind.
func (e *AuthError) Description() string {
	switch e.Kind {
	case KindAlreadyExists:
		return "An account with this email already exists. Try signing in instead."
	case KindWeakPassword:
		return "Password is too weak. Use at least 6 characters."
	case KindInvalidEmail:
		return "Please enter a valid email address."
	case KindInvalidCredentials:
		return "Invalid email or password."
	case KindEmailNotConfirmed:
		return "Please confirm your email address before signing in."
	}
	if e.Op == opSignOut {
		return "We could not sign you out. Please try again."
	}
	return "An unexpected error occurred. Please try again."
}

const (
	opSignUp  = "sign_up"
	opSignIn  = "sign_in"
	opSignOut = "sign_out"
)

// coded is implemented by provider errors exposing a stable code.
type coded interface {
	ErrorCode() string
}

var codeKinds = map[string]Kind{
	"user_already_exists":   KindAlreadyExists,
	"email_exists":          KindAlreadyExists,
	"weak_password":         KindWeakPassword,
	"email_address_invalid": KindInvalidEmail,
	"invalid_credentials":   KindInvalidCredentials,
	"email_not_confirmed":   KindEmailNotConfirmed,
}

// Message fragments for providers that do not expose codes. Order matters:
// the first match wins.
var phraseKinds = []struct {
	phrase string
	kind   Kind
}{
	{"already registered", KindAlreadyExists},
	{"already exists", KindAlreadyExists},
	{"password should be", KindWeakPassword},
	{"password must be", KindWeakPassword},
	{"invalid email", KindInvalidEmail},
	{"unable to validate email", KindInvalidEmail},
	{"invalid login credentials", KindInvalidCredentials},
	{"email not confirmed", KindEmailNotConfirmed},
}

// classify maps a provider error to a Kind, preferring structured codes.
func classify(err error) (Kind, string) {
	if err == nil {
		return KindUnknown, ""
	}
	var c coded
	if errors.As(err, &c) {
		if kind, ok := codeKinds[c.ErrorCode()]; ok {
			return kind, c.ErrorCode()
		}
	}
	code := ""
	if c != nil {
		code = c.ErrorCode()
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phraseKinds {
		if strings.Contains(msg, p.phrase) {
			return p.kind, code
		}
	}
	return KindUnknown, code
}

func newAuthError(op string, err error) *AuthError {
	kind, code := classify(err)
	return &AuthError{Kind: kind, Op: op, Code: code, Message: err.Error(), Err: err}
}
