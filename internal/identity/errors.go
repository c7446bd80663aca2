package identity

import "errors"

// ErrNotFound is returned by repositories when no account matches.
var ErrNotFound = errors.New("account not found")

// Stable error codes shared with clients.
const (
	CodeWeakPassword       = "weak_password"
	CodeInvalidEmail       = "email_address_invalid"
	CodeUserAlreadyExists  = "user_already_exists"
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotConfirmed  = "email_not_confirmed"
	CodeOTPExpired         = "otp_expired"
)

// Error is a client-facing failure with a stable code and a readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// ErrorCode returns the stable code.
func (e *Error) ErrorCode() string { return e.Code }

var (
	errInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "Invalid login credentials"}
	errEmailNotConfirmed  = &Error{Code: CodeEmailNotConfirmed, Message: "Email not confirmed"}
	errUserExists         = &Error{Code: CodeUserAlreadyExists, Message: "User already registered"}
	errInvalidEmail       = &Error{Code: CodeInvalidEmail, Message: "Unable to validate email address: invalid format"}
	errTokenExpired       = &Error{Code: CodeOTPExpired, Message: "Email link is invalid or has expired"}
)
