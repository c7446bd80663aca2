package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
		code string
	}{
		{"code wins over message", codedErr{"email_exists", "something else"}, KindAlreadyExists, "email_exists"},
		{"wrapped code", fmt.Errorf("sign up: %w", codedErr{"email_address_invalid", "bad"}), KindInvalidEmail, "email_address_invalid"},
		{"unknown code falls back to message", codedErr{"validation_failed", "Password should be at least 6 characters"}, KindWeakPassword, "validation_failed"},
		{"already registered", errors.New("User already registered"), KindAlreadyExists, ""},
		{"already exists", errors.New("A user with this email address already exists"), KindAlreadyExists, ""},
		{"invalid email", errors.New("Invalid email"), KindInvalidEmail, ""},
		{"invalid credentials", errors.New("Invalid login credentials"), KindInvalidCredentials, ""},
		{"email not confirmed", errors.New("Email not confirmed"), KindEmailNotConfirmed, ""},
		{"reworded message is unknown", errors.New("Credentials rejected"), KindUnknown, ""},
		{"nil", nil, KindUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, code := classify(tt.err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestAuthErrorMessages(t *testing.T) {
	ae := &AuthError{Kind: KindWeakPassword, Op: opSignUp, Message: "Password should be at least 6 characters"}
	assert.Equal(t, "Password should be at least 6 characters", ae.Error())
	assert.Equal(t, "Sign up failed", ae.Title())
	assert.Contains(t, ae.Description(), "too weak")

	ae = &AuthError{Op: opSignOut, Err: errors.New("boom")}
	assert.Equal(t, "boom", ae.Error())
	assert.Equal(t, "Sign out failed", ae.Title())
	assert.Contains(t, ae.Description(), "sign you out")
}
