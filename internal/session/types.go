// Package session owns the process-wide authentication state of the vendor
// dashboard and the onboarding reconciliation that follows a sign-in.
package session

import (
	"context"
	"time"

	"github.com/congo-pay/merchant_portal/internal/profile"
)

// Event tags a provider notification.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
	EventUserUpdated    Event = "USER_UPDATED"
)

// Identity links a user to one sign-in method at the provider.
type Identity struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
}

// User is the provider's view of an account.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name,omitempty"`
	Identities  []Identity `json:"identities"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Session is an authenticated connection bound to a user.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// SignUpRequest carries account-creation input to the provider.
type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
	// RedirectTo is where the confirmation link sends the user back.
	RedirectTo string
}

// SignUpResult is the provider's account-creation response. Session is set
// only when the provider confirms accounts immediately.
type SignUpResult struct {
	User    *User
	Session *Session
}

// Listener receives provider notifications.
type Listener func(event Event, s *Session)

// Provider is the identity/session backend.
type Provider interface {
	Subscribe(fn Listener) (unsubscribe func())
	CurrentSession(ctx context.Context) (*Session, error)
	CreateAccount(ctx context.Context, req SignUpRequest) (SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
}

// ProfileStore applies profile updates keyed by user id.
type ProfileStore interface {
	Update(ctx context.Context, userID string, fields profile.Fields) error
}

// State is a snapshot of the authentication state.
type State struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
	Loading bool     `json:"loading"`
}

func (s State) clone() State {
	out := State{Loading: s.Loading}
	if s.Session != nil {
		sess := *s.Session
		if sess.User != nil {
			u := sess.User.clone()
			sess.User = u
		}
		out.Session = &sess
		out.User = sess.User
	}
	return out
}

func (u *User) clone() *User {
	c := *u
	c.Identities = append([]Identity(nil), u.Identities...)
	if u.ConfirmedAt != nil {
		t := *u.ConfirmedAt
		c.ConfirmedAt = &t
	}
	return &c
}
