package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const defaultMinPasswordLength = 6

// Options tunes account policy.
type Options struct {
	MinPasswordLength int
	// AutoConfirm skips email confirmation. Duplicate sign-ups then fail
	// loudly instead of returning an obfuscated account.
	AutoConfirm bool
}

// Service manages the account lifecycle.
type Service struct {
	repo Repository
	opts Options
	now  func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository, opts Options) *Service {
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = defaultMinPasswordLength
	}
	return &Service{repo: repo, opts: opts, now: time.Now}
}

// Register creates an account awaiting email confirmation. When the email is
// already taken and confirmation is required, it returns an account with no
// identities and no error so that the response does not reveal the address.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return RegisterResult{}, err
	}
	if len(in.Password) < s.opts.MinPasswordLength {
		return RegisterResult{}, &Error{
			Code:    CodeWeakPassword,
			Message: fmt.Sprintf("Password should be at least %d characters", s.opts.MinPasswordLength),
		}
	}

	now := s.now().UTC()
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		if s.opts.AutoConfirm {
			return RegisterResult{}, errUserExists
		}
		return RegisterResult{
			Account:   Account{ID: uuid.NewString(), Email: email, Identities: []Identity{}, CreatedAt: now},
			Duplicate: true,
		}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return RegisterResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return RegisterResult{}, err
	}

	id := uuid.NewString()
	account := Account{
		ID:           id,
		Email:        email,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		PasswordHash: hash,
		Identities:   []Identity{{ID: id, Provider: ProviderEmail}},
		CreatedAt:    now,
	}
	if s.opts.AutoConfirm {
		account.ConfirmedAt = &now
	} else {
		account.ConfirmationToken = uuid.NewString()
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{Account: account}, nil
}

// Confirm verifies the email confirmation token and activates the account.
func (s *Service) Confirm(ctx context.Context, token string) (Account, error) {
	account, err := s.repo.FindByConfirmationToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, errTokenExpired
		}
		return Account{}, err
	}
	now := s.now().UTC()
	if err := s.repo.MarkConfirmed(ctx, account.ID, now); err != nil {
		return Account{}, err
	}
	account.ConfirmedAt = &now
	account.ConfirmationToken = ""
	return account, nil
}

// Authenticate verifies credentials of a confirmed account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return Account{}, errInvalidCredentials
	}
	account, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, errInvalidCredentials
		}
		return Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return Account{}, errInvalidCredentials
	}
	if !account.Confirmed() {
		return Account{}, errEmailNotConfirmed
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastSignIn(ctx, account.ID, now); err != nil {
		return Account{}, err
	}
	account.LastSignInAt = &now
	return account, nil
}

// FindByID returns the account with the given id.
func (s *Service) FindByID(ctx context.Context, id string) (Account, error) {
	return s.repo.FindByID(ctx, id)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", errInvalidEmail
	}
	return email, nil
}
