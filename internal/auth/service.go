package auth

import (
	"context"
	"errors"
	"time"

	"github.com/congo-pay/merchant_portal/internal/identity"
)

// Config holds token secrets and lifetimes.
type Config struct {
	AccessSecret    string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Service issues and verifies session tokens.
type Service struct {
	cfg      Config
	accounts identity.Repository
	now      func() time.Time
}

// NewService builds a token service backed by the account repository, which
// is consulted for token versions.
func NewService(cfg Config, accounts identity.Repository) *Service {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = time.Hour
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	return &Service{cfg: cfg, accounts: accounts, now: time.Now}
}

// TokenPair is an issued access/refresh pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Issue signs a new token pair for the account.
func (s *Service) Issue(account identity.Account) (TokenPair, error) {
	now := s.now()
	access, err := sign(newClaims(account.ID, account.Email, account.TokenVersion, kindAccess, now, s.cfg.AccessTokenTTL), []byte(s.cfg.AccessSecret))
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := sign(newClaims(account.ID, account.Email, account.TokenVersion, kindRefresh, now, s.cfg.RefreshTokenTTL), []byte(s.cfg.RefreshSecret))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.cfg.AccessTokenTTL).UTC().Truncate(time.Second),
	}, nil
}

// Verify checks an access token and that it has not been revoked.
func (s *Service) Verify(ctx context.Context, accessToken string) (Claims, error) {
	claims, err := parse(accessToken, []byte(s.cfg.AccessSecret), kindAccess)
	if err != nil {
		return Claims{}, err
	}
	if _, err := s.current(ctx, claims); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, identity.Account, error) {
	claims, err := parse(refreshToken, []byte(s.cfg.RefreshSecret), kindRefresh)
	if err != nil {
		return TokenPair{}, identity.Account{}, err
	}
	account, err := s.current(ctx, claims)
	if err != nil {
		return TokenPair{}, identity.Account{}, err
	}
	pair, err := s.Issue(account)
	if err != nil {
		return TokenPair{}, identity.Account{}, err
	}
	return pair, account, nil
}

// Revoke invalidates every token issued to the account so far.
func (s *Service) Revoke(ctx context.Context, userID string) error {
	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.accounts.UpdateTokenVersion(ctx, account.ID, account.TokenVersion+1)
}

func (s *Service) current(ctx context.Context, claims Claims) (identity.Account, error) {
	account, err := s.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.Account{}, ErrInvalidToken
		}
		return identity.Account{}, err
	}
	if account.TokenVersion != claims.Version {
		return identity.Account{}, ErrTokenRevoked
	}
	return account, nil
}
