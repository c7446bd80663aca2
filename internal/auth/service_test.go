package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/congo-pay/merchant_portal/internal/identity"
)

func newTestService(t *testing.T) (*Service, identity.Account) {
	t.Helper()
	repo := identity.NewMemoryRepository()
	ids := identity.NewService(repo, identity.Options{AutoConfirm: true})
	res, err := ids.Register(context.Background(), identity.RegisterInput{Email: "ama@example.com", Password: "secret123"})
	require.NoError(t, err)
	svc := NewService(Config{
		AccessSecret:    "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}, repo)
	return svc, res.Account
}

func TestIssueAndVerify(t *testing.T) {
	svc, account := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(account)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Minute), pair.ExpiresAt, 2*time.Second)

	claims, err := svc.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, account.ID, claims.Subject)
	require.Equal(t, "ama@example.com", claims.Email)

	_, err = svc.Verify(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken, "refresh tokens are not access tokens")
	_, err = svc.Verify(ctx, "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc, account := newTestService(t)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	pair, err := svc.Issue(account)
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshAndRevoke(t *testing.T) {
	svc, account := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(account)
	require.NoError(t, err)

	next, refreshed, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, account.ID, refreshed.ID)
	_, err = svc.Verify(ctx, next.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, account.ID))
	_, err = svc.Verify(ctx, next.AccessToken)
	require.ErrorIs(t, err, ErrTokenRevoked)
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenRevoked)
}
