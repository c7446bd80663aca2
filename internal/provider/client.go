// Package provider is an in-process identity provider. It keeps the client's
// current session in durable storage and notifies subscribers of changes.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/congo-pay/merchant_portal/internal/auth"
	"github.com/congo-pay/merchant_portal/internal/identity"
	"github.com/congo-pay/merchant_portal/internal/logging"
	"github.com/congo-pay/merchant_portal/internal/session"
	"github.com/congo-pay/merchant_portal/internal/storage"
)

const sessionKey = "auth.session"

var _ session.Provider = (*Client)(nil)

// ErrNoSession is returned by RefreshSession when nobody is signed in.
var ErrNoSession = errors.New("no active session")

// ConfirmedHook runs once an account is confirmed, before the signed-in
// notification goes out.
type ConfirmedHook func(ctx context.Context, account identity.Account) error

// Options wires optional collaborators.
type Options struct {
	Mailer      Mailer
	OnConfirmed ConfirmedHook
	Logger      *slog.Logger
}

// Client implements session.Provider on top of the account and token services.
type Client struct {
	accounts    *identity.Service
	tokens      *auth.Service
	store       storage.Store
	mailer      Mailer
	onConfirmed ConfirmedHook
	logger      *slog.Logger

	mu        sync.Mutex
	listeners map[int]session.Listener
	nextID    int
}

// New builds a provider client.
func New(accounts *identity.Service, tokens *auth.Service, store storage.Store, opts Options) *Client {
	logger := logging.Component(opts.Logger, "provider")
	mailer := opts.Mailer
	if mailer == nil {
		mailer = NewLogMailer(logger)
	}
	return &Client{
		accounts:    accounts,
		tokens:      tokens,
		store:       store,
		mailer:      mailer,
		onConfirmed: opts.OnConfirmed,
		logger:      logger,
		listeners:   make(map[int]session.Listener),
	}
}

// Subscribe registers fn for session changes and returns its unsubscribe func.
func (c *Client) Subscribe(fn session.Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.listeners, id)
		})
	}
}

// CurrentSession returns the persisted session if it is still valid,
// refreshing it when only the access token has expired.
func (c *Client) CurrentSession(ctx context.Context) (*session.Session, error) {
	stored, err := c.load(ctx)
	if err != nil || stored == nil {
		return nil, err
	}

	claims, err := c.tokens.Verify(ctx, stored.AccessToken)
	switch {
	case err == nil:
		account, err := c.accounts.FindByID(ctx, claims.Subject)
		if err != nil {
			return nil, err
		}
		stored.User = toUser(account)
		return stored, nil
	case errors.Is(err, auth.ErrInvalidToken):
		refreshed, rerr := c.refresh(ctx, stored)
		if rerr == nil {
			return refreshed, nil
		}
		c.logger.Info("dropping stored session", "error", rerr)
	case errors.Is(err, auth.ErrTokenRevoked):
		c.logger.Info("dropping revoked session")
	default:
		return nil, err
	}
	return nil, c.store.Delete(ctx, sessionKey)
}

// CreateAccount registers an account. Taken addresses come back as a user
// with no identities when confirmation is required.
func (c *Client) CreateAccount(ctx context.Context, req session.SignUpRequest) (session.SignUpResult, error) {
	res, err := c.accounts.Register(ctx, identity.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return session.SignUpResult{}, err
	}
	user := toUser(res.Account)
	if res.Duplicate {
		return session.SignUpResult{User: user}, nil
	}

	if res.Account.Confirmed() {
		sess, err := c.confirmed(ctx, res.Account)
		if err != nil {
			return session.SignUpResult{}, err
		}
		return session.SignUpResult{User: sess.User, Session: sess}, nil
	}

	link, err := confirmationLink(req.RedirectTo, res.Account.ConfirmationToken)
	if err != nil {
		return session.SignUpResult{}, err
	}
	if err := c.mailer.SendConfirmation(ctx, res.Account.Email, link); err != nil {
		return session.SignUpResult{}, fmt.Errorf("send confirmation email: %w", err)
	}
	return session.SignUpResult{User: user}, nil
}

// ConfirmEmail redeems a confirmation token and signs the user in.
func (c *Client) ConfirmEmail(ctx context.Context, token string) (*session.Session, error) {
	account, err := c.accounts.Confirm(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.confirmed(ctx, account)
}

// SignInWithPassword authenticates and starts a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	account, err := c.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.start(ctx, account)
}

// RefreshSession exchanges the stored refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context) (*session.Session, error) {
	stored, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNoSession
	}
	return c.refresh(ctx, stored)
}

// SignOut revokes the stored session's tokens and forgets it.
func (c *Client) SignOut(ctx context.Context) error {
	stored, err := c.load(ctx)
	if err != nil {
		return err
	}
	if stored != nil && stored.User != nil {
		if err := c.tokens.Revoke(ctx, stored.User.ID); err != nil && !errors.Is(err, identity.ErrNotFound) {
			return err
		}
	}
	if err := c.store.Delete(ctx, sessionKey); err != nil {
		return err
	}
	c.emit(session.EventSignedOut, nil)
	return nil
}

func (c *Client) confirmed(ctx context.Context, account identity.Account) (*session.Session, error) {
	if c.onConfirmed != nil {
		if err := c.onConfirmed(ctx, account); err != nil {
			c.logger.Error("confirmation hook failed", "user_id", account.ID, "error", err)
		}
	}
	return c.start(ctx, account)
}

func (c *Client) start(ctx context.Context, account identity.Account) (*session.Session, error) {
	pair, err := c.tokens.Issue(account)
	if err != nil {
		return nil, err
	}
	sess := newSession(pair, account)
	if err := c.save(ctx, sess); err != nil {
		return nil, err
	}
	c.emit(session.EventSignedIn, sess)
	return sess, nil
}

func (c *Client) refresh(ctx context.Context, stored *session.Session) (*session.Session, error) {
	pair, account, err := c.tokens.Refresh(ctx, stored.RefreshToken)
	if err != nil {
		return nil, err
	}
	sess := newSession(pair, account)
	if err := c.save(ctx, sess); err != nil {
		return nil, err
	}
	c.emit(session.EventTokenRefreshed, sess)
	return sess, nil
}

func (c *Client) emit(event session.Event, s *session.Session) {
	c.mu.Lock()
	listeners := make([]session.Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(event, s)
	}
}

func (c *Client) load(ctx context.Context) (*session.Session, error) {
	raw, err := c.store.Get(ctx, sessionKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sess session.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		c.logger.Warn("stored session unreadable", "error", err)
		return nil, c.store.Delete(ctx, sessionKey)
	}
	return &sess, nil
}

func (c *Client) save(ctx context.Context, s *session.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, sessionKey, string(raw))
}

func newSession(pair auth.TokenPair, account identity.Account) *session.Session {
	return &session.Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		User:         toUser(account),
	}
}

func toUser(a identity.Account) *session.User {
	u := &session.User{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Identities:  make([]session.Identity, 0, len(a.Identities)),
		ConfirmedAt: a.ConfirmedAt,
		CreatedAt:   a.CreatedAt,
	}
	for _, id := range a.Identities {
		u.Identities = append(u.Identities, session.Identity{ID: id.ID, Provider: id.Provider})
	}
	return u
}

func confirmationLink(redirectTo, token string) (string, error) {
	u, err := url.Parse(redirectTo)
	if err != nil {
		return "", fmt.Errorf("parse redirect url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
