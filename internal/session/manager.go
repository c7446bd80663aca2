package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/congo-pay/merchant_portal/internal/logging"
	"github.com/congo-pay/merchant_portal/internal/notification"
	"github.com/congo-pay/merchant_portal/internal/onboarding"
	"github.com/congo-pay/merchant_portal/internal/storage"
)

const (
	DefaultReconcileDelay       = time.Second
	DefaultMaxReconcileAttempts = 3
)

// Config tunes the manager.
type Config struct {
	// ReconcileDelay is how long after a sign-in the staged onboarding payload is
	// applied. The profile row is created asynchronously on confirmation.
	ReconcileDelay time.Duration
	// MaxReconcileAttempts bounds failed applications before the payload is dropped.
	MaxReconcileAttempts int
	// RedirectTo is the application route the confirmation email returns to.
	RedirectTo string
}

// Manager owns the authentication state for the lifetime of the application.
// Create it with New, activate it with Start and tear it down with Stop.
type Manager struct {
	provider Provider
	profiles ProfileStore
	store    storage.Store
	notifier notification.Notifier
	logger   *slog.Logger
	cfg      Config

	mu          sync.RWMutex
	state       State
	started     bool
	stopped     bool
	unsubscribe func()
	lifetime    context.Context
	cancel      context.CancelFunc

	// taskMu guards cancelTask and orders task creation against Stop.
	taskMu     sync.Mutex
	cancelTask context.CancelFunc
	tasks      sync.WaitGroup
	// runMu serializes reconciliation runs.
	runMu sync.Mutex
}

// New builds a manager in the loading state.
func New(provider Provider, profiles ProfileStore, store storage.Store, notifier notification.Notifier, logger *slog.Logger, cfg Config) *Manager {
	if cfg.ReconcileDelay <= 0 {
		cfg.ReconcileDelay = DefaultReconcileDelay
	}
	if cfg.MaxReconcileAttempts <= 0 {
		cfg.MaxReconcileAttempts = DefaultMaxReconcileAttempts
	}
	if notifier == nil {
		notifier = notification.Multi{}
	}
	return &Manager{
		provider: provider,
		profiles: profiles,
		store:    store,
		notifier: notifier,
		logger:   logging.Component(logger, "session"),
		cfg:      cfg,
		state:    State{Loading: true},
	}
}

// Start subscribes to provider notifications and then resolves the current
// session. The listener is registered before the fetch is issued so that a
// notification racing the fetch is not lost.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	m.started = true
	m.lifetime, m.cancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	unsubscribe := m.provider.Subscribe(m.handle)

	m.mu.Lock()
	if m.stopped {
		cancel := m.cancel
		m.mu.Unlock()
		unsubscribe()
		cancel()
		return ErrStopped
	}
	m.unsubscribe = unsubscribe
	m.mu.Unlock()

	current, err := m.provider.CurrentSession(ctx)
	if err != nil {
		m.logger.Warn("initial session fetch failed", "error", err)
		m.mu.Lock()
		m.state.Loading = false
		m.mu.Unlock()
		return nil
	}
	m.apply(current)
	return nil
}

// Stop unsubscribes, cancels pending reconciliation and waits for a running
// one to return. It is safe to call more than once.
func (m *Manager) Stop() {
	m.taskMu.Lock()
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		m.taskMu.Unlock()
		return
	}
	m.stopped = true
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()
	if m.cancelTask != nil {
		m.cancelTask()
		m.cancelTask = nil
	}
	m.taskMu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	m.tasks.Wait()
}

// State returns a copy of the current authentication state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

func (m *Manager) handle(event Event, s *Session) {
	if !m.apply(s) {
		return
	}
	switch event {
	case EventSignedIn:
		if s != nil && s.User != nil {
			m.scheduleReconcile(s.User.ID)
		}
	case EventSignedOut:
		m.cancelReconcile()
	}
}

// apply replaces user and session together and ends loading. A session
// without a user is treated as no session.
func (m *Manager) apply(s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	if s != nil && s.User == nil {
		m.logger.Warn("provider session without user ignored")
		s = nil
	}
	m.state = State{Session: s}.clone()
	m.state.Loading = false
	return true
}

// SignUpOption customizes CreateAccount.
type SignUpOption func(*signUpOptions)

type signUpOptions struct {
	displayName string
	onboarding  *onboarding.Payload
}

// WithDisplayName sets the account's display name.
func WithDisplayName(name string) SignUpOption {
	return func(o *signUpOptions) { o.displayName = strings.TrimSpace(name) }
}

// WithOnboarding stages business details to apply after the first sign-in.
func WithOnboarding(p onboarding.Payload) SignUpOption {
	return func(o *signUpOptions) { o.onboarding = &p }
}

// CreateAccount registers a new account. The provider reports an existing
// account either as an error or as a success with no linked identities; both
// come back as an *AuthError of KindAlreadyExists.
func (m *Manager) CreateAccount(ctx context.Context, email, password string, opts ...SignUpOption) error {
	var o signUpOptions
	for _, opt := range opts {
		opt(&o)
	}

	res, err := m.provider.CreateAccount(ctx, SignUpRequest{
		Email:       strings.TrimSpace(email),
		Password:    password,
		DisplayName: o.displayName,
		RedirectTo:  m.cfg.RedirectTo,
	})
	if err != nil {
		return m.fail(ctx, newAuthError(opSignUp, err))
	}
	if res.User == nil || len(res.User.Identities) == 0 {
		return m.fail(ctx, &AuthError{
			Kind:    KindAlreadyExists,
			Op:      opSignUp,
			Message: "User already registered",
			Err:     ErrAccountExists,
		})
	}

	if o.onboarding != nil {
		p := *o.onboarding
		if p.FullName == "" {
			p.FullName = o.displayName
		}
		if err := onboarding.Stage(ctx, m.store, res.User.ID, p); err != nil {
			m.logger.Error("stage onboarding payload", "user_id", res.User.ID, "error", err)
		}
	}

	m.logger.Info("account created", "user_id", res.User.ID, "confirmed", res.Session != nil)
	description := "Please check your email to confirm your account."
	if res.Session != nil {
		description = "Your account is ready."
	}
	m.notify(ctx, notification.Toast{
		UserID:      res.User.ID,
		Title:       "Account created",
		Description: description,
		Severity:    notification.SeveritySuccess,
	})
	return nil
}

// SignIn authenticates with email and password. State follows from the
// provider's signed-in notification.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	sess, err := m.provider.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return m.fail(ctx, newAuthError(opSignIn, err))
	}
	var userID string
	if sess != nil && sess.User != nil {
		userID = sess.User.ID
	}
	m.notify(ctx, notification.Toast{
		UserID:      userID,
		Title:       "Signed in",
		Description: "Welcome back!",
		Severity:    notification.SeveritySuccess,
	})
	return nil
}

// SignOut ends the session at the provider and then clears local state
// without waiting for the provider's notification.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.provider.SignOut(ctx); err != nil {
		return m.fail(ctx, newAuthError(opSignOut, err))
	}
	m.cancelReconcile()

	var userID string
	m.mu.Lock()
	if m.state.User != nil {
		userID = m.state.User.ID
	}
	if !m.stopped {
		m.state = State{}
	}
	m.mu.Unlock()

	m.notify(ctx, notification.Toast{
		UserID:      userID,
		Title:       "Signed out",
		Description: "You have been signed out.",
		Severity:    notification.SeverityInfo,
	})
	return nil
}

func (m *Manager) fail(ctx context.Context, ae *AuthError) error {
	m.logger.Warn("auth operation failed",
		slog.String("op", ae.Op),
		slog.String("kind", ae.Kind.String()),
		slog.String("code", ae.Code),
		slog.Any("error", ae.Err),
	)
	m.notify(ctx, notification.Toast{
		Title:       ae.Title(),
		Description: ae.Description(),
		Severity:    notification.SeverityError,
	})
	return ae
}

func (m *Manager) notify(ctx context.Context, t notification.Toast) {
	if err := m.notifier.Notify(context.WithoutCancel(ctx), t); err != nil {
		m.logger.Warn("notification failed", "title", t.Title, "error", err)
	}
}
