package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/congo-pay/merchant_portal/internal/logging"
	"github.com/congo-pay/merchant_portal/internal/notification"
	"github.com/congo-pay/merchant_portal/internal/profile"
	"github.com/congo-pay/merchant_portal/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProvider struct {
	mu        sync.Mutex
	calls     []string
	listeners map[int]Listener
	nextID    int

	current    *Session
	currentErr error

	signUpResult SignUpResult
	signUpErr    error
	lastSignUp   SignUpRequest

	signInErr    error
	signOutErr   error
	signOutCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{listeners: make(map[int]Listener)}
}

func (p *fakeProvider) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *fakeProvider) Subscribe(fn Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("subscribe")
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.record("unsubscribe")
		delete(p.listeners, id)
	}
}

func (p *fakeProvider) CurrentSession(context.Context) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("current_session")
	return p.current, p.currentErr
}

func (p *fakeProvider) CreateAccount(_ context.Context, req SignUpRequest) (SignUpResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("create_account")
	p.lastSignUp = req
	return p.signUpResult, p.signUpErr
}

func (p *fakeProvider) SignInWithPassword(context.Context, string, string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("sign_in")
	return nil, p.signInErr
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("sign_out")
	p.signOutCalls++
	return p.signOutErr
}

func (p *fakeProvider) emit(event Event, s *Session) {
	p.mu.Lock()
	listeners := make([]Listener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(event, s)
	}
}

func (p *fakeProvider) callLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type profileUpdate struct {
	userID string
	fields profile.Fields
}

type fakeProfiles struct {
	mu      sync.Mutex
	updates []profileUpdate
	err     error
}

func (f *fakeProfiles) Update(_ context.Context, userID string, fields profile.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, profileUpdate{userID: userID, fields: fields})
	return f.err
}

func (f *fakeProfiles) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeProfiles) calls() []profileUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]profileUpdate(nil), f.updates...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []notification.Toast
}

func (n *recordingNotifier) Notify(_ context.Context, t notification.Toast) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, t)
	return nil
}

func (n *recordingNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.toasts))
	for _, t := range n.toasts {
		out = append(out, t.Title)
	}
	return out
}

func (n *recordingNotifier) last() notification.Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.toasts) == 0 {
		return notification.Toast{}
	}
	return n.toasts[len(n.toasts)-1]
}

type harness struct {
	provider *fakeProvider
	profiles *fakeProfiles
	store    storage.Store
	notifier *recordingNotifier
	manager  *Manager
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	if cfg.ReconcileDelay == 0 {
		cfg.ReconcileDelay = 10 * time.Millisecond
	}
	h := &harness{
		provider: newFakeProvider(),
		profiles: &fakeProfiles{},
		store:    storage.NewMemoryStore(),
		notifier: &recordingNotifier{},
	}
	h.manager = New(h.provider, h.profiles, h.store, h.notifier, logging.Discard(), cfg)
	t.Cleanup(h.manager.Stop)
	return h
}

func testSession(userID string) *Session {
	return &Session{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		ExpiresAt:    time.Now().Add(time.Hour),
		User: &User{
			ID:         userID,
			Email:      userID + "@example.com",
			Identities: []Identity{{ID: userID, Provider: "email"}},
		},
	}
}
