package session

import (
	"context"
	"time"

	"github.com/congo-pay/merchant_portal/internal/notification"
	"github.com/congo-pay/merchant_portal/internal/onboarding"
)

// scheduleReconcile replaces any pending reconciliation with a new one that
// fires after the configured delay.
func (m *Manager) scheduleReconcile(userID string) {
	m.taskMu.Lock()
	defer m.taskMu.Unlock()

	m.mu.RLock()
	lifetime, stopped := m.lifetime, m.stopped
	m.mu.RUnlock()
	if stopped || lifetime == nil {
		return
	}

	if m.cancelTask != nil {
		m.cancelTask()
	}
	ctx, cancel := context.WithCancel(lifetime)
	m.cancelTask = cancel

	m.tasks.Add(1)
	go func() {
		defer m.tasks.Done()
		defer cancel()

		timer := time.NewTimer(m.cfg.ReconcileDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		m.reconcile(ctx, userID)
	}()
}

func (m *Manager) cancelReconcile() {
	m.taskMu.Lock()
	defer m.taskMu.Unlock()
	if m.cancelTask != nil {
		m.cancelTask()
		m.cancelTask = nil
	}
}

// reconcile applies the payload staged for userID to that user's profile.
func (m *Manager) reconcile(ctx context.Context, userID string) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if ctx.Err() != nil {
		return
	}

	raw, ok, err := onboarding.Load(ctx, m.store, userID)
	if err != nil {
		m.logger.Warn("read onboarding payload", "user_id", userID, "error", err)
		return
	}
	if !ok {
		return
	}

	payload, err := onboarding.Decode(raw)
	if err != nil {
		m.logger.Error("discarding onboarding payload", "user_id", userID, "error", err)
		m.clearPayload(ctx, userID)
		m.notify(ctx, notification.Toast{
			UserID:      userID,
			Title:       "Profile setup error",
			Description: "Your saved business details could not be read. Please complete your profile manually.",
			Severity:    notification.SeverityError,
		})
		return
	}

	if err := m.profiles.Update(ctx, userID, payload.Fields()); err != nil {
		if ctx.Err() != nil {
			return
		}
		attempts, serr := onboarding.RecordFailure(ctx, m.store, userID)
		if serr != nil {
			m.logger.Warn("record onboarding failure", "user_id", userID, "error", serr)
		}
		retained := attempts < m.cfg.MaxReconcileAttempts
		if !retained {
			m.clearPayload(ctx, userID)
		}
		m.logger.Warn("apply onboarding payload",
			"user_id", userID,
			"attempts", attempts,
			"retained", retained,
			"error", err,
		)
		m.notify(ctx, notification.Toast{
			UserID:      userID,
			Title:       "Profile setup incomplete",
			Description: "We couldn't save your business details. Please complete your profile from the settings page.",
			Severity:    notification.SeverityError,
		})
		return
	}

	m.clearPayload(ctx, userID)
	m.logger.Info("onboarding payload applied", "user_id", userID)
	m.notify(ctx, notification.Toast{
		UserID:      userID,
		Title:       "Profile set up",
		Description: "Your business details have been saved.",
		Severity:    notification.SeveritySuccess,
	})
}

func (m *Manager) clearPayload(ctx context.Context, userID string) {
	if err := onboarding.Clear(ctx, m.store, userID); err != nil {
		m.logger.Warn("clear onboarding payload", "user_id", userID, "error", err)
	}
}
