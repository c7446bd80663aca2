package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/congo-pay/merchant_portal/internal/onboarding"
	"github.com/congo-pay/merchant_portal/internal/profile"
)

const waitFor = time.Second

func stagePayload(t *testing.T, h *harness, userID string, p onboarding.Payload) {
	t.Helper()
	require.NoError(t, onboarding.Stage(context.Background(), h.store, userID, p))
}

func payloadStaged(h *harness, userID string) bool {
	_, ok, err := onboarding.Load(context.Background(), h.store, userID)
	return err == nil && ok
}

func amasKitchen() onboarding.Payload {
	return onboarding.Payload{
		BusinessName:   "Ama's Kitchen",
		BusinessType:   "restaurant",
		Description:    "Home-style Ghanaian dishes",
		Location:       "Osu, Accra",
		Phone:          "+233200000000",
		WhatsApp:       "+233200000001",
		WorkingHours:   "Mon-Sat 08:00-20:00",
		PaymentMethods: []string{"cash", "mobile_money"},
		DeliveryAreas:  []string{"Osu", "Labone"},
		FullName:       "Ama Mensah",
	}
}

func TestSignedInAppliesPendingPayload(t *testing.T) {
	h := newHarness(t, Config{})
	stagePayload(t, h, "u-1", amasKitchen())
	require.NoError(t, h.manager.Start(context.Background()))

	h.provider.emit(EventSignedIn, testSession("u-1"))
	require.Empty(t, h.profiles.calls(), "reconciliation waits for the delay")

	require.Eventually(t, func() bool { return len(h.profiles.calls()) == 1 }, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !payloadStaged(h, "u-1") }, waitFor, 5*time.Millisecond)

	got := h.profiles.calls()[0]
	require.Equal(t, "u-1", got.userID)
	require.Equal(t, amasKitchen().Fields(), got.fields)
	require.Eventually(t, func() bool { return h.notifier.last().Title == "Profile set up" }, waitFor, 5*time.Millisecond)
}

func TestSignedInWithoutPayloadSkipsUpdate(t *testing.T) {
	h := newHarness(t, Config{})
	require.NoError(t, h.manager.Start(context.Background()))

	h.provider.emit(EventSignedIn, testSession("u-1"))
	require.Never(t, func() bool { return len(h.profiles.calls()) > 0 }, 100*time.Millisecond, 5*time.Millisecond)
}

func TestMalformedPayloadIsDiscarded(t *testing.T) {
	for _, raw := range []string{"{not json", "null", "[]", `"x"`} {
		t.Run(raw, func(t *testing.T) {
			h := newHarness(t, Config{})
			require.NoError(t, h.store.Set(context.Background(), onboarding.Key("u-1"), raw))
			require.NoError(t, h.manager.Start(context.Background()))

			h.provider.emit(EventSignedIn, testSession("u-1"))

			require.Eventually(t, func() bool { return !payloadStaged(h, "u-1") }, waitFor, 5*time.Millisecond)
			require.Eventually(t, func() bool { return h.notifier.last().Title == "Profile setup error" }, waitFor, 5*time.Millisecond)
			require.Empty(t, h.profiles.calls())
			require.NotContains(t, h.notifier.titles(), "Profile set up")
		})
	}
}

func TestSignedInAppliesOnlyOwnPayload(t *testing.T) {
	h := newHarness(t, Config{})
	stagePayload(t, h, "vendor-a", amasKitchen())
	require.NoError(t, h.manager.Start(context.Background()))

	h.provider.emit(EventSignedIn, testSession("vendor-b"))
	require.Never(t, func() bool { return len(h.profiles.calls()) > 0 }, 100*time.Millisecond, 5*time.Millisecond)
	require.True(t, payloadStaged(h, "vendor-a"), "another account's payload is left alone")

	h.provider.emit(EventSignedIn, testSession("vendor-a"))
	require.Eventually(t, func() bool { return len(h.profiles.calls()) == 1 }, waitFor, 5*time.Millisecond)
	got := h.profiles.calls()[0]
	require.Equal(t, "vendor-a", got.userID)
	require.Equal(t, amasKitchen().Fields(), got.fields)
	require.Eventually(t, func() bool { return !payloadStaged(h, "vendor-a") }, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool { return h.notifier.last().UserID == "vendor-a" }, waitFor, 5*time.Millisecond)
}

func TestFailedUpdateRetainsPayloadUntilAttemptLimit(t *testing.T) {
	h := newHarness(t, Config{MaxReconcileAttempts: 2})
	h.profiles.setErr(profile.ErrNotFound)
	stagePayload(t, h, "u-1", amasKitchen())
	require.NoError(t, h.manager.Start(context.Background()))
	ctx := context.Background()

	h.provider.emit(EventSignedIn, testSession("u-1"))
	require.Eventually(t, func() bool { return onboarding.Attempts(ctx, h.store, "u-1") == 1 }, waitFor, 5*time.Millisecond)
	require.True(t, payloadStaged(h, "u-1"), "payload is kept for the next sign-in")
	require.Eventually(t, func() bool { return h.notifier.last().Title == "Profile setup incomplete" }, waitFor, 5*time.Millisecond)

	h.provider.emit(EventSignedIn, testSession("u-1"))
	require.Eventually(t, func() bool { return !payloadStaged(h, "u-1") }, waitFor, 5*time.Millisecond)
	require.Equal(t, 0, onboarding.Attempts(ctx, h.store, "u-1"))
	require.Len(t, h.profiles.calls(), 2)
}

func TestFailedUpdateThenSuccess(t *testing.T) {
	h := newHarness(t, Config{})
	h.profiles.setErr(errors.New("row not ready"))
	stagePayload(t, h, "u-1", amasKitchen())
	require.NoError(t, h.manager.Start(context.Background()))

	h.provider.emit(EventSignedIn, testSession("u-1"))
	require.Eventually(t, func() bool { return len(h.profiles.calls()) == 1 }, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool { return onboarding.Attempts(context.Background(), h.store, "u-1") == 1 }, waitFor, 5*time.Millisecond)

	h.profiles.setErr(nil)
	h.provider.emit(EventSignedIn, testSession("u-1"))
	require.Eventually(t, func() bool { return !payloadStaged(h, "u-1") }, waitFor, 5*time.Millisecond)
	require.Len(t, h.profiles.calls(), 2)
}

func TestSecondSignInReplacesPendingTask(t *testing.T) {
	h := newHarness(t, Config{ReconcileDelay: 50 * time.Millisecond})
	stagePayload(t, h, "u-1", amasKitchen())
	require.NoError(t, h.manager.Start(context.Background()))

	h.provider.emit(EventSignedIn, testSession("u-1"))
	h.provider.emit(EventSignedIn, testSession("u-1"))

	require.Eventually(t, func() bool { return len(h.profiles.calls()) == 1 }, waitFor, 5*time.Millisecond)
	require.Never(t, func() bool { return len(h.profiles.calls()) > 1 }, 150*time.Millisecond, 10*time.Millisecond)
}

func TestStopCancelsPendingReconcile(t *testing.T) {
	h := newHarness(t, Config{ReconcileDelay: 100 * time.Millisecond})
	stagePayload(t, h, "u-1", amasKitchen())
	require.NoError(t, h.manager.Start(context.Background()))

	h.provider.emit(EventSignedIn, testSession("u-1"))
	h.manager.Stop()

	time.Sleep(200 * time.Millisecond)
	require.Empty(t, h.profiles.calls())
	require.True(t, payloadStaged(h, "u-1"), "payload stays for the next session")
}

func TestSignOutCancelsPendingReconcile(t *testing.T) {
	h := newHarness(t, Config{ReconcileDelay: 100 * time.Millisecond})
	stagePayload(t, h, "u-1", amasKitchen())
	require.NoError(t, h.manager.Start(context.Background()))

	h.provider.emit(EventSignedIn, testSession("u-1"))
	require.NoError(t, h.manager.SignOut(context.Background()))

	require.Never(t, func() bool { return len(h.profiles.calls()) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
	require.True(t, payloadStaged(h, "u-1"))
}
