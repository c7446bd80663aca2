// Package onboarding stages the business details a vendor enters at sign-up
// until the account is confirmed and the profile row can take them.
package onboarding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/congo-pay/merchant_portal/internal/profile"
	"github.com/congo-pay/merchant_portal/internal/storage"
)

// PendingKey prefixes the client storage keys holding staged payloads. Each
// account stages under its own key.
const PendingKey = "pendingBusinessData"

// Key is the storage key of the payload staged for userID.
func Key(userID string) string {
	return PendingKey + ":" + userID
}

func attemptsKey(userID string) string {
	return Key(userID) + ":attempts"
}

// ErrMalformed marks a staged payload that cannot be decoded.
var ErrMalformed = errors.New("malformed onboarding payload")

// Payload is the business data captured before email confirmation.
type Payload struct {
	BusinessName   string   `json:"businessName"`
	BusinessType   string   `json:"businessType"`
	Description    string   `json:"description"`
	Location       string   `json:"location"`
	Phone          string   `json:"phone"`
	WhatsApp       string   `json:"whatsapp"`
	WorkingHours   string   `json:"workingHours"`
	PaymentMethods []string `json:"paymentMethods"`
	DeliveryAreas  []string `json:"deliveryAreas"`
	FullName       string   `json:"fullName"`
}

// Fields maps the payload onto a profile update.
func (p Payload) Fields() profile.Fields {
	return profile.Fields{
		FullName:       p.FullName,
		BusinessName:   p.BusinessName,
		BusinessType:   p.BusinessType,
		Description:    p.Description,
		Location:       p.Location,
		Phone:          p.Phone,
		WhatsApp:       p.WhatsApp,
		WorkingHours:   p.WorkingHours,
		PaymentMethods: p.PaymentMethods,
		DeliveryAreas:  p.DeliveryAreas,
	}
}

// Encode serializes the payload for storage.
func Encode(p Payload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a stored payload. Anything that is not a JSON object fails with ErrMalformed.
func Decode(raw string) (Payload, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Payload{}, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	var p Payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return p, nil
}

// Stage writes userID's payload, replacing any earlier one, and resets the
// attempt count.
func Stage(ctx context.Context, store storage.Store, userID string, p Payload) error {
	if userID == "" {
		return errors.New("stage onboarding payload: user id is required")
	}
	raw, err := Encode(p)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, Key(userID), raw); err != nil {
		return fmt.Errorf("stage onboarding payload: %w", err)
	}
	return store.Delete(ctx, attemptsKey(userID))
}

// Load returns the raw payload staged for userID. ok is false when nothing is staged.
func Load(ctx context.Context, store storage.Store, userID string) (raw string, ok bool, err error) {
	raw, err = store.Get(ctx, Key(userID))
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return raw, true, nil
}

// Clear removes userID's staged payload and its attempt count.
func Clear(ctx context.Context, store storage.Store, userID string) error {
	if err := store.Delete(ctx, Key(userID)); err != nil {
		return err
	}
	return store.Delete(ctx, attemptsKey(userID))
}

// Attempts reads the failed-attempt count. A missing or garbled count reads as zero.
func Attempts(ctx context.Context, store storage.Store, userID string) int {
	raw, err := store.Get(ctx, attemptsKey(userID))
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// RecordFailure bumps the failed-attempt count and returns the new value.
func RecordFailure(ctx context.Context, store storage.Store, userID string) (int, error) {
	n := Attempts(ctx, store, userID) + 1
	if err := store.Set(ctx, attemptsKey(userID), strconv.Itoa(n)); err != nil {
		return n, err
	}
	return n, nil
}
