package webhook

import (
	"errors"
	"fmt"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"
)

var (
	// ErrNotConfigured means no webhook secret is set. Verification fails
	// closed: an unconfigured verifier never accepts an event.
	ErrNotConfigured = errors.New("webhook: signing secret not configured")

	ErrMissingSignature = errors.New("webhook: signature header missing")

	ErrInvalidSignature = errors.New("webhook: signature verification failed")
)

// Verifier authenticates inbound lifecycle events against the pre-shared
// secret. Purely cryptographic, no network calls.
type Verifier struct {
	wh *svix.Webhook
}

// NewVerifier accepts an empty secret so the service can boot without
// webhook delivery configured; Verify then rejects everything.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return &Verifier{}, nil
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("webhook: bad signing secret: %w", err)
	}
	return &Verifier{wh: wh}, nil
}

// Verify checks the signature headers against the exact raw body bytes that
// will later be parsed. Callers must not re-serialize the body between
// verification and parsing.
func (v *Verifier) Verify(body []byte, headers http.Header) error {
	if v.wh == nil {
		return ErrNotConfigured
	}
	if headers.Get("svix-signature") == "" {
		return ErrMissingSignature
	}
	if err := v.wh.Verify(body, headers); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}
