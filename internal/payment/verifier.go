package payment

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

// ErrInvalidSignature marks a confirmation notification whose signature did
// not verify against the shared signing secret.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// EventVerifier authenticates raw confirmation notifications before any of
// their payload is trusted.
type EventVerifier interface {
	Verify(payload []byte, sigHeader string) (stripe.Event, error)
}

type stripeEventVerifier struct {
	signingSecret string
}

// NewStripeEventVerifier returns an EventVerifier for the given webhook
// signing secret.
func NewStripeEventVerifier(signingSecret string) EventVerifier {
	return &stripeEventVerifier{signingSecret: signingSecret}
}

func (v *stripeEventVerifier) Verify(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, v.signingSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}
