package payment

import (
	"context"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
)

// SessionLine is one line of a hosted checkout session request.
type SessionLine struct {
	Name     string
	Price    float64
	Quantity int
	ImageURL string
}

// SessionRequest describes the hosted payment session to create. OrderID and
// CustomerEmail travel as opaque metadata so the asynchronous confirmation
// can correlate back to the order.
type SessionRequest struct {
	OrderID       string
	CustomerEmail string
	Lines         []SessionLine
	SuccessURL    string
	CancelURL     string
}

// Session is the created hosted checkout session. The caller redirects the
// customer to URL and owns nothing past that point.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SessionClient creates hosted checkout sessions with the payment processor.
type SessionClient interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

type stripeSessionClient struct{}

// NewStripeSessionClient configures the Stripe API key and returns a
// SessionClient backed by Stripe Checkout.
func NewStripeSessionClient(secretKey string) SessionClient {
	stripe.Key = secretKey
	return &stripeSessionClient{}
}

// MinorUnits converts a decimal price to the processor's minor currency
// unit by rounding.
func MinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

func (c *stripeSessionClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, line := range req.Lines {
		priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(string(stripe.CurrencyUSD)),
			UnitAmount: stripe.Int64(MinorUnits(line.Price)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(line.Name),
			},
		}
		if line.ImageURL != "" {
			priceData.ProductData.Images = stripe.StringSlice([]string{line.ImageURL})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: priceData,
			Quantity:  stripe.Int64(int64(line.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		CustomerEmail:      stripe.String(req.CustomerEmail),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("orderId", req.OrderID)
	params.AddMetadata("customerEmail", req.CustomerEmail)

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &Session{ID: s.ID, URL: s.URL}, nil
}
