package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cake-haven/internal/payment"
	"cake-haven/internal/repository"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"
)

// PaymentsService is the single authoritative point where an order becomes
// paid and stock is decremented, driven only by verified asynchronous
// notifications from the payment processor.
type PaymentsService interface {
	HandleNotification(ctx context.Context, payload []byte, sigHeader string) error
}

type paymentsService struct {
	verifier    payment.EventVerifier
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	logger      *zap.Logger
}

// NewPaymentsService creates a new instance of PaymentsService
func NewPaymentsService(
	verifier payment.EventVerifier,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	logger *zap.Logger,
) PaymentsService {
	return &paymentsService{
		verifier:    verifier,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		logger:      logger,
	}
}

// HandleNotification verifies the notification's signature before trusting
// any of its payload; verification failure mutates nothing. Completed
// checkout sessions mark the order paid and decrement stock per item; all
// other event types are acknowledged and ignored.
func (s *paymentsService) HandleNotification(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.verifier.Verify(payload, sigHeader)
	if err != nil {
		return err
	}

	switch event.Type {
	case "checkout.session.completed":
		return s.handleSessionCompleted(ctx, event)
	default:
		s.logger.Debug("Ignoring payment event", zap.String("type", event.Type))
		return nil
	}
}

func (s *paymentsService) handleSessionCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to decode checkout session payload: %w", err)
	}

	orderID, err := uuid.Parse(session.Metadata["orderId"])
	if err != nil {
		return fmt.Errorf("notification carries no valid order id: %w", err)
	}

	if err := s.orderRepo.MarkPaid(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrOrderAlreadyPaid) {
			// Redelivered notification; the first delivery already
			// decremented stock.
			s.logger.Info("Order already paid, skipping stock decrement",
				zap.String("order_id", orderID.String()),
			)
			return nil
		}
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	items, err := s.orderRepo.ListItems(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	for _, item := range items {
		if err := s.productRepo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("failed to decrement stock for product %s: %w", item.ProductID, err)
		}
	}

	s.logger.Info("Order confirmed paid",
		zap.String("order_id", orderID.String()),
		zap.Int("items", len(items)),
	)

	return nil
}
