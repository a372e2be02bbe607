package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cake-haven/internal/cart"
	"cake-haven/internal/domain"
	"cake-haven/internal/payment"
	"cake-haven/internal/repository"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

var (
	ErrEmptyCart       = errors.New("cart has no items")
	ErrMissingCustomer = errors.New("customer name, email and address are required")
)

// PlaceOrderInput carries the checkout form plus a snapshot of the cart at
// submission time. Total is computed client-side and stored as supplied.
type PlaceOrderInput struct {
	CustomerName string
	Email        string
	Phone        string
	Address      domain.Address
	Notes        string
	Lines        []cart.LineItem
	Total        float64
}

// CheckoutService drives order placement, payment session creation and the
// post-redirect order wait.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error)
	CreateSession(ctx context.Context, order *domain.Order) (*payment.Session, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// WaitForOrder polls for the order row on a fixed interval up to a
	// bounded number of attempts, returning as soon as the row is visible
	// regardless of its status. Exhaustion yields ErrOrderNotFound.
	WaitForOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type checkoutService struct {
	orderRepo       repository.OrderRepository
	sessions        payment.SessionClient
	baseURL         string
	pollInterval    time.Duration
	pollMaxAttempts int
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	orderRepo repository.OrderRepository,
	sessions payment.SessionClient,
	baseURL string,
	pollInterval time.Duration,
	pollMaxAttempts int,
) CheckoutService {
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	if pollMaxAttempts < 1 {
		pollMaxAttempts = 10
	}
	return &checkoutService{
		orderRepo:       orderRepo,
		sessions:        sessions,
		baseURL:         baseURL,
		pollInterval:    pollInterval,
		pollMaxAttempts: pollMaxAttempts,
	}
}

// PlaceOrder validates the checkout input and writes the order header plus
// one item row per cart line inside a single transaction, snapshotting
// name, price, quantity and image at submission time.
func (s *checkoutService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	if len(input.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if input.CustomerName == "" || input.Email == "" ||
		input.Address.Street == "" || input.Address.City == "" ||
		input.Address.State == "" || input.Address.Zip == "" {
		return nil, ErrMissingCustomer
	}

	order := &domain.Order{
		ID:           uuid.New(),
		CustomerName: input.CustomerName,
		Email:        input.Email,
		Phone:        input.Phone,
		Address:      input.Address,
		Total:        input.Total,
		Status:       domain.OrderStatusPending,
		Notes:        input.Notes,
		CreatedAt:    time.Now(),
	}

	items := make([]*domain.OrderItem, 0, len(input.Lines))
	for _, line := range input.Lines {
		items = append(items, &domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
			ImageURL:  line.ImageURL,
		})
	}

	if err := s.orderRepo.CreateWithItems(ctx, order, items); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	order.Items = items
	return order, nil
}

// CreateSession converts a placed order into a hosted payment session and
// returns the redirect target.
func (s *checkoutService) CreateSession(ctx context.Context, order *domain.Order) (*payment.Session, error) {
	lines := make([]payment.SessionLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payment.SessionLine{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			ImageURL: item.ImageURL,
		})
	}

	req := payment.SessionRequest{
		OrderID:       order.ID.String(),
		CustomerEmail: order.Email,
		Lines:         lines,
		SuccessURL:    fmt.Sprintf("%s/checkout/success?order=%s", s.baseURL, order.ID),
		CancelURL:     fmt.Sprintf("%s/checkout/cancel?order=%s", s.baseURL, order.ID),
	}

	session, err := s.sessions.CreateSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}

	return session, nil
}

// GetOrder retrieves an order with its items.
func (s *checkoutService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orderRepo.FindByID(ctx, id)
}

// WaitForOrder is the visibility-polling loop used after the customer is
// redirected back from the payment page. It does not wait for any specific
// status; the first visible row wins.
func (s *checkoutService) WaitForOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order *domain.Order

	backoff := retry.WithMaxRetries(uint64(s.pollMaxAttempts-1), retry.NewConstant(s.pollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		found, err := s.orderRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrOrderNotFound) {
				return retry.RetryableError(err)
			}
			return err
		}
		order = found
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, repository.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed waiting for order: %w", err)
	}

	return order, nil
}
