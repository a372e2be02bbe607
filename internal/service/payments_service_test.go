package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cake-haven/internal/domain"
	"cake-haven/internal/payment"
	"cake-haven/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74/webhook"
	"go.uber.org/zap"
)

const testSigningSecret = "whsec_test_secret"

type mockProductRepository struct {
	stock      map[uuid.UUID]int
	decrements int
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{stock: make(map[uuid.UUID]int)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.stock[product.ID] = product.Stock
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	return nil
}

func (m *mockProductRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	stock, ok := m.stock[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &domain.Product{ID: id, Stock: stock}, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	return nil, 0, nil
}

func (m *mockProductRepository) LowStock(ctx context.Context, threshold, limit int) ([]*domain.Product, error) {
	return nil, nil
}

func (m *mockProductRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	stock, ok := m.stock[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	stock -= qty
	if stock < 0 {
		stock = 0
	}
	m.stock[id] = stock
	m.decrements++
	return nil
}

func signedEvent(t *testing.T, eventType string, orderID uuid.UUID) ([]byte, string) {
	t.Helper()

	body := fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": "2022-11-15",
		"type": %q,
		"data": {
			"object": {
				"id": "cs_test_1",
				"object": "checkout.session",
				"metadata": {"orderId": %q, "customerEmail": "ada@example.com"}
			}
		}
	}`, eventType, orderID)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(body),
		Secret:    testSigningSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func paidFixture(t *testing.T) (*mockOrderRepository, *mockProductRepository, PaymentsService, *domain.Order) {
	t.Helper()

	orderRepo := newMockOrderRepository()
	productRepo := newMockProductRepository()

	productA := uuid.New()
	productB := uuid.New()
	productRepo.stock[productA] = 10
	productRepo.stock[productB] = 2

	order := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending, Total: 31.5}
	orderRepo.orders[order.ID] = order
	orderRepo.items[order.ID] = []*domain.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, ProductID: productA, Name: "Chocolate Cake", Quantity: 2},
		{ID: uuid.New(), OrderID: order.ID, ProductID: productB, Name: "Croissant", Quantity: 5},
	}

	svc := NewPaymentsService(
		payment.NewStripeEventVerifier(testSigningSecret),
		orderRepo,
		productRepo,
		zap.NewNop(),
	)
	return orderRepo, productRepo, svc, order
}

func TestHandleNotificationMarksPaidAndDecrementsStock(t *testing.T) {
	orderRepo, productRepo, svc, order := paidFixture(t)

	payload, sig := signedEvent(t, "checkout.session.completed", order.ID)
	require.NoError(t, svc.HandleNotification(context.Background(), payload, sig))

	assert.Equal(t, domain.OrderStatusPaid, orderRepo.orders[order.ID].Status)
	assert.Equal(t, 2, productRepo.decrements)

	items := orderRepo.items[order.ID]
	assert.Equal(t, 8, productRepo.stock[items[0].ProductID])
	// Decrement clamps at zero rather than going negative.
	assert.Equal(t, 0, productRepo.stock[items[1].ProductID])
}

func TestHandleNotificationRejectsForgedSignature(t *testing.T) {
	orderRepo, productRepo, svc, order := paidFixture(t)

	payload, _ := signedEvent(t, "checkout.session.completed", order.ID)
	err := svc.HandleNotification(context.Background(), payload, "t=123,v1=deadbeef")

	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	assert.Equal(t, domain.OrderStatusPending, orderRepo.orders[order.ID].Status)
	assert.Equal(t, 0, productRepo.decrements)
}

func TestHandleNotificationIsIdempotentOnRedelivery(t *testing.T) {
	orderRepo, productRepo, svc, order := paidFixture(t)

	payload, sig := signedEvent(t, "checkout.session.completed", order.ID)
	require.NoError(t, svc.HandleNotification(context.Background(), payload, sig))
	require.NoError(t, svc.HandleNotification(context.Background(), payload, sig))

	assert.Equal(t, domain.OrderStatusPaid, orderRepo.orders[order.ID].Status)
	// Second delivery must not decrement again.
	assert.Equal(t, 2, productRepo.decrements)
}

func TestHandleNotificationIgnoresOtherEventTypes(t *testing.T) {
	orderRepo, productRepo, svc, order := paidFixture(t)

	payload, sig := signedEvent(t, "payment_intent.created", order.ID)
	require.NoError(t, svc.HandleNotification(context.Background(), payload, sig))

	assert.Equal(t, domain.OrderStatusPending, orderRepo.orders[order.ID].Status)
	assert.Equal(t, 0, productRepo.decrements)
}

func TestHandleNotificationRejectsMissingOrderID(t *testing.T) {
	_, _, svc, _ := paidFixture(t)

	body := `{
		"id": "evt_test_2",
		"object": "event",
		"api_version": "2022-11-15",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_2",
				"object": "checkout.session",
				"metadata": {}
			}
		}
	}`
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(body),
		Secret:    testSigningSecret,
		Timestamp: time.Now(),
	})

	err := svc.HandleNotification(context.Background(), signed.Payload, signed.Header)
	assert.Error(t, err)
}
