package transport

import (
	"errors"
	"net/http"

	"cake-haven/internal/cart"
	"cake-haven/internal/domain"
	"cake-haven/internal/middleware"
	"cake-haven/internal/repository"
	"cake-haven/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutItemRequest is one cart line in the checkout submission, carrying
// the client's snapshot of the product at submission time.
type CheckoutItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Name      string  `json:"name" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"required,gte=1"`
	ImageURL  string  `json:"image_url"`
}

// CheckoutRequest is the full checkout submission.
type CheckoutRequest struct {
	CustomerName string                `json:"customer_name" validate:"required"`
	Email        string                `json:"email" validate:"required,email"`
	Phone        string                `json:"phone"`
	Street       string                `json:"street" validate:"required"`
	City         string                `json:"city" validate:"required"`
	State        string                `json:"state" validate:"required"`
	Zip          string                `json:"zip" validate:"required"`
	Notes        string                `json:"notes"`
	Items        []CheckoutItemRequest `json:"items" validate:"required,min=1,dive"`
	Total        float64               `json:"total" validate:"gte=0"`
}

// CheckoutResponse returns the placed order id and the payment redirect.
type CheckoutResponse struct {
	OrderID    string `json:"order_id"`
	SessionID  string `json:"session_id"`
	SessionURL string `json:"session_url"`
}

// CheckoutHandler handles order placement, payment session creation and the
// post-payment order lookup.
type CheckoutHandler struct {
	checkout  service.CheckoutService
	cartStore cart.Store
	logger    *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkout service.CheckoutService, cartStore cart.Store, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, cartStore: cartStore, logger: logger}
}

// RegisterRoutes registers checkout and order lookup routes.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, rateLimiter func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if rateLimiter != nil {
			r.Use(rateLimiter)
		}
		r.Post("/api/checkout", h.Checkout)
	})
	r.Get("/api/orders/{id}", h.GetOrder)
	r.Get("/api/orders/{id}/wait", h.WaitForOrder)
}

// Checkout places the order and creates the hosted payment session. The
// persisted cart is cleared only after a redirect URL is in hand, so a
// session failure does not silently lose the cart.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]cart.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id in cart")
			return
		}
		lines = append(lines, cart.LineItem{
			ProductID: productID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
		})
	}

	order, err := h.checkout.PlaceOrder(r.Context(), service.PlaceOrderInput{
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      addressFromRequest(req),
		Notes:        req.Notes,
		Lines:        lines,
		Total:        req.Total,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) || errors.Is(err, service.ErrMissingCustomer) {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Order placement failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to place order")
		return
	}

	session, err := h.checkout.CreateSession(r.Context(), order)
	if err != nil {
		h.logger.Error("Payment session creation failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusBadGateway, "failed to create payment session")
		return
	}

	// Redirect URL obtained; now the persisted cart can go.
	if cartID, err := uuid.Parse(r.Header.Get(cartIDHeader)); err == nil {
		if err := h.cartStore.Clear(r.Context(), cartID); err != nil {
			h.logger.Debug("Failed to clear cart after checkout",
				zap.String("cart_id", cartID.String()),
				zap.Error(err),
			)
		}
	}

	h.logger.Info("Checkout session created",
		zap.String("order_id", order.ID.String()),
		zap.String("session_id", session.ID),
	)

	middleware.RespondWithJSON(w, http.StatusCreated, CheckoutResponse{
		OrderID:    order.ID.String(),
		SessionID:  session.ID,
		SessionURL: session.URL,
	})
}

// GetOrder returns an order with its items.
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.checkout.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("Failed to get order", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	// Back-office notes stay off the storefront surface.
	order.AdminNotes = ""
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// WaitForOrder blocks until the order row becomes visible or the bounded
// polling budget runs out, then renders the order or a not-found state.
func (h *CheckoutHandler) WaitForOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.checkout.WaitForOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("Failed waiting for order", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	order.AdminNotes = ""
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func addressFromRequest(req CheckoutRequest) domain.Address {
	return domain.Address{
		Street: req.Street,
		City:   req.City,
		State:  req.State,
		Zip:    req.Zip,
	}
}
