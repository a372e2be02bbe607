package transport

import (
	"errors"
	"net/http"

	"cake-haven/internal/cart"
	"cake-haven/internal/middleware"
	"cake-haven/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cartIDHeader carries the browser-held cart identifier. The storefront
// generates one per browser profile and sends it on every cart call.
const cartIDHeader = "X-Cart-ID"

// AddItemRequest asks for qty units of a product.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

// UpdateItemRequest changes a line's quantity.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required"`
}

// CartResponse is the cart with its derived totals.
type CartResponse struct {
	CartID     string          `json:"cart_id"`
	Items      []cart.LineItem `json:"items"`
	TotalCount int             `json:"total_count"`
	TotalPrice float64         `json:"total_price"`
}

// CartHandler handles HTTP requests for the shopping cart.
type CartHandler struct {
	store    cart.Store
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(store cart.Store, products repository.ProductRepository, logger *zap.Logger) *CartHandler {
	return &CartHandler{store: store, products: products, logger: logger}
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/items", h.AddItem)
		r.Put("/items/{productID}", h.UpdateItem)
		r.Delete("/items/{productID}", h.RemoveItem)
		r.Delete("/", h.Clear)
	})
}

func (h *CartHandler) loadCart(w http.ResponseWriter, r *http.Request) (*cart.Cart, bool) {
	id, err := uuid.Parse(r.Header.Get(cartIDHeader))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing or invalid X-Cart-ID header")
		return nil, false
	}
	return cart.Load(r.Context(), id, h.store, h.logger), true
}

func (h *CartHandler) respond(w http.ResponseWriter, c *cart.Cart) {
	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{
		CartID:     c.ID().String(),
		Items:      c.Lines(),
		TotalCount: c.TotalCount(),
		TotalPrice: c.TotalPrice(),
	})
}

// Get returns the current cart contents and totals.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCart(w, r)
	if !ok {
		return
	}
	h.respond(w, c)
}

// AddItem snapshots the product from the catalog and merges it into the
// cart. The stock captured here is only an advisory clamp bound.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.products.FindByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to load product for cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}

	if !product.IsActive {
		middleware.RespondWithError(w, http.StatusConflict, "product is not available")
		return
	}

	c.Add(r.Context(), cart.LineItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		ImageURL:  product.ImageURL,
		Stock:     product.Stock,
	}, req.Quantity)

	h.respond(w, c)
}

// UpdateItem clamps the line quantity to [1, stock snapshot]. Unknown
// products are a no-op, mirroring the cart contract.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req UpdateItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c.UpdateQty(r.Context(), productID, req.Quantity)
	h.respond(w, c)
}

// RemoveItem deletes a line; unknown products are a no-op.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	c.Remove(r.Context(), productID)
	h.respond(w, c)
}

// Clear empties the cart and removes its persisted state.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCart(w, r)
	if !ok {
		return
	}

	c.Clear(r.Context())
	h.respond(w, c)
}
