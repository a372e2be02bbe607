package transport

import (
	"errors"
	"net/http"
	"time"

	"cake-haven/internal/domain"
	"cake-haven/internal/middleware"
	"cake-haven/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UpdateOrderStatusRequest moves an order through its lifecycle.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminNotesRequest replaces the internal notes on an order.
type AdminNotesRequest struct {
	Notes string `json:"notes"`
}

// DashboardResponse is the back-office landing page payload.
type DashboardResponse struct {
	SalesToday   float64                    `json:"sales_today"`
	SalesWeek    float64                    `json:"sales_week"`
	LowStock     []*domain.Product          `json:"low_stock"`
	TopProducts  []*repository.ProductSales `json:"top_products"`
	RecentOrders []*domain.Order            `json:"recent_orders"`
}

// OrderListResponse is a paginated order listing.
type OrderListResponse struct {
	Orders   []*domain.Order `json:"orders"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// AdminHandler handles back-office order management and the dashboard.
type AdminHandler struct {
	orders            repository.OrderRepository
	products          repository.ProductRepository
	lowStockThreshold int
	logger            *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(orders repository.OrderRepository, products repository.ProductRepository, lowStockThreshold int, logger *zap.Logger) *AdminHandler {
	if lowStockThreshold < 1 {
		lowStockThreshold = 5
	}
	return &AdminHandler{
		orders:            orders,
		products:          products,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

// RegisterRoutes registers all back-office routes behind auth + admin checks.
func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(adminMiddleware)

		r.Get("/dashboard", h.Dashboard)
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{id}", h.GetOrder)
		r.Patch("/orders/{id}/status", h.UpdateOrderStatus)
		r.Patch("/orders/{id}/notes", h.SetOrderNotes)
	})
}

// Dashboard aggregates sales totals, low stock alerts, best sellers and the
// latest orders.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfWeek := startOfDay.AddDate(0, 0, -6)

	salesToday, err := h.orders.SalesTotalSince(ctx, startOfDay)
	if err != nil {
		h.logger.Error("Failed to load daily sales", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	salesWeek, err := h.orders.SalesTotalSince(ctx, startOfWeek)
	if err != nil {
		h.logger.Error("Failed to load weekly sales", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	lowStock, err := h.products.LowStock(ctx, h.lowStockThreshold, 10)
	if err != nil {
		h.logger.Error("Failed to load low stock products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	topProducts, err := h.orders.TopProducts(ctx, 5)
	if err != nil {
		h.logger.Error("Failed to load top products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	recentOrders, err := h.orders.RecentOrders(ctx, 10)
	if err != nil {
		h.logger.Error("Failed to load recent orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, DashboardResponse{
		SalesToday:   salesToday,
		SalesWeek:    salesWeek,
		LowStock:     lowStock,
		TopProducts:  topProducts,
		RecentOrders: recentOrders,
	})
}

// ListOrders returns orders filtered by status and customer search.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)
	if pageSize > 100 {
		pageSize = 100
	}

	filter := repository.OrderFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}

	if filter.Status != "" && !domain.ValidOrderStatus(domain.OrderStatus(filter.Status)) {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order status filter")
		return
	}

	orders, total, err := h.orders.List(r.Context(), filter, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, OrderListResponse{
		Orders:   orders,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetOrder returns one order with its items.
func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orders.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("Failed to get order", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus applies a lifecycle transition requested by an admin.
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := domain.OrderStatus(req.Status)
	if !domain.ValidOrderStatus(status) {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order status")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		if errors.Is(err, repository.ErrInvalidTransition) {
			middleware.RespondWithError(w, http.StatusConflict, "order status transition not allowed")
			return
		}
		h.logger.Error("Failed to update order status", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update order status")
		return
	}

	h.logger.Info("Order status updated",
		zap.String("order_id", id.String()),
		zap.String("status", req.Status),
	)

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// SetOrderNotes replaces the internal notes on an order.
func (h *AdminHandler) SetOrderNotes(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req AdminNotesRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.orders.SetAdminNotes(r.Context(), id, req.Notes); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("Failed to set order notes", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to set order notes")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "notes updated"})
}
