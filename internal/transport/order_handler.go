package transport

import (
	"errors"
	"net/http"

	"merchstore/internal/domain"
	"merchstore/internal/middleware"
	"merchstore/internal/repository"
	"merchstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UpdateStatusRequest advances an order's lifecycle state.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderHandler handles the order read path and admin status updates.
type OrderHandler struct {
	reader *service.OrderReader
	orders repository.OrderRepository
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(reader *service.OrderReader, orders repository.OrderRepository, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{reader: reader, orders: orders, logger: logger}
}

// RegisterRoutes registers the order routes.
func (h *OrderHandler) RegisterRoutes(r chi.Router, optionalAuth, requireAuth, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		// Confirmation pages work for guests, so the single-order read
		// only needs an optional session.
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/{id}", h.GetOrder)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", h.ListMyOrders)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(requireAdmin)
			r.Patch("/{id}/status", h.UpdateStatus)
		})
	})
}

// GetOrder reconstructs one order. "Order not found" (404) is deliberately
// distinct from a transient failure (502): the confirmation UI renders
// different states for a missing order versus a read it should retry.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	view, err := h.reader.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("Order read failed", zap.String("order_id", id.String()), zap.Error(err))
		middleware.RespondWithRetryableError(w, http.StatusBadGateway, "order could not be loaded", nil)
		return
	}

	if !h.canView(r, view.Order) {
		// Don't reveal that the order exists.
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// ListMyOrders returns the authenticated user's full history. Guest orders
// are never associated with a later-authenticated session, so they do not
// appear here.
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	idStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	userID, err := uuid.Parse(idStr)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	views, err := h.reader.ListUserOrders(r.Context(), userID)
	if err != nil {
		h.logger.Error("Order history read failed", zap.String("user_id", idStr), zap.Error(err))
		middleware.RespondWithRetryableError(w, http.StatusBadGateway, "orders could not be loaded", nil)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, views)
}

// UpdateStatus advances the order lifecycle (admin only).
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req UpdateStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := domain.OrderStatus(req.Status)
	if !status.Valid() {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order status")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("Order status update failed", zap.String("order_id", id.String()), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update order status")
		return
	}

	h.logger.Info("Order status updated",
		zap.String("order_id", id.String()),
		zap.String("status", req.Status),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"id": id.String(), "status": req.Status})
}

// canView allows the order's owner, any admin, and (for guest orders)
// anyone holding the order id.
func (h *OrderHandler) canView(r *http.Request, order domain.Order) bool {
	if order.UserID == nil {
		return true
	}
	if role, ok := middleware.GetUserRole(r.Context()); ok && role == "admin" {
		return true
	}
	idStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		return false
	}
	return idStr == order.UserID.String()
}
