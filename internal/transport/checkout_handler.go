package transport

import (
	"errors"
	"net/http"

	"merchstore/internal/domain"
	"merchstore/internal/middleware"
	"merchstore/internal/payment"
	"merchstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SupportMessage is shown whenever a payment reference exists but the order
// could not be fully written. It must be distinguishable from both a plain
// success and a generic error.
const SupportMessage = "Your payment was received but your order could not be completed automatically. Please contact support and quote your payment reference."

// CheckoutItemRequest is one cart line in the checkout payload.
type CheckoutItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid4"`
	Quantity  int     `json:"quantity" validate:"required,gte=1"`
	Price     float64 `json:"price" validate:"required,gt=0"`
	Color     string  `json:"color"`
	Size      string  `json:"size"`
}

// ShippingAddressRequest is the structured delivery destination.
type ShippingAddressRequest struct {
	FullName   string `json:"full_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state"`
	Country    string `json:"country" validate:"required"`
	PostalCode string `json:"postal_code"`
}

// CheckoutRequest is the full checkout payload.
type CheckoutRequest struct {
	Items            []CheckoutItemRequest  `json:"items" validate:"required,min=1,dive"`
	Subtotal         float64                `json:"subtotal" validate:"gte=0"`
	ShippingCost     float64                `json:"shipping_cost" validate:"gte=0"`
	ShippingAddress  ShippingAddressRequest `json:"shipping_address" validate:"required"`
	PaymentReference string                 `json:"payment_reference"`
}

// StockCheckRequest is the advisory validation payload.
type StockCheckRequest struct {
	Items []StockCheckItem `json:"items" validate:"required,min=1,dive"`
}

// StockCheckItem is one line of an advisory stock check.
type StockCheckItem struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// StockCheckResponse reports per-item availability.
type StockCheckResponse struct {
	Reports      []service.StockReport `json:"reports"`
	AllAvailable bool                  `json:"all_available"`
}

// CheckoutResponse is the successful checkout payload.
type CheckoutResponse struct {
	Order            *domain.Order `json:"order"`
	Incomplete       bool          `json:"incomplete"`
	PaymentReference string        `json:"payment_reference,omitempty"`
	SupportMessage   string        `json:"support_message,omitempty"`
}

// CheckoutHandler handles the checkout write path.
type CheckoutHandler struct {
	checkout *service.CheckoutService
	stock    *service.StockValidator
	payments *payment.Client
	logger   *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(
	checkout *service.CheckoutService,
	stock *service.StockValidator,
	payments *payment.Client,
	logger *zap.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		stock:    stock,
		payments: payments,
		logger:   logger,
	}
}

// RegisterRoutes registers the checkout routes. Both endpoints accept
// guests, so they sit behind the optional auth middleware.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, optionalAuth func(http.Handler) http.Handler, extra ...func(http.Handler) http.Handler) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(optionalAuth)
		for _, mw := range extra {
			r.Use(mw)
		}
		r.Post("/validate", h.ValidateStock)
		r.Post("/", h.Checkout)
	})
}

// ValidateStock is the advisory, UI-facing stock check. It never gates
// persistence; the authoritative check runs again inside the order writer.
func (h *CheckoutHandler) ValidateStock(w http.ResponseWriter, r *http.Request) {
	var req StockCheckRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	requests := make([]service.StockRequest, len(req.Items))
	for i, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
			return
		}
		requests[i] = service.StockRequest{ProductID: productID, Quantity: item.Quantity}
	}

	reports := h.stock.Validate(r.Context(), requests)

	allAvailable := true
	for _, report := range reports {
		if !report.HasEnoughStock {
			allAvailable = false
			break
		}
	}

	middleware.RespondWithJSON(w, http.StatusOK, StockCheckResponse{
		Reports:      reports,
		AllAvailable: allAvailable,
	})
}

// Checkout runs the order writer. Response states:
//   - 201: order written (possibly incomplete, then with support message);
//   - 409: insufficient stock, naming the items, carrying the payment
//     reference when payment had already completed;
//   - 422: the supplied payment reference is definitively invalid;
//   - 502: transient failure, retryable, reference preserved.
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

	lines := make([]domain.CartLine, len(req.Items))
	for i, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
			return
		}
		lines[i] = domain.CartLine{
			ProductID: productID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Color:     item.Color,
			Size:      item.Size,
		}
	}

	// Guest checkout is a valid state; userID stays nil without a session.
	var userID *uuid.UUID
	if idStr, ok := middleware.GetUserID(r.Context()); ok {
		if id, err := uuid.Parse(idStr); err == nil {
			userID = &id
		}
	}

	if req.PaymentReference != "" && h.payments.Enabled() {
		if ok := h.verifyPayment(w, r, req.PaymentReference); !ok {
			return
		}
	}

	result, err := h.checkout.PlaceOrder(r.Context(), userID, service.CheckoutInput{
		Lines:            lines,
		Subtotal:         req.Subtotal,
		ShippingCost:     req.ShippingCost,
		ShippingAddress:  domain.ShippingAddress(req.ShippingAddress),
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}

	resp := CheckoutResponse{
		Order:      result.Order,
		Incomplete: result.Incomplete,
	}
	if result.Incomplete && result.Order.PaymentReference != "" {
		resp.PaymentReference = result.Order.PaymentReference
		resp.SupportMessage = SupportMessage
	}

	middleware.RespondWithJSON(w, http.StatusCreated, resp)
}

// verifyPayment resolves the popup's reference against the gateway. Only a
// definitive negative blocks the checkout; an unreachable gateway does not,
// because the popup already reported success and the reference is preserved
// on the order for reconciliation.
func (h *CheckoutHandler) verifyPayment(w http.ResponseWriter, r *http.Request, reference string) bool {
	verification, err := h.payments.Verify(r.Context(), reference)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrUnknownReference):
			middleware.RespondWithError(w, http.StatusUnprocessableEntity, "unknown payment reference")
			return false
		case errors.Is(err, payment.ErrUnauthorized):
			h.logger.Error("Payment gateway rejected credentials", zap.Error(err))
			return true
		default:
			h.logger.Warn("Payment verification unavailable, accepting reference as-is",
				zap.String("reference", reference),
				zap.Error(err),
			)
			return true
		}
	}

	if !verification.Paid {
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "payment was not successful")
		return false
	}

	return true
}

func (h *CheckoutHandler) respondCheckoutError(w http.ResponseWriter, err error) {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		details := map[string]interface{}{
			"items": stockErr.Items,
		}
		if stockErr.PaymentReference != "" {
			details["payment_reference"] = stockErr.PaymentReference
			details["support_message"] = SupportMessage
		}
		middleware.RespondWithErrorDetails(w, http.StatusConflict, stockErr.Error(), details)
		return
	}

	var writeErr *service.OrderWriteError
	if errors.As(err, &writeErr) {
		h.logger.Error("Order write failed", zap.Error(writeErr))
		details := map[string]interface{}{}
		if writeErr.PaymentReference != "" {
			details["payment_reference"] = writeErr.PaymentReference
			details["support_message"] = SupportMessage
		}
		middleware.RespondWithRetryableError(w, http.StatusBadGateway, "order could not be saved", details)
		return
	}

	if errors.Is(err, service.ErrEmptyCart) {
		middleware.RespondWithError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	h.logger.Error("Checkout failed", zap.Error(err))
	middleware.RespondWithRetryableError(w, http.StatusBadGateway, "checkout failed", nil)
}
