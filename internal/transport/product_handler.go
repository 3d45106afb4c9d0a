package transport

import (
	"errors"
	"net/http"
	"strconv"

	"merchstore/internal/domain"
	"merchstore/internal/middleware"
	"merchstore/internal/repository"
	"merchstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UpdateGalleryRequest replaces the gallery image list of a product.
// An empty list clears the gallery, so no minimum is enforced.
type UpdateGalleryRequest struct {
	Images []string `json:"images"`
}

// ProductDetailResponse is the catalog detail view, with the gallery merged
// from the row and the fallback cache, and colors resolved.
type ProductDetailResponse struct {
	Product *domain.Product        `json:"product"`
	Colors  []*domain.ProductColor `json:"colors"`
}

// ProductListResponse is a page of catalog products.
type ProductListResponse struct {
	Products []*domain.Product `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ProductHandler handles catalog reads and admin gallery writes.
type ProductHandler struct {
	products repository.ProductRepository
	colors   repository.ProductColorRepository
	gallery  *service.GalleryService
	logger   *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(
	products repository.ProductRepository,
	colors repository.ProductColorRepository,
	gallery *service.GalleryService,
	logger *zap.Logger,
) *ProductHandler {
	return &ProductHandler{
		products: products,
		colors:   colors,
		gallery:  gallery,
		logger:   logger,
	}
}

// RegisterRoutes registers the product routes.
func (h *ProductHandler) RegisterRoutes(r chi.Router, requireAuth, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(requireAdmin)
			r.Put("/{id}/gallery", h.UpdateGallery)
		})
	})
}

// List returns a catalog page, newest products first.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	products, total, err := h.products.List(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("Product list failed", zap.Error(err))
		middleware.RespondWithRetryableError(w, http.StatusBadGateway, "products could not be loaded", nil)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
		Products: products,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// Get returns one product with its colors and merged gallery. A gallery
// that only exists in the fallback cache is still displayed.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.products.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Product read failed", zap.String("product_id", id.String()), zap.Error(err))
		middleware.RespondWithRetryableError(w, http.StatusBadGateway, "product could not be loaded", nil)
		return
	}

	// Best-effort merge; the product read already succeeded.
	if merged, err := h.gallery.LoadGallery(r.Context(), id); err == nil {
		product.GalleryImages = merged
	} else {
		h.logger.Warn("Gallery merge failed", zap.String("product_id", id.String()), zap.Error(err))
	}

	colors, err := h.colors.ListByProductID(r.Context(), id)
	if err != nil {
		h.logger.Warn("Color variants read failed", zap.String("product_id", id.String()), zap.Error(err))
		colors = []*domain.ProductColor{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductDetailResponse{
		Product: product,
		Colors:  colors,
	})
}

// UpdateGallery replaces a product's gallery list through the reconciler
// (admin only). The write succeeds as long as the fallback cache took it,
// even when the remote column is missing.
func (h *ProductHandler) UpdateGallery(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req UpdateGalleryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.gallery.SaveGallery(r.Context(), id, req.Images); err != nil {
		h.logger.Error("Gallery save failed", zap.String("product_id", id.String()), zap.Error(err))
		middleware.RespondWithRetryableError(w, http.StatusBadGateway, "gallery could not be saved", nil)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": id.String(),
		"images":     req.Images,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
