package transport

import (
	"errors"
	"net/http"
	"strings"

	"bortsbooks/internal/domain"
	"bortsbooks/internal/middleware"
	"bortsbooks/internal/repository"
	"bortsbooks/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProductListResponse is one page of the catalog
type ProductListResponse struct {
	Products []*domain.Product `json:"products"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Total    int               `json:"total"`
}

// ProductHandler serves the catalog and image management endpoints
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes mounts public catalog reads and admin image management
func (h *ProductHandler) RegisterRoutes(r chi.Router, admin ...func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)
	})

	r.Route("/api/admin/products/{id}/images/{imageID}", func(r chi.Router) {
		r.Use(admin...)
		r.Put("/main", h.SetMainImage)
		r.Delete("/", h.DeleteImage)
	})
}

// ListProducts returns a page of products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := min(queryInt(r, "page_size", defaultPageSize), maxPageSize)

	sortOrder := repository.SortOrderDesc
	if strings.EqualFold(r.URL.Query().Get("sort_order"), "asc") {
		sortOrder = repository.SortOrderAsc
	}

	products, total, err := h.productService.ListProducts(r.Context(), page, pageSize, r.URL.Query().Get("sort_by"), sortOrder)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	if products == nil {
		products = []*domain.Product{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
		Products: products,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
}

// GetProduct returns a product with its images, main image first
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, err, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// SetMainImage makes one image the product's main image and returns the updated product
func (h *ProductHandler) SetMainImage(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	imageID, ok := uuidParam(w, r, "imageID")
	if !ok {
		return
	}

	if err := h.productService.SetMainImage(r.Context(), productID, imageID); err != nil {
		h.respondWithServiceError(w, err, "failed to set main image")
		return
	}

	h.logger.Info("Main image changed",
		zap.String("product_id", productID.String()),
		zap.String("image_id", imageID.String()),
	)

	product, err := h.productService.GetProduct(r.Context(), productID)
	if err != nil {
		h.respondWithServiceError(w, err, "failed to get product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeleteImage removes an image record and its stored file
func (h *ProductHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	imageID, ok := uuidParam(w, r, "imageID")
	if !ok {
		return
	}

	if err := h.productService.DeleteImage(r.Context(), productID, imageID); err != nil {
		h.respondWithServiceError(w, err, "failed to delete image")
		return
	}

	h.logger.Info("Image deleted",
		zap.String("product_id", productID.String()),
		zap.String("image_id", imageID.String()),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) respondWithServiceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrProductImageNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "image not found")
	default:
		h.logger.Error(message, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, message)
	}
}
