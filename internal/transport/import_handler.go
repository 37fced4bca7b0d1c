package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bortsbooks/internal/domain"
	"bortsbooks/internal/middleware"
	"bortsbooks/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxUploadMemory = 32 << 20

// ListingRequest imports a single marketplace listing by item number
type ListingRequest struct {
	ItemID      string `json:"item_id" validate:"required,listing_id"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Condition   string `json:"condition"`
}

// ListingResponse is the created product and the diagnostics of its image stage
type ListingResponse struct {
	ProductID string              `json:"product_id"`
	Product   *domain.Product     `json:"product"`
	Debug     *service.DebugEntry `json:"debug"`
}

// ImportHandler serves the bulk and single-listing import endpoints
type ImportHandler struct {
	importService service.ImportService
	timeout       time.Duration
	logger        *zap.Logger
}

// NewImportHandler creates a new ImportHandler. timeout bounds one import request.
func NewImportHandler(importService service.ImportService, timeout time.Duration, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		timeout:       timeout,
		logger:        logger,
	}
}

// RegisterRoutes mounts the import endpoints behind the admin middleware
func (h *ImportHandler) RegisterRoutes(r chi.Router, admin ...func(http.Handler) http.Handler) {
	r.Route("/api/admin/imports", func(r chi.Router) {
		r.Use(admin...)
		r.Post("/", h.ImportFile)
		r.Post("/listing", h.ImportListing)
	})
}

// ImportFile runs a bulk import of an uploaded CSV or XLSX export
func (h *ImportHandler) ImportFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.extendDeadline(w, r)
	defer cancel()

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.logger.Debug("Upload could not be parsed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "no file uploaded")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	opts := service.ImportOptions{
		FetchImages: formFlag(r, "fetch_images"),
		Debug:       formFlag(r, "debug"),
	}

	result, err := h.importService.ImportFile(ctx, header.Filename, file, opts)
	if err != nil {
		h.logger.Warn("Upload rejected",
			zap.String("file", header.Filename),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// ImportListing imports one listing with image fetching enabled
func (h *ImportHandler) ImportListing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.extendDeadline(w, r)
	defer cancel()

	var req ListingRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	product, entry, err := h.importService.ImportListing(ctx, service.ListingInput{
		ItemID:      req.ItemID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Condition:   req.Condition,
	})
	if err != nil {
		if errors.Is(err, service.ErrListingAlreadyImported) {
			middleware.RespondWithError(w, http.StatusConflict, "listing already imported")
			return
		}

		h.logger.Error("Listing import failed", zap.String("item_id", req.ItemID), zap.Error(err))
		middleware.RespondWithErrorDetails(w, http.StatusInternalServerError, "failed to import listing", map[string]any{
			"debug": entry,
		})
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, ListingResponse{
		ProductID: product.ID.String(),
		Product:   product,
		Debug:     entry,
	})
}

// extendDeadline lifts the server write timeout for long imports and bounds the work instead
func (h *ImportHandler) extendDeadline(w http.ResponseWriter, r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(h.timeout + 5*time.Second)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("Failed to extend write deadline", zap.Error(err))
	}
	return context.WithTimeout(r.Context(), h.timeout)
}
