package transport

import (
	"errors"
	"net/http"

	"bortsbooks/internal/middleware"
	"bortsbooks/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the access token and the authenticated admin
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	Admin       AdminProfile `json:"admin"`
}

type AdminProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AdminHandler handles back-office authentication
type AdminHandler struct {
	adminService service.AdminService
	logger       *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(adminService service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

// RegisterRoutes mounts the login endpoint behind the given limiter
func (h *AdminHandler) RegisterRoutes(r chi.Router, limiter func(http.Handler) http.Handler) {
	r.With(limiter).Post("/api/admin/login", h.Login)
}

// Login handles admin authentication
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	accessToken, admin, err := h.adminService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Info("Admin login rejected", zap.String("email", req.Email))
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		h.logger.Error("Admin login failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	h.logger.Info("Admin logged in", zap.String("admin_id", admin.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		AccessToken: accessToken,
		Admin: AdminProfile{
			ID:    admin.ID.String(),
			Email: admin.Email,
		},
	})
}
