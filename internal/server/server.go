package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bortsbooks/internal/config"
	"bortsbooks/internal/database"
	custommiddleware "bortsbooks/internal/middleware"
	"bortsbooks/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	loginAttemptsPerWindow = 10
	loginWindow            = 15 * time.Minute
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client, services *Services) *Server {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger.Named("http")))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))

	server := &Server{
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	router.Get("/health", server.health)

	if strings.EqualFold(cfg.Storage.Driver, "local") || cfg.Storage.Driver == "" {
		files := http.FileServer(http.Dir(cfg.Storage.LocalRoot))
		router.Handle("/uploads/*", http.StripPrefix("/uploads/", files))
	}

	admin := []func(http.Handler) http.Handler{
		custommiddleware.AuthMiddleware(services.Admin, logger),
		custommiddleware.RequireAdmin(logger),
	}
	loginLimiter := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: loginAttemptsPerWindow,
		Window:            loginWindow,
		KeyPrefix:         "bortsbooks:login",
	}, logger)

	transport.NewAdminHandler(services.Admin, logger).RegisterRoutes(router, loginLimiter)
	transport.NewImportHandler(services.Import, cfg.Server.ImportRequestTimeout, logger).RegisterRoutes(router, admin...)
	transport.NewProductHandler(services.Product, logger).RegisterRoutes(router, admin...)

	server.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  time.Minute,
		WriteTimeout: 30 * time.Second,
	}

	return server
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	dbHealth := s.db.Health(r.Context())

	redisStatus := "up"
	if err := s.redis.Ping(r.Context()).Err(); err != nil {
		redisStatus = "down"
	}

	status := http.StatusOK
	if dbHealth["status"] != "up" {
		status = http.StatusServiceUnavailable
	}

	custommiddleware.RespondWithJSON(w, status, map[string]any{
		"status":   http.StatusText(status),
		"database": dbHealth,
		"redis":    redisStatus,
	})
}

// Close releases the database pool and the redis client once the server has shut down
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
	}
	if err := s.redis.Close(); err != nil {
		s.logger.Error("Failed to close redis client", zap.Error(err))
	}

	_ = s.logger.Sync()
	return nil
}

// NewRedisClient builds the client used for login rate limiting
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// PingRedis reports whether redis answers within a short deadline
func PingRedis(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}
