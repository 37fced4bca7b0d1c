package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bortsbooks/internal/domain"
	"bortsbooks/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	AdminRole = "admin"

	MinPasswordLength = 8
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// AdminService authenticates back-office operators
type AdminService interface {
	CreateAdmin(ctx context.Context, email, password string) (*domain.AdminUser, error)
	Login(ctx context.Context, email, password string) (accessToken string, admin *domain.AdminUser, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents the JWT claims
type Claims struct {
	AdminID uuid.UUID `json:"admin_id"`
	Role    string    `json:"role"`
	jwt.RegisteredClaims
}

type adminService struct {
	adminRepo   repository.AdminRepository
	jwtSecret   string
	tokenExpiry time.Duration
}

// NewAdminService creates a new instance of AdminService
func NewAdminService(adminRepo repository.AdminRepository, jwtSecret string, tokenExpiry time.Duration) AdminService {
	if tokenExpiry <= 0 {
		tokenExpiry = 15 * time.Minute
	}
	return &adminService{
		adminRepo:   adminRepo,
		jwtSecret:   jwtSecret,
		tokenExpiry: tokenExpiry,
	}
}

// CreateAdmin seeds an operator account with a bcrypt-hashed password
func (s *adminService) CreateAdmin(ctx context.Context, email, password string) (*domain.AdminUser, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	admin := &domain.AdminUser{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrAdminAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	return admin, nil
}

// Login authenticates an admin and returns a signed access token
func (s *adminService) Login(ctx context.Context, email, password string) (string, *domain.AdminUser, error) {
	admin, err := s.adminRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to find admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateAccessToken(admin)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return token, admin, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *adminService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *adminService) generateAccessToken(admin *domain.AdminUser) (string, error) {
	now := time.Now()
	claims := &Claims{
		AdminID: admin.ID,
		Role:    AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
