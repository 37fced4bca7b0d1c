package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bortsbooks/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrAdminAlreadyExists = errors.New("admin with this email already exists")
)

const uniqueViolation = "23505"

// AdminRepository defines the interface for admin account data access
type AdminRepository interface {
	Create(ctx context.Context, admin *domain.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.AdminUser, error)
}

type adminRepository struct {
	db *sql.DB
}

// NewAdminRepository creates a new instance of AdminRepository
func NewAdminRepository(db *sql.DB) AdminRepository {
	return &adminRepository{db: db}
}

// Create inserts a new admin. Emails are stored lowercased.
func (r *adminRepository) Create(ctx context.Context, admin *domain.AdminUser) error {
	query := `
		INSERT INTO admin_users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))

	_, err := r.db.ExecContext(ctx, query,
		admin.ID,
		admin.Email,
		admin.PasswordHash,
		admin.CreatedAt,
		admin.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAdminAlreadyExists
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}

	return nil
}

func (r *adminRepository) FindByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	query := `
		SELECT id, email, password_hash, created_at, updated_at
		FROM admin_users
		WHERE email = $1
	`

	return r.findOne(ctx, query, strings.ToLower(strings.TrimSpace(email)))
}

func (r *adminRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.AdminUser, error) {
	query := `
		SELECT id, email, password_hash, created_at, updated_at
		FROM admin_users
		WHERE id = $1
	`

	return r.findOne(ctx, query, id)
}

func (r *adminRepository) findOne(ctx context.Context, query string, arg any) (*domain.AdminUser, error) {
	admin := &domain.AdminUser{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&admin.ID,
		&admin.Email,
		&admin.PasswordHash,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}

	return admin, nil
}
