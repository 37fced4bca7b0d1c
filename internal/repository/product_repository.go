package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bortsbooks/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

const productColumns = `id, title, description, price, condition, external_id, created_at, updated_at, images_checked_at`

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.Product, error)
	List(ctx context.Context, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error)
	ListMissingImages(ctx context.Context, limit int) ([]*domain.Product, error)
	MarkImagesChecked(ctx context.Context, id uuid.UUID, at time.Time) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var externalID sql.NullString
	var checkedAt sql.NullTime

	err := row.Scan(
		&product.ID,
		&product.Title,
		&product.Description,
		&product.Price,
		&product.Condition,
		&externalID,
		&product.CreatedAt,
		&product.UpdatedAt,
		&checkedAt,
	)
	if err != nil {
		return nil, err
	}

	if externalID.Valid {
		product.ExternalID = &externalID.String
	}
	if checkedAt.Valid {
		product.ImagesCheckedAt = &checkedAt.Time
	}
	return product, nil
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Title,
		product.Description,
		product.Price,
		product.Condition,
		product.ExternalID,
		product.CreatedAt,
		product.UpdatedAt,
		product.ImagesCheckedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindByExternalID returns the earliest product imported from a marketplace listing
func (r *productRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE external_id = $1
		ORDER BY created_at ASC
		LIMIT 1
	`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by external ID: %w", err)
	}

	return product, nil
}

// List retrieves products with pagination and sorting
func (r *productRepository) List(ctx context.Context, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error) {
	// Validate sort field to prevent SQL injection
	validSortFields := map[string]bool{
		"title":      true,
		"price":      true,
		"condition":  true,
		"created_at": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (page - 1) * pageSize

	// id breaks ties so pages stay stable for equal sort keys
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		ORDER BY %s %s, id
		LIMIT $1 OFFSET $2
	`, productColumns, sortBy, sortOrder)

	rows, err := r.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// ListMissingImages returns imported products that still have no images. Listings
// never scraped come first, then the ones scraped longest ago, so dead listings
// rotate to the back instead of filling every batch.
func (r *productRepository) ListMissingImages(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE p.external_id IS NOT NULL AND p.external_id <> ''
		  AND NOT EXISTS (SELECT 1 FROM product_images i WHERE i.product_id = p.id)
		ORDER BY p.images_checked_at ASC NULLS FIRST, p.created_at ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products without images: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// MarkImagesChecked records that the listing of a product was scraped for images
func (r *productRepository) MarkImagesChecked(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE products SET images_checked_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark images checked: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark images checked: %w", err)
	}
	if rows == 0 {
		return ErrProductNotFound
	}
	return nil
}

func collectProducts(rows *sql.Rows) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
