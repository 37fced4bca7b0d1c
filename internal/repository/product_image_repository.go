package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bortsbooks/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductImageNotFound = errors.New("product image not found")
)

// ProductImageRepository defines the interface for product image data access
type ProductImageRepository interface {
	Create(ctx context.Context, image *domain.ProductImage) error
	FindByID(ctx context.Context, productID, imageID uuid.UUID) (*domain.ProductImage, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.ProductImage, error)
	SetMain(ctx context.Context, productID, imageID uuid.UUID) error
	Delete(ctx context.Context, productID, imageID uuid.UUID) (*domain.ProductImage, error)
}

type productImageRepository struct {
	db *sql.DB
}

// NewProductImageRepository creates a new instance of ProductImageRepository
func NewProductImageRepository(db *sql.DB) ProductImageRepository {
	return &productImageRepository{db: db}
}

func (r *productImageRepository) Create(ctx context.Context, image *domain.ProductImage) error {
	query := `
		INSERT INTO product_images (id, product_id, path, is_main, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		image.ID,
		image.ProductID,
		image.Path,
		image.IsMain,
		image.Position,
		image.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product image: %w", err)
	}

	return nil
}

func (r *productImageRepository) FindByID(ctx context.Context, productID, imageID uuid.UUID) (*domain.ProductImage, error) {
	query := `
		SELECT id, product_id, path, is_main, position, created_at
		FROM product_images
		WHERE id = $1 AND product_id = $2
	`

	image := &domain.ProductImage{}
	err := r.db.QueryRowContext(ctx, query, imageID, productID).Scan(
		&image.ID,
		&image.ProductID,
		&image.Path,
		&image.IsMain,
		&image.Position,
		&image.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductImageNotFound
		}
		return nil, fmt.Errorf("failed to find product image: %w", err)
	}

	return image, nil
}

// ListByProduct returns the images of a product, main image first, then by position
func (r *productImageRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.ProductImage, error) {
	query := `
		SELECT id, product_id, path, is_main, position, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY is_main DESC, position ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product images: %w", err)
	}
	defer rows.Close()

	images := []*domain.ProductImage{}
	for rows.Next() {
		image := &domain.ProductImage{}
		if err := rows.Scan(
			&image.ID,
			&image.ProductID,
			&image.Path,
			&image.IsMain,
			&image.Position,
			&image.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		images = append(images, image)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product images: %w", err)
	}

	return images, nil
}

// SetMain clears every main flag of the product and sets it on one image, in one transaction
func (r *productImageRepository) SetMain(ctx context.Context, productID, imageID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setMainTx(ctx, tx, productID, imageID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit main image: %w", err)
	}
	return nil
}

func setMainTx(ctx context.Context, tx *sql.Tx, productID, imageID uuid.UUID) error {
	// lock the product's images so concurrent set-main calls serialize
	if _, err := tx.ExecContext(ctx,
		`SELECT id FROM product_images WHERE product_id = $1 FOR UPDATE`, productID); err != nil {
		return fmt.Errorf("failed to lock product images: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE product_images SET is_main = FALSE WHERE product_id = $1 AND is_main`, productID); err != nil {
		return fmt.Errorf("failed to clear main image: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE product_images SET is_main = TRUE WHERE id = $1 AND product_id = $2`, imageID, productID)
	if err != nil {
		return fmt.Errorf("failed to set main image: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductImageNotFound
	}

	return nil
}

// Delete removes an image record. When the main image is removed, the next image
// by position becomes main. The deleted record is returned so its file can be removed.
func (r *productImageRepository) Delete(ctx context.Context, productID, imageID uuid.UUID) (*domain.ProductImage, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleted := &domain.ProductImage{}
	err = tx.QueryRowContext(ctx, `
		DELETE FROM product_images
		WHERE id = $1 AND product_id = $2
		RETURNING id, product_id, path, is_main, position, created_at
	`, imageID, productID).Scan(
		&deleted.ID,
		&deleted.ProductID,
		&deleted.Path,
		&deleted.IsMain,
		&deleted.Position,
		&deleted.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductImageNotFound
		}
		return nil, fmt.Errorf("failed to delete product image: %w", err)
	}

	if deleted.IsMain {
		var next uuid.UUID
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM product_images
			WHERE product_id = $1
			ORDER BY position ASC, created_at ASC
			LIMIT 1
		`, productID).Scan(&next)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			// last image removed
		case err != nil:
			return nil, fmt.Errorf("failed to find next main image: %w", err)
		default:
			if err := setMainTx(ctx, tx, productID, next); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit image deletion: %w", err)
	}
	return deleted, nil
}
