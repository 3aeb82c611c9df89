// File: internal/product/repository.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taipei_market_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// errSlugTaken signals a slug unique-constraint hit so the service can retry
// with a fresh suffix. Never crosses the package boundary.
var errSlugTaken = errors.New("slug already taken")

// Repository defines the interface for product data operations.
type Repository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
	Search(ctx context.Context, query ProductSearchQuery) ([]Product, *common.Pagination, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM product repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Create inserts a new product record.
func (r *gormRepository) Create(ctx context.Context, product *Product) error {
	err := r.db.WithContext(ctx).Create(product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "unique constraint") ||
			strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errSlugTaken
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// FindByID retrieves a product with its owner preloaded.
func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	var product Product
	err := r.db.WithContext(ctx).Preload("Owner").First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Product not found.")
		}
		return nil, err
	}
	return &product, nil
}

// FindBySlug retrieves a product by its URL slug.
func (r *gormRepository) FindBySlug(ctx context.Context, slug string) (*Product, error) {
	var product Product
	err := r.db.WithContext(ctx).Preload("Owner").First(&product, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Product not found.")
		}
		return nil, err
	}
	return &product, nil
}

// Update modifies an existing product record.
func (r *gormRepository) Update(ctx context.Context, product *Product) error {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// Delete removes a product by ID, ensuring ownership.
func (r *gormRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Product not found or you do not have permission to delete it.")
	}
	return nil
}

// Search retrieves products via SQL filtering. This is the fallback path
// when the search index is unavailable.
func (r *gormRepository) Search(ctx context.Context, query ProductSearchQuery) ([]Product, *common.Pagination, error) {
	var products []Product
	var totalItems int64

	dbQuery := r.db.WithContext(ctx).Model(&Product{}).Preload("Owner")

	if query.SearchTerm != "" {
		term := "%" + strings.ToLower(query.SearchTerm) + "%"
		dbQuery = dbQuery.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", term, term)
	}
	if query.OwnerID != nil && *query.OwnerID != uuid.Nil {
		dbQuery = dbQuery.Where("owner_id = ?", *query.OwnerID)
	}
	if query.Status != "" {
		dbQuery = dbQuery.Where("status = ?", query.Status)
	} else {
		dbQuery = dbQuery.Where("status = ?", StatusActive)
	}
	if query.MinPriceCents != nil {
		dbQuery = dbQuery.Where("price_cents >= ?", *query.MinPriceCents)
	}
	if query.MaxPriceCents != nil {
		dbQuery = dbQuery.Where("price_cents <= ?", *query.MaxPriceCents)
	}

	if err := dbQuery.Count(&totalItems).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to count products: %w", err)
	}

	pagination := common.NewPagination(totalItems, query.Page, query.PageSize)
	err := dbQuery.Order("created_at DESC").
		Offset((pagination.CurrentPage - 1) * pagination.PageSize).
		Limit(pagination.PageSize).
		Find(&products).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, pagination, nil
}

// FindByIDs loads products in the given ID order. Used to hydrate search
// index hits.
func (r *gormRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []Product
	err := r.db.WithContext(ctx).Preload("Owner").Where("id IN ?", ids).Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load products by IDs: %w", err)
	}

	byID := make(map[uuid.UUID]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	ordered := make([]Product, 0, len(products))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}
