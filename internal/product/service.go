// File: internal/product/service.go
package product

import (
	"context"
	"errors"

	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/platform/crypto"
	"taipei_market_backend/internal/platform/elasticsearch"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const slugCreateAttempts = 5

// Service defines the interface for product-related business logic.
type Service interface {
	CreateProduct(ctx context.Context, ownerID uuid.UUID, req CreateProductRequest) (*Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductBySlug(ctx context.Context, productSlug string) (*Product, error)
	UpdateProduct(ctx context.Context, id, ownerID uuid.UUID, req UpdateProductRequest) (*Product, error)
	DeleteProduct(ctx context.Context, id, ownerID uuid.UUID) error
	SearchProducts(ctx context.Context, query ProductSearchQuery) ([]Product, *common.Pagination, error)
}

// ServiceImplementation implements the product Service interface.
type ServiceImplementation struct {
	repo    Repository
	indexer *searchIndexer
	cfg     *config.Config
	logger  *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new product service.
func NewService(
	repo Repository,
	es *elasticsearch.ESClientWrapper,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:    repo,
		indexer: newSearchIndexer(es, logger),
		cfg:     cfg,
		logger:  logger.Named("ProductService"),
	}
}

// CreateProduct persists a new product and indexes it for search. The slug
// derives from the title; a random suffix resolves collisions.
func (s *ServiceImplementation) CreateProduct(ctx context.Context, ownerID uuid.UUID, req CreateProductRequest) (*Product, error) {
	currency := req.Currency
	if currency == "" {
		currency = "TWD"
	}
	product := &Product{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    currency,
		Status:      StatusActive,
	}

	candidate := slug.Make(req.Title)
	created := false
	for attempt := 0; attempt < slugCreateAttempts; attempt++ {
		product.Slug = candidate
		err := s.repo.Create(ctx, product)
		if err == nil {
			created = true
			break
		}
		if errors.Is(err, errSlugTaken) {
			suffix, randErr := crypto.GenerateSecureRandomString(4)
			if randErr != nil {
				return nil, randErr
			}
			candidate = slug.Make(req.Title) + "-" + slug.Make(suffix)
			continue
		}
		return nil, err
	}
	if !created {
		return nil, common.ErrConflict.WithDetails("Could not allocate a unique product slug.")
	}

	s.indexer.index(ctx, product)
	s.logger.Info("Product created",
		zap.String("productID", product.ID.String()),
		zap.String("ownerID", ownerID.String()))
	return product, nil
}

// GetProductByID retrieves a single product.
func (s *ServiceImplementation) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.FindByID(ctx, id)
}

// GetProductBySlug retrieves a single product by its URL slug.
func (s *ServiceImplementation) GetProductBySlug(ctx context.Context, productSlug string) (*Product, error) {
	return s.repo.FindBySlug(ctx, productSlug)
}

// UpdateProduct applies partial changes after an ownership check.
func (s *ServiceImplementation) UpdateProduct(ctx context.Context, id, ownerID uuid.UUID, req UpdateProductRequest) (*Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.OwnerID != ownerID {
		return nil, common.ErrForbidden.WithDetails("You do not own this product.")
	}

	if req.Title != nil {
		product.Title = *req.Title
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.PriceCents != nil {
		product.PriceCents = *req.PriceCents
	}
	if req.Currency != nil {
		product.Currency = *req.Currency
	}
	if req.Status != nil {
		product.Status = ProductStatus(*req.Status)
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.indexer.index(ctx, product)
	return product, nil
}

// DeleteProduct removes a product after an ownership check.
func (s *ServiceImplementation) DeleteProduct(ctx context.Context, id, ownerID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.indexer.remove(ctx, id)
	s.logger.Info("Product deleted",
		zap.String("productID", id.String()),
		zap.String("ownerID", ownerID.String()))
	return nil
}

// SearchProducts queries the search index when configured and falls back to
// SQL filtering when the index is absent or errors.
func (s *ServiceImplementation) SearchProducts(ctx context.Context, query ProductSearchQuery) ([]Product, *common.Pagination, error) {
	if query.Page <= 0 {
		query.Page = common.DefaultPage
	}
	if query.PageSize <= 0 {
		query.PageSize = common.DefaultPageSize
	}

	if s.indexer.enabled() {
		ids, total, err := s.indexer.search(ctx, query)
		if err == nil {
			products, loadErr := s.repo.FindByIDs(ctx, ids)
			if loadErr == nil {
				return products, common.NewPagination(total, query.Page, query.PageSize), nil
			}
			err = loadErr
		}
		s.logger.Warn("Index search failed; falling back to SQL", zap.Error(err))
	}
	return s.repo.Search(ctx, query)
}
