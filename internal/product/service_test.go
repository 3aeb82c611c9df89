// File: internal/product/service_test.go
package product

import (
	"context"
	"fmt"
	"testing"

	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupProductServiceTest(t *testing.T) (*ServiceImplementation, *gorm.DB, uuid.UUID) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "Failed to connect to test database")

	require.NoError(t, db.Migrator().DropTable(&Product{}, &user.User{}))
	require.NoError(t, db.AutoMigrate(&user.User{}, &Product{}))

	owner := &user.User{
		Email:    "seller@example.com",
		Nickname: "Seller",
		Role:     common.RoleUser,
		IsActive: true,
	}
	require.NoError(t, db.Create(owner).Error)

	repo := NewGORMRepository(db)
	// nil ES wrapper: indexing is disabled and search uses SQL.
	svc := NewService(repo, nil, &config.Config{}, zap.NewNop())
	return svc, db, owner.ID
}

func TestCreateProduct(t *testing.T) {
	svc, _, ownerID := setupProductServiceTest(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, ownerID, CreateProductRequest{
		Title:       "Vintage Film Camera",
		Description: "Fully working, recently serviced shutter.",
		PriceCents:  250000,
	})
	require.NoError(t, err)
	assert.Equal(t, "vintage-film-camera", created.Slug)
	assert.Equal(t, "TWD", created.Currency)
	assert.Equal(t, StatusActive, created.Status)

	// Same title gets a disambiguated slug.
	second, err := svc.CreateProduct(ctx, ownerID, CreateProductRequest{
		Title:       "Vintage Film Camera",
		Description: "Another copy of the same camera model.",
		PriceCents:  180000,
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.Slug, second.Slug)
	assert.Contains(t, second.Slug, "vintage-film-camera-")
}

func TestUpdateProductOwnership(t *testing.T) {
	svc, _, ownerID := setupProductServiceTest(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, ownerID, CreateProductRequest{
		Title:       "Mechanical Keyboard",
		Description: "Hot-swappable switches, barely used.",
		PriceCents:  90000,
	})
	require.NoError(t, err)

	t.Run("owner can update", func(t *testing.T) {
		newPrice := int64(80000)
		updated, err := svc.UpdateProduct(ctx, created.ID, ownerID, UpdateProductRequest{
			PriceCents: &newPrice,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(80000), updated.PriceCents)
	})

	t.Run("stranger cannot update", func(t *testing.T) {
		newPrice := int64(1)
		_, err := svc.UpdateProduct(ctx, created.ID, uuid.New(), UpdateProductRequest{
			PriceCents: &newPrice,
		})
		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("status transition", func(t *testing.T) {
		sold := string(StatusSold)
		updated, err := svc.UpdateProduct(ctx, created.ID, ownerID, UpdateProductRequest{
			Status: &sold,
		})
		require.NoError(t, err)
		assert.Equal(t, StatusSold, updated.Status)
	})
}

func TestDeleteProduct(t *testing.T) {
	svc, _, ownerID := setupProductServiceTest(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, ownerID, CreateProductRequest{
		Title:       "Desk Lamp",
		Description: "Warm light, adjustable arm, works fine.",
		PriceCents:  30000,
	})
	require.NoError(t, err)

	err = svc.DeleteProduct(ctx, created.ID, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = svc.DeleteProduct(ctx, created.ID, ownerID)
	require.NoError(t, err)

	_, err = svc.GetProductByID(ctx, created.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSearchProductsSQLFallback(t *testing.T) {
	svc, _, ownerID := setupProductServiceTest(t)
	ctx := context.Background()

	seed := []CreateProductRequest{
		{Title: "Road Bike", Description: "Carbon frame road bike in great shape.", PriceCents: 1200000},
		{Title: "City Bike", Description: "Commuter bike with basket and lights.", PriceCents: 400000},
		{Title: "Espresso Machine", Description: "Dual boiler espresso machine, descaled.", PriceCents: 800000},
	}
	for _, req := range seed {
		_, err := svc.CreateProduct(ctx, ownerID, req)
		require.NoError(t, err)
	}

	t.Run("text filter", func(t *testing.T) {
		products, pagination, err := svc.SearchProducts(ctx, ProductSearchQuery{SearchTerm: "bike"})
		require.NoError(t, err)
		assert.Len(t, products, 2)
		assert.Equal(t, int64(2), pagination.TotalItems)
	})

	t.Run("price range filter", func(t *testing.T) {
		minPrice := int64(500000)
		products, _, err := svc.SearchProducts(ctx, ProductSearchQuery{MinPriceCents: &minPrice})
		require.NoError(t, err)
		assert.Len(t, products, 2)
	})

	t.Run("sold items excluded by default", func(t *testing.T) {
		all, _, err := svc.SearchProducts(ctx, ProductSearchQuery{})
		require.NoError(t, err)
		require.Len(t, all, 3)

		sold := string(StatusSold)
		_, err = svc.UpdateProduct(ctx, all[0].ID, ownerID, UpdateProductRequest{Status: &sold})
		require.NoError(t, err)

		remaining, _, err := svc.SearchProducts(ctx, ProductSearchQuery{})
		require.NoError(t, err)
		assert.Len(t, remaining, 2)
	})

	t.Run("pagination", func(t *testing.T) {
		products, pagination, err := svc.SearchProducts(ctx, ProductSearchQuery{Page: 1, PageSize: 1})
		require.NoError(t, err)
		assert.Len(t, products, 1)
		assert.True(t, pagination.HasNext)
	})
}
