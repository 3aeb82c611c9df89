// File: internal/product/handler.go
package product

import (
	"errors"
	"strconv"

	"taipei_market_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for product handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new product handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for product operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	productGroup := router.Group("/products")
	{
		productGroup.GET("", h.search)
		productGroup.GET("/:id", h.getByID)
		productGroup.GET("/slug/:slug", h.getBySlug)

		authed := productGroup.Group("")
		authed.Use(authMW)
		{
			authed.POST("", h.create)
			authed.PUT("/:id", h.update)
			authed.DELETE("/:id", h.delete)
		}
	}
}

func (h *Handler) create(c *gin.Context) {
	ownerID := common.GetUserIDFromContext(c)
	if ownerID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	product, err := h.service.CreateProduct(c.Request.Context(), ownerID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Product created successfully.", ToProductResponse(product))
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid product ID format."))
		return
	}
	product, err := h.service.GetProductByID(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Product retrieved successfully.", ToProductResponse(product))
}

func (h *Handler) getBySlug(c *gin.Context) {
	product, err := h.service.GetProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Product retrieved successfully.", ToProductResponse(product))
}

func (h *Handler) update(c *gin.Context) {
	ownerID := common.GetUserIDFromContext(c)
	if ownerID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid product ID format."))
		return
	}
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	product, err := h.service.UpdateProduct(c.Request.Context(), id, ownerID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Product updated successfully.", ToProductResponse(product))
}

func (h *Handler) delete(c *gin.Context) {
	ownerID := common.GetUserIDFromContext(c)
	if ownerID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid product ID format."))
		return
	}
	if err := h.service.DeleteProduct(c.Request.Context(), id, ownerID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) search(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	query := ProductSearchQuery{
		SearchTerm: c.Query("q"),
		Status:     ProductStatus(c.Query("status")),
		Page:       page,
		PageSize:   pageSize,
	}
	if ownerParam := c.Query("owner_id"); ownerParam != "" {
		ownerID, err := uuid.Parse(ownerParam)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid owner_id format."))
			return
		}
		query.OwnerID = &ownerID
	}
	if minParam := c.Query("min_price_cents"); minParam != "" {
		minPrice, err := strconv.ParseInt(minParam, 10, 64)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid min_price_cents format."))
			return
		}
		query.MinPriceCents = &minPrice
	}
	if maxParam := c.Query("max_price_cents"); maxParam != "" {
		maxPrice, err := strconv.ParseInt(maxParam, 10, 64)
		if err != nil {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid max_price_cents format."))
			return
		}
		query.MaxPriceCents = &maxPrice
	}

	products, pagination, err := h.service.SearchProducts(c.Request.Context(), query)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i])
	}
	common.RespondPaginated(c, "Products retrieved successfully.", responses, pagination)
}

func (h *Handler) bindError(c *gin.Context, err error) {
	h.logger.Warn("Invalid product request body", zap.Error(err))
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
		return
	}
	common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
}
