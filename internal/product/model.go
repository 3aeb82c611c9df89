// File: internal/product/model.go
package product

import (
	"time"

	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/user"

	"github.com/google/uuid"
)

type ProductStatus string

const (
	StatusActive ProductStatus = "active"
	StatusSold   ProductStatus = "sold"
	StatusHidden ProductStatus = "hidden"
)

// Product is a marketplace item put up by a seller.
type Product struct {
	common.BaseModel
	OwnerID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	Owner       *user.User    `gorm:"foreignKey:OwnerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Title       string        `gorm:"type:varchar(255);not null"`
	Slug        string        `gorm:"type:varchar(300);uniqueIndex;not null"`
	Description string        `gorm:"type:text;not null"`
	PriceCents  int64         `gorm:"not null"`
	Currency    string        `gorm:"type:varchar(3);not null;default:'TWD'"`
	Status      ProductStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

func (Product) TableName() string {
	return "products"
}

// --- DTOs for API ---

type CreateProductRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=255"`
	Description string `json:"description" binding:"required,min=10"`
	PriceCents  int64  `json:"price_cents" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
}

type UpdateProductRequest struct {
	Title       *string `json:"title,omitempty" binding:"omitempty,min=3,max=255"`
	Description *string `json:"description,omitempty" binding:"omitempty,min=10"`
	PriceCents  *int64  `json:"price_cents,omitempty" binding:"omitempty,gt=0"`
	Currency    *string `json:"currency,omitempty" binding:"omitempty,len=3"`
	Status      *string `json:"status,omitempty" binding:"omitempty,oneof=active sold hidden"`
}

type ProductSearchQuery struct {
	SearchTerm    string
	OwnerID       *uuid.UUID
	Status        ProductStatus
	MinPriceCents *int64
	MaxPriceCents *int64
	Page          int
	PageSize      int
}

type ProductResponse struct {
	ID          uuid.UUID     `json:"id"`
	OwnerID     uuid.UUID     `json:"owner_id"`
	OwnerName   string        `json:"owner_name,omitempty"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Description string        `json:"description"`
	PriceCents  int64         `json:"price_cents"`
	Currency    string        `json:"currency"`
	Status      ProductStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func ToProductResponse(p *Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Currency:    p.Currency,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Owner != nil {
		resp.OwnerName = p.Owner.Nickname
	}
	return resp
}
