package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
	"bitbucket.org/mmdatafocus/storefront_backend/utils"
	"github.com/shopspring/decimal"
)

type ProductCategory struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Product struct {
	ID                  int                 `gorm:"primary_key" json:"id"`
	Name                string              `gorm:"size:255;not null" json:"name" binding:"required"`
	Sku                 string              `gorm:"size:100;index" json:"sku"`
	Description         string              `gorm:"type:text" json:"description"`
	CategoryId          int                 `gorm:"index" json:"category_id"`
	Price               decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"price"`
	CostPrice           decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"cost_price"`
	StockManagementType StockManagementType `gorm:"type:enum('quantity','weight');default:quantity" json:"stock_management_type"`
	// IsVariable products carry variants. Weight-managed variable products
	// still pool stock at the product level (variant id collapses to null
	// in the inventory record).
	IsVariable   *bool            `gorm:"not null;default:false" json:"is_variable"`
	IsActive     *bool            `gorm:"not null;default:true" json:"is_active"`
	ImageUrl     string           `gorm:"size:500" json:"image_url"`
	ThumbnailUrl string           `gorm:"size:500" json:"thumbnail_url"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	Variants     []ProductVariant `gorm:"foreignKey:ProductId" json:"variants"`
}

type ProductVariant struct {
	ID        int             `gorm:"primary_key" json:"id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	Title     string          `gorm:"size:255;not null" json:"title" binding:"required"`
	Sku       string          `gorm:"size:100;index" json:"sku"`
	Price     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	CostPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_price"`
	IsActive  *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name                string              `json:"name" binding:"required"`
	Sku                 string              `json:"sku"`
	Description         string              `json:"description"`
	CategoryId          int                 `json:"category_id"`
	Price               decimal.Decimal     `json:"price"`
	CostPrice           decimal.Decimal     `json:"cost_price"`
	StockManagementType StockManagementType `json:"stock_management_type"`
	IsVariable          *bool               `json:"is_variable"`
	IsActive            *bool               `json:"is_active"`
	Variants            []NewProductVariant `json:"variants"`
}

type NewProductVariant struct {
	Title     string          `json:"title" binding:"required"`
	Sku       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	CostPrice decimal.Decimal `json:"cost_price"`
	IsActive  *bool           `json:"is_active"`
}

func (input *NewProduct) validate(ctx context.Context) error {
	if input.StockManagementType != "" && !input.StockManagementType.Valid() {
		return errors.New("invalid stock management type")
	}
	if input.CategoryId > 0 {
		if err := utils.ValidateResourceId[ProductCategory](ctx, input.CategoryId); err != nil {
			return errors.New("category not found")
		}
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	db := config.GetDB()

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	smType := input.StockManagementType
	if smType == "" {
		smType = StockManagementTypeQuantity
	}

	var variants []ProductVariant
	for _, v := range input.Variants {
		variants = append(variants, ProductVariant{
			Title:     v.Title,
			Sku:       v.Sku,
			Price:     v.Price,
			CostPrice: v.CostPrice,
			IsActive:  v.IsActive,
		})
	}

	product := Product{
		Name:                input.Name,
		Sku:                 input.Sku,
		Description:         input.Description,
		CategoryId:          input.CategoryId,
		Price:               input.Price,
		CostPrice:           input.CostPrice,
		StockManagementType: smType,
		IsVariable:          input.IsVariable,
		IsActive:            input.IsActive,
		Variants:            variants,
	}

	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {
	db := config.GetDB()

	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	product, err := utils.FetchModel[Product](ctx, id, "Variants")
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"Name":        input.Name,
		"Sku":         input.Sku,
		"Description": input.Description,
		"CategoryId":  input.CategoryId,
		"Price":       input.Price,
		"CostPrice":   input.CostPrice,
	}
	if input.StockManagementType != "" {
		updates["StockManagementType"] = input.StockManagementType
	}
	if input.IsVariable != nil {
		updates["IsVariable"] = input.IsVariable
	}
	if input.IsActive != nil {
		updates["IsActive"] = input.IsActive
	}

	if err := db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[Product](ctx, id, "Variants")
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {
	db := config.GetDB()

	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("product_id = ?", id).Delete(&ProductVariant{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(product).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	return product, tx.Commit().Error
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return utils.FetchModel[Product](ctx, id, "Variants")
}

func ListProducts(ctx context.Context) ([]*Product, error) {
	return utils.FetchAllModels[Product](ctx, "Variants")
}

// SetProductImage is used by the upload handler after storage succeeds.
func SetProductImage(ctx context.Context, id int, imageUrl string, thumbnailUrl string) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&Product{ID: id}).Updates(map[string]interface{}{
		"ImageUrl":     imageUrl,
		"ThumbnailUrl": thumbnailUrl,
	}).Error
}
