package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
	"bitbucket.org/mmdatafocus/storefront_backend/utils"
)

type TagGroup struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Tag struct {
	ID         int       `gorm:"primary_key" json:"id"`
	TagGroupId int       `gorm:"index" json:"tag_group_id"`
	Name       string    `gorm:"size:100;not null" json:"name" binding:"required"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type ProductTag struct {
	ID        int       `gorm:"primary_key;index:idx_product_tag,unique" json:"id"`
	ProductId int       `gorm:"index:idx_product_tag_pair,unique" json:"product_id" binding:"required"`
	TagId     int       `gorm:"index:idx_product_tag_pair,unique" json:"tag_id" binding:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewTag struct {
	Name       string `json:"name" binding:"required"`
	TagGroupId int    `json:"tag_group_id"`
}

func CreateTagGroup(ctx context.Context, name string) (*TagGroup, error) {
	db := config.GetDB()
	group := TagGroup{Name: name}
	if err := db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func ListTagGroups(ctx context.Context) ([]*TagGroup, error) {
	return utils.FetchAllModels[TagGroup](ctx)
}

func DeleteTagGroup(ctx context.Context, id int) (*TagGroup, error) {
	db := config.GetDB()
	group, err := utils.FetchModel[TagGroup](ctx, id)
	if err != nil {
		return nil, err
	}
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&Tag{}).Where("tag_group_id = ?", id).Update("tag_group_id", 0).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(group).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	return group, tx.Commit().Error
}

func CreateTag(ctx context.Context, input *NewTag) (*Tag, error) {
	db := config.GetDB()
	if input.TagGroupId > 0 {
		if err := utils.ValidateResourceId[TagGroup](ctx, input.TagGroupId); err != nil {
			return nil, errors.New("tag group not found")
		}
	}
	tag := Tag{Name: input.Name, TagGroupId: input.TagGroupId}
	if err := db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func ListTags(ctx context.Context) ([]*Tag, error) {
	return utils.FetchAllModels[Tag](ctx)
}

func DeleteTag(ctx context.Context, id int) (*Tag, error) {
	db := config.GetDB()
	tag, err := utils.FetchModel[Tag](ctx, id)
	if err != nil {
		return nil, err
	}
	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("tag_id = ?", id).Delete(&ProductTag{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(tag).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	return tag, tx.Commit().Error
}

func TagProduct(ctx context.Context, productId int, tagId int) (*ProductTag, error) {
	db := config.GetDB()
	if err := utils.ValidateResourceId[Product](ctx, productId); err != nil {
		return nil, errors.New("product not found")
	}
	if err := utils.ValidateResourceId[Tag](ctx, tagId); err != nil {
		return nil, errors.New("tag not found")
	}
	link := ProductTag{ProductId: productId, TagId: tagId}
	if err := db.WithContext(ctx).Create(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func UntagProduct(ctx context.Context, productId int, tagId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Where("product_id = ? AND tag_id = ?", productId, tagId).Delete(&ProductTag{}).Error
}

func ListProductTags(ctx context.Context, productId int) ([]*ProductTag, error) {
	db := config.GetDB()
	var links []*ProductTag
	q := db.WithContext(ctx)
	if productId > 0 {
		q = q.Where("product_id = ?", productId)
	}
	if err := q.Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}
