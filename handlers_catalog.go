package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/storefront_backend/models"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
		token, user, err := models.Signin(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdmin(c) {
			return
		}
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBadRequest(c, err)
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func createProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBadRequest(c, err)
			return
		}
		product, err := models.CreateProduct(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

func getProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		product, err := models.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func listProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		products, err := models.ListProducts(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products})
	}
}

func updateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBadRequest(c, err)
			return
		}
		product, err := models.UpdateProduct(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func deleteProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdmin(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		product, err := models.DeleteProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": product.ID})
	}
}

type newTagGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

func createTagGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		var req newTagGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
		group, err := models.CreateTagGroup(c.Request.Context(), req.Name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, group)
	}
}

func listTagGroupsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		groups, err := models.ListTagGroups(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tag_groups": groups})
	}
}

func deleteTagGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		group, err := models.DeleteTagGroup(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": group.ID})
	}
}

func createTagHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		var input models.NewTag
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBadRequest(c, err)
			return
		}
		tag, err := models.CreateTag(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, tag)
	}
}

func listTagsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		tags, err := models.ListTags(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tags": tags})
	}
}

func deleteTagHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		tag, err := models.DeleteTag(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": tag.ID})
	}
}

type productTagRequest struct {
	ProductId int `json:"product_id" binding:"required"`
	TagId     int `json:"tag_id" binding:"required"`
}

func tagProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		var req productTagRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
		link, err := models.TagProduct(c.Request.Context(), req.ProductId, req.TagId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, link)
	}
}

func untagProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		productId := queryInt(c, "product_id")
		tagId := queryInt(c, "tag_id")
		if productId <= 0 || tagId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "product_id and tag_id are required"})
			return
		}
		if err := models.UntagProduct(c.Request.Context(), productId, tagId); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

func listProductTagsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		links, err := models.ListProductTags(c.Request.Context(), queryInt(c, "product_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"product_tags": links})
	}
}

func listSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAuth(c) {
			return
		}
		settings, err := models.ListSettings(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": settings})
	}
}

type upsertSettingRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value"`
}

func upsertSettingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdmin(c) {
			return
		}
		var req upsertSettingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
		setting, err := models.UpsertSetting(c.Request.Context(), req.Key, req.Value)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, setting)
	}
}
