package main

import (
	"bytes"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
	"bitbucket.org/mmdatafocus/storefront_backend/models"
	"bitbucket.org/mmdatafocus/storefront_backend/utils"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxUploadSizeBytes int64 = 5 * 1024 * 1024

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

func thumbnailObjectKey(objectKey string) string {
	dir := path.Dir(objectKey)
	filename := path.Base(objectKey)
	return path.Join(dir, "thumbnails", filename)
}

// uploadImageHandler accepts a multipart image, stores the original and a
// 200px-wide thumbnail, and optionally attaches both URLs to a product.
func uploadImageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		if !requireAuth(c) {
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}
		mimeType := fileHeader.Header.Get("Content-Type")
		if !imageMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		if int64(len(data)) > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image"})
			return
		}
		thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)
		var thumbBuf bytes.Buffer
		if err := imaging.Encode(&thumbBuf, thumbnail, imaging.JPEG); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate thumbnail"})
			return
		}

		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if ext == "" {
			if mimeType == "image/png" {
				ext = ".png"
			} else {
				ext = ".jpg"
			}
		}
		objectKey := path.Join("products", utils.GenerateUniqueFilename()+ext)

		ctx := c.Request.Context()
		imageUrl, err := utils.UploadObject(ctx, objectKey, mimeType, data)
		if err != nil {
			config.LogError(logger, "uploads.go", "uploadImageHandler", "upload original", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
			return
		}
		thumbnailUrl, err := utils.UploadObject(ctx, thumbnailObjectKey(objectKey), "image/jpeg", thumbBuf.Bytes())
		if err != nil {
			config.LogError(logger, "uploads.go", "uploadImageHandler", "upload thumbnail", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store thumbnail"})
			return
		}

		if productId := queryInt(c, "product_id"); productId > 0 {
			if err := models.SetProductImage(ctx, productId, imageUrl, thumbnailUrl); err != nil {
				respondError(c, err)
				return
			}
		}

		logger.WithFields(logrus.Fields{
			"object_key": objectKey,
			"mime_type":  mimeType,
			"size":       len(data),
		}).Info("[upload.image]")

		c.JSON(http.StatusCreated, gin.H{
			"image_url":     imageUrl,
			"thumbnail_url": thumbnailUrl,
			"object_key":    objectKey,
		})
	}
}
