package cakecontroller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/controllers"
	"github.com/George-Dev-Web/cakes2/models"
)

// POST /api/admin/cakes/:id/images (multipart: image, caption, sort_order)
//
// The first gallery image also becomes the cake's cover when it has none.
func AddCakeImage(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		db := d.DB.WithContext(c.Request.Context())

		var cake models.Cake
		if err := db.First(&cake, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				_ = c.Error(apperrors.NotFound(cakeNotFound(id)))
				return
			}
			_ = c.Error(apperrors.Database("Failed to retrieve cake", err))
			return
		}

		caption := strings.TrimSpace(c.PostForm("caption"))
		if len([]rune(caption)) > 200 {
			_ = c.Error(apperrors.Validation("Caption must be at most 200 characters"))
			return
		}
		sortOrder := 0
		if raw := c.PostForm("sort_order"); raw != "" {
			if sortOrder, err = strconv.Atoi(raw); err != nil {
				_ = c.Error(apperrors.Validation("Invalid sort_order"))
				return
			}
		}

		asset, err := d.UploadImage(c, "image", "cakes")
		if err != nil {
			_ = c.Error(err)
			return
		}

		image := models.CakeImage{
			CakeID:    cake.ID,
			ImageURL:  asset.URL,
			PublicID:  asset.PublicID,
			Caption:   caption,
			SortOrder: sortOrder,
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&image).Error; err != nil {
				return err
			}
			if cake.ImageURL == "" {
				return tx.Model(&cake).Update("image_url", asset.URL).Error
			}
			return nil
		})
		if err != nil {
			_ = d.Uploader.Delete(c.Request.Context(), asset.PublicID)
			_ = c.Error(apperrors.Database("Failed to save cake image", err))
			return
		}

		d.Cache.InvalidateCake(c.Request.Context(), cake.ID)
		c.JSON(http.StatusCreated, image)
	}
}

// DELETE /api/admin/cakes/:id/images/:image_id
func DeleteCakeImage(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		imageID, err := controllers.ParamID(c, "image_id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		db := d.DB.WithContext(c.Request.Context())

		var image models.CakeImage
		if err := db.Where("id = ? AND cake_id = ?", imageID, id).First(&image).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				_ = c.Error(apperrors.NotFound("Image not found"))
				return
			}
			_ = c.Error(apperrors.Database("Failed to retrieve image", err))
			return
		}
		if err := db.Delete(&image).Error; err != nil {
			_ = c.Error(apperrors.Database("Failed to delete image", err))
			return
		}
		if image.PublicID != "" {
			if err := d.Uploader.Delete(c.Request.Context(), image.PublicID); err != nil {
				d.Log.Warn("failed to delete stored image", zap.String("public_id", image.PublicID), zap.Error(err))
			}
		}

		d.Cache.InvalidateCake(c.Request.Context(), id)
		c.Status(http.StatusNoContent)
	}
}
