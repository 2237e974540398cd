package uploadcontroller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/controllers"
)

var folders = map[string]bool{
	"cakes":          true,
	"customizations": true,
	"general":        true,
}

// POST /api/admin/upload/image (multipart: image, folder?)
func UploadImage(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		folder := strings.ToLower(strings.TrimSpace(c.DefaultPostForm("folder", "general")))
		if !folders[folder] {
			_ = c.Error(apperrors.Validation("Invalid folder: %s", folder))
			return
		}
		asset, err := d.UploadImage(c, "image", folder)
		if err != nil {
			_ = c.Error(err)
			return
		}
		d.Log.Info("image uploaded", zap.String("folder", folder), zap.String("public_id", asset.PublicID))
		c.JSON(http.StatusCreated, gin.H{
			"message":   "Image uploaded successfully",
			"url":       asset.URL,
			"public_id": asset.PublicID,
			"width":     asset.Width,
			"height":    asset.Height,
			"format":    asset.Format,
		})
	}
}
