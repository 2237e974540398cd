package cakecontroller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/controllers"
	"github.com/George-Dev-Web/cakes2/models"
)

// PUT /api/admin/cakes/:id
func UpdateCake(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		var in cakeInput
		if err := controllers.BindStrict(c, &in); err != nil {
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

		cols, err := in.apply(&cake)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if len(cols) > 0 {
			if err := db.Model(&cake).Select(cols).Updates(&cake).Error; err != nil {
				_ = c.Error(apperrors.Database("Failed to update cake", err))
				return
			}
			d.Cache.InvalidateCake(c.Request.Context(), id)
		}

		d.Log.Info("cake updated", zap.Uint("cake_id", id), zap.Strings("fields", cols))
		c.JSON(http.StatusOK, cake)
	}
}
