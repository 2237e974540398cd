package cakecontroller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/controllers"
	"github.com/George-Dev-Web/cakes2/models"
)

// DELETE /api/admin/cakes/:id
//
// Cakes are soft deleted so cart lines and order history that point at them
// keep resolving.
func DeleteCake(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}

		res := d.DB.WithContext(c.Request.Context()).Delete(&models.Cake{}, id)
		if res.Error != nil {
			_ = c.Error(apperrors.Database("Failed to delete cake", res.Error))
			return
		}
		if res.RowsAffected == 0 {
			_ = c.Error(apperrors.NotFound(cakeNotFound(id)))
			return
		}

		d.Cache.InvalidateCake(c.Request.Context(), id)
		d.Log.Info("cake deleted", zap.Uint("cake_id", id))
		c.Status(http.StatusNoContent)
	}
}
