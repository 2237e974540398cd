package cakecontroller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/cache"
	"github.com/George-Dev-Web/cakes2/controllers"
	"github.com/George-Dev-Web/cakes2/models"
)

// GET /api/cakes/:id
//
// The cake (with its gallery) is served through the catalog cache. The view
// counter lives only in the database and is read back after each bump.
func GetCake(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}

		cake, err := cache.Fetch(c.Request.Context(), d.Cache, cache.CakeKey(id), func(ctx context.Context) (models.Cake, error) {
			return loadCake(d.DB.WithContext(ctx), id)
		})
		if err != nil {
			_ = c.Error(err)
			return
		}

		views, err := countView(d.DB.WithContext(c.Request.Context()), id)
		if err != nil {
			d.Log.Warn("failed to count cake view", zap.Uint("cake_id", id), zap.Error(err))
		} else {
			cake.ViewsCount = views
		}

		c.JSON(http.StatusOK, cake)
	}
}

func loadCake(db *gorm.DB, id uint) (models.Cake, error) {
	var cake models.Cake
	err := db.Preload("Images", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("sort_order, id")
	}).First(&cake, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cake, apperrors.NotFound(cakeNotFound(id))
	}
	if err != nil {
		return cake, apperrors.Database("Failed to retrieve cake", err)
	}
	return cake, nil
}

// countView bumps the cake's view counter and returns the stored value.
func countView(db *gorm.DB, id uint) (int, error) {
	err := db.Model(&models.Cake{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error
	if err != nil {
		return 0, err
	}
	var views int
	err = db.Model(&models.Cake{}).Where("id = ?", id).Pluck("views_count", &views).Error
	return views, err
}
