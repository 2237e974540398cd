package cakecontroller

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/controllers"
	"github.com/George-Dev-Web/cakes2/models"
)

// cakeInput is the set of fields an admin may write. Anything else in the
// body is rejected.
type cakeInput struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	Category        *string          `json:"category"`
	Price           *decimal.Decimal `json:"price"`
	ImageURL        *string          `json:"image_url"`
	IsAvailable     *bool            `json:"is_available"`
	IsFeatured      *bool            `json:"is_featured"`
	CanBeVegan      *bool            `json:"can_be_vegan"`
	CanBeGlutenFree *bool            `json:"can_be_gluten_free"`
	SortOrder       *int             `json:"sort_order"`
}

// apply validates the provided fields, copies them onto cake and returns
// the columns it touched.
func (in cakeInput) apply(cake *models.Cake) ([]string, error) {
	var cols []string
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if n := len([]rune(name)); n < 3 || n > 100 {
			return nil, apperrors.Validation("Name must be between 3 and 100 characters")
		}
		cake.Name = name
		cols = append(cols, "name")
	}
	if in.Description != nil {
		if len([]rune(*in.Description)) > 500 {
			return nil, apperrors.Validation("Description is too long")
		}
		cake.Description = *in.Description
		cols = append(cols, "description")
	}
	if in.Category != nil {
		category := strings.TrimSpace(*in.Category)
		if len(category) > 50 {
			return nil, apperrors.Validation("Category is too long")
		}
		cake.Category = category
		cols = append(cols, "category")
	}
	if in.Price != nil {
		if !in.Price.IsPositive() {
			return nil, apperrors.Validation("Price must be greater than 0")
		}
		cake.Price = in.Price.Round(2)
		cols = append(cols, "price")
	}
	if in.ImageURL != nil {
		if len(*in.ImageURL) > 500 {
			return nil, apperrors.Validation("Image URL is too long")
		}
		cake.ImageURL = strings.TrimSpace(*in.ImageURL)
		cols = append(cols, "image_url")
	}
	if in.IsAvailable != nil {
		cake.IsAvailable = *in.IsAvailable
		cols = append(cols, "is_available")
	}
	if in.IsFeatured != nil {
		cake.IsFeatured = *in.IsFeatured
		cols = append(cols, "is_featured")
	}
	if in.CanBeVegan != nil {
		cake.CanBeVegan = *in.CanBeVegan
		cols = append(cols, "can_be_vegan")
	}
	if in.CanBeGlutenFree != nil {
		cake.CanBeGlutenFree = *in.CanBeGlutenFree
		cols = append(cols, "can_be_gluten_free")
	}
	if in.SortOrder != nil {
		cake.SortOrder = *in.SortOrder
		cols = append(cols, "sort_order")
	}
	return cols, nil
}

// POST /api/admin/cakes
func CreateCake(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in cakeInput
		if err := controllers.BindStrict(c, &in); err != nil {
			_ = c.Error(err)
			return
		}
		if in.Name == nil || in.Price == nil {
			_ = c.Error(apperrors.Validation("name and price are required"))
			return
		}

		cake := models.Cake{IsAvailable: true}
		if _, err := in.apply(&cake); err != nil {
			_ = c.Error(err)
			return
		}
		if err := d.DB.WithContext(c.Request.Context()).Create(&cake).Error; err != nil {
			_ = c.Error(apperrors.Database("Failed to create cake", err))
			return
		}

		d.Log.Info("cake created", zap.Uint("cake_id", cake.ID), zap.String("name", cake.Name))
		c.JSON(http.StatusCreated, cake)
	}
}

func cakeNotFound(id uint) string {
	return fmt.Sprintf("Cake with id %d not found", id)
}
