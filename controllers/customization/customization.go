package customizationcontroller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/cache"
	"github.com/George-Dev-Web/cakes2/controllers"
	"github.com/George-Dev-Web/cakes2/models"
)

// Group is one category of active options as the storefront renders it.
type Group struct {
	Category models.OptionCategory       `json:"category"`
	Options  []models.CustomizationOption `json:"options"`
}

// GET /api/customizations[?category=]
func GetCustomizations(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := models.OptionCategory(strings.ToLower(strings.TrimSpace(c.Query("category"))))
		if category != "" && !category.Valid() {
			_ = c.Error(apperrors.Validation("Invalid category: %s", category))
			return
		}

		groups, err := cache.Fetch(c.Request.Context(), d.Cache, cache.CustomizationsKey(string(category)),
			func(ctx context.Context) ([]Group, error) {
				return loadGroups(d.DB.WithContext(ctx), category)
			})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, groups)
	}
}

// loadGroups returns the active options grouped in display order. Empty
// categories are left out.
func loadGroups(db *gorm.DB, category models.OptionCategory) ([]Group, error) {
	query := db.Where("active = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var options []models.CustomizationOption
	if err := query.Order("sort_order, price, id").Find(&options).Error; err != nil {
		return nil, apperrors.Database("Failed to retrieve customizations", err)
	}

	byCategory := make(map[models.OptionCategory][]models.CustomizationOption)
	for _, opt := range options {
		byCategory[opt.Category] = append(byCategory[opt.Category], opt)
	}
	groups := make([]Group, 0, len(byCategory))
	for _, cat := range models.OptionCategories {
		if opts := byCategory[cat]; len(opts) > 0 {
			groups = append(groups, Group{Category: cat, Options: opts})
		}
	}
	return groups, nil
}

// GET /api/customizations/categories
func GetCategories() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"categories": models.OptionCategories})
	}
}

// GET /api/admin/customizations
func GetAllCustomizations(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var options []models.CustomizationOption
		if err := d.DB.WithContext(c.Request.Context()).Order("category, sort_order, id").Find(&options).Error; err != nil {
			_ = c.Error(apperrors.Database("Failed to retrieve customizations", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"customizations": options})
	}
}

type optionInput struct {
	Category               *string          `json:"category"`
	Name                   *string          `json:"name"`
	Description            *string          `json:"description"`
	Price                  *decimal.Decimal `json:"price"`
	ImageURL               *string          `json:"image_url"`
	Active                 *bool            `json:"active"`
	SortOrder              *int             `json:"sort_order"`
	IsVeganCompatible      *bool            `json:"is_vegan_compatible"`
	IsGlutenFreeCompatible *bool            `json:"is_gluten_free_compatible"`
}

func (in optionInput) apply(opt *models.CustomizationOption) ([]string, error) {
	var cols []string
	if in.Category != nil {
		cat := models.OptionCategory(strings.ToLower(strings.TrimSpace(*in.Category)))
		if !cat.Valid() {
			return nil, apperrors.Validation("Invalid category: %s", cat)
		}
		opt.Category = cat
		cols = append(cols, "category")
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len([]rune(name)) > 100 {
			return nil, apperrors.Validation("Name must be between 1 and 100 characters")
		}
		opt.Name = name
		cols = append(cols, "name")
	}
	if in.Description != nil {
		opt.Description = *in.Description
		cols = append(cols, "description")
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, apperrors.Validation("Price must not be negative")
		}
		opt.Price = in.Price.Round(2)
		cols = append(cols, "price")
	}
	if in.ImageURL != nil {
		if len(*in.ImageURL) > 500 {
			return nil, apperrors.Validation("Image URL is too long")
		}
		opt.ImageURL = strings.TrimSpace(*in.ImageURL)
		cols = append(cols, "image_url")
	}
	if in.Active != nil {
		opt.Active = *in.Active
		cols = append(cols, "active")
	}
	if in.SortOrder != nil {
		opt.SortOrder = *in.SortOrder
		cols = append(cols, "sort_order")
	}
	if in.IsVeganCompatible != nil {
		opt.IsVeganCompatible = *in.IsVeganCompatible
		cols = append(cols, "is_vegan_compatible")
	}
	if in.IsGlutenFreeCompatible != nil {
		opt.IsGlutenFreeCompatible = *in.IsGlutenFreeCompatible
		cols = append(cols, "is_gluten_free_compatible")
	}
	return cols, nil
}

// POST /api/admin/customizations
//
// New options are active and compatible with every diet unless the body
// says otherwise.
func CreateCustomization(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in optionInput
		if err := controllers.BindStrict(c, &in); err != nil {
			_ = c.Error(err)
			return
		}
		if in.Category == nil || in.Name == nil {
			_ = c.Error(apperrors.Validation("category and name are required"))
			return
		}

		opt := models.CustomizationOption{
			Active:                 true,
			IsVeganCompatible:      true,
			IsGlutenFreeCompatible: true,
		}
		if _, err := in.apply(&opt); err != nil {
			_ = c.Error(err)
			return
		}
		if err := d.DB.WithContext(c.Request.Context()).Create(&opt).Error; err != nil {
			_ = c.Error(apperrors.Database("Failed to create customization", err))
			return
		}

		d.Cache.InvalidateCustomizations(c.Request.Context())
		d.Log.Info("customization created", zap.Uint("option_id", opt.ID), zap.String("category", string(opt.Category)))
		c.JSON(http.StatusCreated, opt)
	}
}

// PUT /api/admin/customizations/:id
func UpdateCustomization(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		var in optionInput
		if err := controllers.BindStrict(c, &in); err != nil {
			_ = c.Error(err)
			return
		}

		db := d.DB.WithContext(c.Request.Context())
		var opt models.CustomizationOption
		if err := db.First(&opt, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				_ = c.Error(apperrors.NotFound(optionNotFound(id)))
				return
			}
			_ = c.Error(apperrors.Database("Failed to retrieve customization", err))
			return
		}

		cols, err := in.apply(&opt)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if len(cols) > 0 {
			if err := db.Model(&opt).Select(cols).Updates(&opt).Error; err != nil {
				_ = c.Error(apperrors.Database("Failed to update customization", err))
				return
			}
			d.Cache.InvalidateCustomizations(c.Request.Context())
		}
		c.JSON(http.StatusOK, opt)
	}
}

// DELETE /api/admin/customizations/:id
func DeleteCustomization(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		res := d.DB.WithContext(c.Request.Context()).Delete(&models.CustomizationOption{}, id)
		if res.Error != nil {
			_ = c.Error(apperrors.Database("Failed to delete customization", res.Error))
			return
		}
		if res.RowsAffected == 0 {
			_ = c.Error(apperrors.NotFound(optionNotFound(id)))
			return
		}

		d.Cache.InvalidateCustomizations(c.Request.Context())
		d.Log.Info("customization deleted", zap.Uint("option_id", id))
		c.Status(http.StatusNoContent)
	}
}

func optionNotFound(id uint) string {
	return fmt.Sprintf("Customization option with id %d not found", id)
}
