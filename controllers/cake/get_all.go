package cakecontroller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/controllers"
	"github.com/George-Dev-Web/cakes2/models"
	"github.com/George-Dev-Web/cakes2/pagination"
)

// sort_by values and the column each one orders by, with its default
// direction.
var sortColumns = map[string]struct {
	column string
	desc   bool
}{
	"sort_order": {"sort_order", false},
	"name":       {"name", false},
	"price":      {"price", false},
	"created_at": {"created_at", true},
	"views":      {"views_count", true},
	"popular":    {"views_count", true},
}

// GET /api/cakes?page&per_page&category&featured&search&sort_by&order
func GetCakes(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := pagination.FromQuery(c)

		query := d.DB.WithContext(c.Request.Context()).
			Model(&models.Cake{}).
			Where("is_available = ?", true)

		if category := strings.TrimSpace(c.Query("category")); category != "" {
			query = query.Where("LOWER(category) = ?", strings.ToLower(category))
		}
		if featured := c.Query("featured"); featured != "" {
			b, err := strconv.ParseBool(featured)
			if err != nil {
				_ = c.Error(apperrors.Validation("Invalid featured"))
				return
			}
			query = query.Where("is_featured = ?", b)
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
		}

		sortBy := c.DefaultQuery("sort_by", "sort_order")
		sort, ok := sortColumns[sortBy]
		if !ok {
			_ = c.Error(apperrors.Validation("Invalid sort_by: %s", sortBy))
			return
		}
		switch strings.ToLower(c.Query("order")) {
		case "asc":
			sort.desc = false
		case "desc":
			sort.desc = true
		}

		query = query.Session(&gorm.Session{})
		var total int64
		if err := query.Count(&total).Error; err != nil {
			_ = c.Error(apperrors.Database("Failed to count cakes", err))
			return
		}

		var cakes []models.Cake
		err := query.
			Order(clause.OrderByColumn{Column: clause.Column{Name: sort.column}, Desc: sort.desc}).
			Order("id").
			Limit(p.PerPage).
			Offset(p.Offset()).
			Find(&cakes).Error
		if err != nil {
			_ = c.Error(apperrors.Database("Failed to retrieve cakes", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"cakes":      cakes,
			"pagination": p.Meta(total),
		})
	}
}
