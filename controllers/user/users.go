package usercontroller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/auth"
	"github.com/George-Dev-Web/cakes2/controllers"
	"github.com/George-Dev-Web/cakes2/models"
	"github.com/George-Dev-Web/cakes2/pagination"
)

// GET /api/admin/users[?search=&page=&per_page=]
func GetAllUsers(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := pagination.FromQuery(c)
		query := d.DB.WithContext(c.Request.Context()).Model(&models.User{})
		if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
			like := "%" + search + "%"
			query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
		}
		query = query.Session(&gorm.Session{})

		var total int64
		if err := query.Count(&total).Error; err != nil {
			_ = c.Error(apperrors.Database("Failed to count users", err))
			return
		}
		users := []models.User{}
		if err := query.Order("created_at DESC, id DESC").Offset(p.Offset()).Limit(p.PerPage).Find(&users).Error; err != nil {
			_ = c.Error(apperrors.Database("Failed to fetch users", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users, "pagination": p.Meta(total)})
	}
}

type adminRequest struct {
	IsAdmin *bool `json:"is_admin"`
}

// PUT /api/admin/users/:id/admin
//
// Admins cannot revoke their own access. The change applies to tokens issued
// after it.
func SetAdmin(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		var req adminRequest
		if err := controllers.BindStrict(c, &req); err != nil {
			_ = c.Error(err)
			return
		}
		if req.IsAdmin == nil {
			_ = c.Error(apperrors.Validation("is_admin is required"))
			return
		}
		if self, _ := auth.CurrentUserID(c); self == id && !*req.IsAdmin {
			_ = c.Error(apperrors.Validation("You cannot revoke your own admin access"))
			return
		}

		db := d.DB.WithContext(c.Request.Context())
		var user models.User
		if err := db.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				_ = c.Error(apperrors.NotFound(fmt.Sprintf("User with id %d not found", id)))
				return
			}
			_ = c.Error(apperrors.Database("Failed to retrieve user", err))
			return
		}
		if err := db.Model(&user).Update("is_admin", *req.IsAdmin).Error; err != nil {
			_ = c.Error(apperrors.Database("Failed to update user", err))
			return
		}

		d.Log.Info("admin flag changed", zap.Uint("user_id", user.ID), zap.Bool("is_admin", user.IsAdmin))
		c.JSON(http.StatusOK, gin.H{"message": "User updated", "user": user})
	}
}
