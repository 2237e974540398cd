package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/database"
	"github.com/George-Dev-Web/cakes2/models"
	"github.com/George-Dev-Web/cakes2/services/cart"
)

// Deps is what the auth handlers need.
type Deps struct {
	DB           *gorm.DB
	Tokens       *TokenIssuer
	Carts        *cart.Engine
	Google       TokenVerifier // nil disables Google sign-in
	SecureCookie bool
	Log          *zap.Logger
}

const minPasswordLength = 6

type registerInput struct {
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Password    string         `json:"password"`
	Phone       string         `json:"phone"`
	Address     string         `json:"address"`
	Preferences map[string]any `json:"preferences"`
}

// POST /api/auth/register
func Register(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in registerInput
		if err := c.ShouldBindJSON(&in); err != nil {
			_ = c.Error(apperrors.Validation("Invalid request body"))
			return
		}
		in.Name = strings.TrimSpace(in.Name)
		in.Email = normalizeEmail(in.Email)
		if err := validateRegistration(in); err != nil {
			_ = c.Error(err)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			_ = c.Error(apperrors.Database("Failed to hash password", err))
			return
		}

		user := models.User{
			Name:         in.Name,
			Email:        in.Email,
			PasswordHash: string(hash),
			Phone:        strings.TrimSpace(in.Phone),
			Address:      strings.TrimSpace(in.Address),
			Preferences:  in.Preferences,
			Provider:     models.ProviderPassword,
		}
		if err := d.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
			if database.IsUniqueViolation(err) {
				_ = c.Error(apperrors.Conflict("Email already registered"))
				return
			}
			_ = c.Error(apperrors.Database("Failed to create user", err))
			return
		}
		if _, err := d.Carts.GetOrCreateCart(c.Request.Context(), cart.UserOwner(user.ID)); err != nil {
			d.Log.Error("failed to create cart for new user", zap.Uint("user_id", user.ID), zap.Error(err))
		}

		signIn(c, d, &user, http.StatusCreated, "Registration successful")
	}
}

func validateRegistration(in registerInput) error {
	if n := len([]rune(in.Name)); n < 2 || n > 100 {
		return apperrors.Validation("Name must be between 2 and 100 characters")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || len(in.Email) > 100 {
		return apperrors.Validation("Invalid email address")
	}
	if len(in.Password) < minPasswordLength {
		return apperrors.Validation("Password must be at least %d characters", minPasswordLength)
	}
	if len(in.Phone) > 20 {
		return apperrors.Validation("Phone must be at most 20 characters")
	}
	return nil
}

// POST /api/auth/login
func Login(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" || in.Password == "" {
			_ = c.Error(apperrors.Validation("Email and password are required"))
			return
		}

		var user models.User
		err := d.DB.WithContext(c.Request.Context()).Where("email = ?", normalizeEmail(in.Email)).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = c.Error(apperrors.Authentication("Invalid email or password"))
			return
		}
		if err != nil {
			_ = c.Error(apperrors.Database("Failed to load user", err))
			return
		}
		if user.PasswordHash == "" ||
			bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
			_ = c.Error(apperrors.Authentication("Invalid email or password"))
			return
		}

		signIn(c, d, &user, http.StatusOK, "Login successful")
	}
}

// POST /api/auth/logout
func Logout(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ClearAccessCookie(c, d.SecureCookie)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// GET /api/auth/me
func Me(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := loadCurrentUser(c, d.DB)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

type profileInput struct {
	Name        *string         `json:"name"`
	Phone       *string         `json:"phone"`
	Address     *string         `json:"address"`
	Preferences *map[string]any `json:"preferences"`
}

// PUT /api/auth/profile
func UpdateProfile(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := loadCurrentUser(c, d.DB)
		if err != nil {
			_ = c.Error(err)
			return
		}

		var in profileInput
		dec := json.NewDecoder(c.Request.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			_ = c.Error(apperrors.Validation("Invalid profile update: only name, phone, address and preferences may be changed"))
			return
		}

		var patch models.User
		var fields []string
		if in.Name != nil {
			patch.Name = strings.TrimSpace(*in.Name)
			if n := len([]rune(patch.Name)); n < 2 || n > 100 {
				_ = c.Error(apperrors.Validation("Name must be between 2 and 100 characters"))
				return
			}
			fields = append(fields, "name")
		}
		if in.Phone != nil {
			patch.Phone = strings.TrimSpace(*in.Phone)
			if len(patch.Phone) > 20 {
				_ = c.Error(apperrors.Validation("Phone must be at most 20 characters"))
				return
			}
			fields = append(fields, "phone")
		}
		if in.Address != nil {
			patch.Address = strings.TrimSpace(*in.Address)
			fields = append(fields, "address")
		}
		if in.Preferences != nil {
			patch.Preferences = *in.Preferences
			fields = append(fields, "preferences")
		}

		db := d.DB.WithContext(c.Request.Context())
		if len(fields) > 0 {
			if err := db.Model(user).Select(fields).Updates(&patch).Error; err != nil {
				_ = c.Error(apperrors.Database("Failed to update profile", err))
				return
			}
		}

		if err := db.First(user, user.ID).Error; err != nil {
			_ = c.Error(apperrors.Database("Failed to reload profile", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
	}
}

func loadCurrentUser(c *gin.Context, db *gorm.DB) (*models.User, error) {
	id, ok := CurrentUserID(c)
	if !ok {
		return nil, apperrors.Authentication("Authentication required")
	}
	var user models.User
	err := db.WithContext(c.Request.Context()).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Authentication("User no longer exists")
	}
	if err != nil {
		return nil, apperrors.Database("Failed to load user", err)
	}
	return &user, nil
}

// signIn merges any guest cart, sets the access cookie and writes the
// response.
func signIn(c *gin.Context, d *Deps, user *models.User, status int, message string) {
	merged := 0
	if sid, err := c.Cookie(SessionCookie); err == nil && ValidSessionID(sid) {
		n, err := d.Carts.MergeGuestCart(c.Request.Context(), sid, user.ID)
		if err != nil {
			d.Log.Error("guest cart merge failed", zap.Uint("user_id", user.ID), zap.Error(err))
		}
		merged = n
	}

	token, _, err := d.Tokens.Issue(user)
	if err != nil {
		_ = c.Error(apperrors.Database("Failed to issue token", err))
		return
	}
	SetAccessCookie(c, token, d.Tokens.TTL(), d.SecureCookie)

	c.JSON(status, gin.H{
		"message":      message,
		"user":         user,
		"token":        token,
		"merged_items": merged,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
