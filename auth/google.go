package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	firebase "firebase.google.com/go"
	fbauth "firebase.google.com/go/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/database"
	"github.com/George-Dev-Web/cakes2/models"
	"github.com/George-Dev-Web/cakes2/services/cart"
)

// TokenVerifier checks a Firebase ID token. *fbauth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// NewFirebaseVerifier builds a Firebase Auth client from the service account
// JSON held in the environment.
func NewFirebaseVerifier(ctx context.Context, credentialsJSON, projectID string) (*fbauth.Client, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID},
		option.WithCredentialsJSON([]byte(credentialsJSON)))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("get firebase auth client: %w", err)
	}
	return client, nil
}

// POST /api/auth/google
func Google(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d.Google == nil {
			_ = c.Error(apperrors.NotFound("Google sign-in is not enabled"))
			return
		}

		var req struct {
			IDToken string `json:"id_token"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.IDToken == "" {
			_ = c.Error(apperrors.Validation("id_token is required"))
			return
		}

		token, err := d.Google.VerifyIDTokenAndCheckRevoked(c.Request.Context(), req.IDToken)
		if err != nil {
			d.Log.Warn("firebase token rejected", zap.Error(err))
			_ = c.Error(apperrors.Authentication("Invalid or revoked ID token"))
			return
		}

		email, _ := token.Claims["email"].(string)
		email = normalizeEmail(email)
		if email == "" {
			_ = c.Error(apperrors.Authentication("Google account has no email address"))
			return
		}
		name, _ := token.Claims["name"].(string)

		user, err := findOrCreateGoogleUser(c.Request.Context(), d, email, strings.TrimSpace(name))
		if err != nil {
			_ = c.Error(err)
			return
		}

		signIn(c, d, user, http.StatusOK, "Login successful")
	}
}

func findOrCreateGoogleUser(ctx context.Context, d *Deps, email, name string) (*models.User, error) {
	db := d.DB.WithContext(ctx)

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Database("Failed to load user", err)
	}

	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user = models.User{Name: name, Email: email, Provider: models.ProviderGoogle}
	if err := db.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			// Lost a race with a concurrent sign-in for the same account.
			if err := db.Where("email = ?", email).First(&user).Error; err == nil {
				return &user, nil
			}
		}
		return nil, apperrors.Database("Failed to create user", err)
	}
	if _, err := d.Carts.GetOrCreateCart(ctx, cart.UserOwner(user.ID)); err != nil {
		d.Log.Error("failed to create cart for new user", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	d.Log.Info("user created from google sign-in", zap.Uint("user_id", user.ID))
	return &user, nil
}
