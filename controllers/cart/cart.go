package cartcontroller

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/auth"
	"github.com/George-Dev-Web/cakes2/controllers"
	"github.com/George-Dev-Web/cakes2/models"
	"github.com/George-Dev-Web/cakes2/services/cart"
)

type itemView struct {
	models.CartItem
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// cartView is the cart as clients see it: lines carry their derived
// subtotal and the cart its total and item count.
type cartView struct {
	ID        uint            `json:"id"`
	UserID    *uint           `json:"user_id"`
	Items     []itemView      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func newCartView(c *models.Cart) cartView {
	items := make([]itemView, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, itemView{CartItem: item, UnitPrice: item.UnitPrice(), Subtotal: item.Subtotal()})
	}
	return cartView{
		ID:        c.ID,
		UserID:    c.UserID,
		Items:     items,
		Total:     cart.Total(c),
		ItemCount: cart.ItemCount(c),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// GET /api/cart
func GetCart(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ct, err := d.Carts.GetOrCreateCart(c.Request.Context(), auth.Owner(c))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, newCartView(ct))
	}
}

// POST /api/cart/items
//
// Price fields in the body are ignored; lines are always priced from the
// catalog.
func AddItem(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var spec cart.ItemSpec
		if err := c.ShouldBindJSON(&spec); err != nil {
			_ = c.Error(apperrors.Validation("Invalid cart item: %v", err))
			return
		}
		ct, err := d.Carts.AddItem(c.Request.Context(), auth.Owner(c), spec)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, newCartView(ct))
	}
}

// PUT /api/cart/items/:id
func UpdateItem(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		var patch cart.ItemPatch
		if err := controllers.BindStrict(c, &patch); err != nil {
			_ = c.Error(err)
			return
		}
		ct, err := d.Carts.UpdateItem(c.Request.Context(), auth.Owner(c), itemID, patch)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, newCartView(ct))
	}
}

// DELETE /api/cart/items/:id
func RemoveItem(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		ct, err := d.Carts.RemoveItem(c.Request.Context(), auth.Owner(c), itemID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, newCartView(ct))
	}
}

// DELETE /api/cart and POST /api/cart/clear
func ClearCart(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ct, err := d.Carts.Clear(c.Request.Context(), auth.Owner(c))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared successfully", "cart": newCartView(ct)})
	}
}

// POST /api/cart/items/:id/images (multipart: image, description)
func UploadItemImage(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, err := controllers.ParamID(c, "id")
		if err != nil {
			_ = c.Error(err)
			return
		}
		owner := auth.Owner(c)
		ctx := c.Request.Context()

		if err := d.Carts.CheckItem(ctx, owner, itemID); err != nil {
			_ = c.Error(err)
			return
		}
		description := strings.TrimSpace(c.PostForm("description"))
		if len([]rune(description)) > 500 {
			_ = c.Error(apperrors.Validation("Description must be at most 500 characters"))
			return
		}

		header, _ := c.FormFile("image")
		asset, err := d.UploadImage(c, "image", "cake_references")
		if err != nil {
			_ = c.Error(err)
			return
		}

		image, err := d.Carts.AttachImage(ctx, owner, itemID, cart.ImageInput{
			URL:         asset.URL,
			PublicID:    asset.PublicID,
			Filename:    header.Filename,
			Description: description,
		})
		if err != nil {
			if delErr := d.Uploader.Delete(ctx, asset.PublicID); delErr != nil {
				d.Log.Warn("failed to remove orphaned upload", zap.String("public_id", asset.PublicID), zap.Error(delErr))
			}
			_ = c.Error(err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "Image uploaded successfully",
			"image":   image,
		})
	}
}
