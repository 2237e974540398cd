// Package cart owns the cart lifecycle and line pricing.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/database"
	"github.com/George-Dev-Web/cakes2/models"
	"github.com/George-Dev-Web/cakes2/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Owner identifies whose cart an operation acts on. A set UserID wins over
// SessionID.
type Owner struct {
	UserID    *uint
	SessionID string
}

func UserOwner(id uint) Owner { return Owner{UserID: &id} }

func GuestOwner(sessionID string) Owner { return Owner{SessionID: sessionID} }

func (o Owner) IsZero() bool { return o.UserID == nil && o.SessionID == "" }

func (o Owner) String() string {
	if o.UserID != nil {
		return fmt.Sprintf("user:%d", *o.UserID)
	}
	return "session:" + o.SessionID
}

type Engine struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewEngine(db *gorm.DB, log *zap.Logger) *Engine {
	return &Engine{db: db, log: log.Named("cart")}
}

// Total is the sum of the line subtotals.
func Total(c *models.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount is the sum of the line quantities.
func ItemCount(c *models.Cart) int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// GetOrCreateCart returns the owner's cart, creating it on first use.
func (e *Engine) GetOrCreateCart(ctx context.Context, owner Owner) (*models.Cart, error) {
	cart, err := e.findOrCreate(e.db.WithContext(ctx), owner)
	if err != nil {
		return nil, err
	}
	return e.load(ctx, cart.ID)
}

func (e *Engine) findOrCreate(tx *gorm.DB, owner Owner) (*models.Cart, error) {
	if owner.IsZero() {
		return nil, apperrors.Validation("A user or cart session is required")
	}

	var cart models.Cart
	err := ownerScope(tx, owner).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Database("Failed to fetch cart", err)
	}

	cart = models.Cart{}
	if owner.UserID != nil {
		cart.UserID = owner.UserID
	} else {
		sid := owner.SessionID
		cart.SessionID = &sid
	}
	if err := tx.Create(&cart).Error; err != nil {
		// Lost a creation race with a parallel request; use the winner's cart.
		if database.IsUniqueViolation(err) {
			if err := ownerScope(tx, owner).First(&cart).Error; err == nil {
				return &cart, nil
			}
		}
		return nil, apperrors.Database("Failed to create cart", err)
	}
	e.log.Info("cart created", zap.Uint("cart_id", cart.ID), zap.Stringer("owner", owner))
	return &cart, nil
}

func ownerScope(tx *gorm.DB, owner Owner) *gorm.DB {
	if owner.UserID != nil {
		return tx.Where("user_id = ?", *owner.UserID)
	}
	return tx.Where("session_id = ?", owner.SessionID)
}

func (e *Engine) load(ctx context.Context, cartID uint) (*models.Cart, error) {
	var cart models.Cart
	err := e.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id") }).
		Preload("Items.Cake").
		Preload("Items.ReferenceImages").
		First(&cart, cartID).Error
	if err != nil {
		return nil, apperrors.Database("Failed to fetch cart", err)
	}
	return &cart, nil
}

// ItemSpec is the configuration of a new cart line. Prices are never part
// of it; they are derived from the catalog.
type ItemSpec struct {
	CakeID        *uint  `json:"cake_id"`
	Quantity      int    `json:"quantity"`
	CakeShape     string `json:"cake_shape"`
	CakeSize      string `json:"cake_size"`
	CakeLayers    int    `json:"cake_layers"`
	Flavor        string `json:"flavor"`
	Filling       string `json:"filling"`
	Frosting      string `json:"frosting"`
	IsGlutenFree  bool   `json:"is_gluten_free"`
	IsVegan       bool   `json:"is_vegan"`
	IsSugarFree   bool   `json:"is_sugar_free"`
	IsDairyFree   bool   `json:"is_dairy_free"`
	Toppings      []uint `json:"toppings"`
	Decorations   string `json:"decorations"`
	MessageOnCake string `json:"message_on_cake"`
	Notes         string `json:"notes"`
}

// AddItem validates and prices spec and appends it to the owner's cart.
func (e *Engine) AddItem(ctx context.Context, owner Owner, spec ItemSpec) (*models.Cart, error) {
	item := models.CartItem{
		CakeID:        spec.CakeID,
		Quantity:      spec.Quantity,
		CakeShape:     strings.TrimSpace(spec.CakeShape),
		CakeSize:      strings.TrimSpace(spec.CakeSize),
		CakeLayers:    spec.CakeLayers,
		Flavor:        strings.TrimSpace(spec.Flavor),
		Filling:       strings.TrimSpace(spec.Filling),
		Frosting:      strings.TrimSpace(spec.Frosting),
		IsGlutenFree:  spec.IsGlutenFree,
		IsVegan:       spec.IsVegan,
		IsSugarFree:   spec.IsSugarFree,
		IsDairyFree:   spec.IsDairyFree,
		Toppings:      dedupe(spec.Toppings),
		Decorations:   spec.Decorations,
		MessageOnCake: spec.MessageOnCake,
		Notes:         spec.Notes,
	}
	if item.CakeLayers == 0 {
		item.CakeLayers = 2
	}
	if item.CakeID != nil && *item.CakeID == 0 {
		item.CakeID = nil
	}

	var cartID uint
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := e.findOrCreate(tx, owner)
		if err != nil {
			return err
		}
		cartID = cart.ID

		if err := validateItem(&item); err != nil {
			return err
		}
		if err := priceItem(tx, &item); err != nil {
			return err
		}

		item.CartID = cart.ID
		if err := tx.Create(&item).Error; err != nil {
			return apperrors.Database("Failed to add item to cart", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("cart item added",
		zap.Uint("cart_id", cartID),
		zap.Uint("item_id", item.ID),
		zap.String("base_price", item.BasePrice.StringFixed(2)),
		zap.String("customization_price", item.CustomizationPrice.StringFixed(2)),
	)
	return e.load(ctx, cartID)
}

// ItemPatch is the allow-list of fields a customer may change on a line.
// Nil means unchanged.
type ItemPatch struct {
	Quantity      *int    `json:"quantity"`
	CakeShape     *string `json:"cake_shape"`
	CakeSize      *string `json:"cake_size"`
	CakeLayers    *int    `json:"cake_layers"`
	Flavor        *string `json:"flavor"`
	Filling       *string `json:"filling"`
	Frosting      *string `json:"frosting"`
	IsGlutenFree  *bool   `json:"is_gluten_free"`
	IsVegan       *bool   `json:"is_vegan"`
	IsSugarFree   *bool   `json:"is_sugar_free"`
	IsDairyFree   *bool   `json:"is_dairy_free"`
	Toppings      *[]uint `json:"toppings"`
	Decorations   *string `json:"decorations"`
	MessageOnCake *string `json:"message_on_cake"`
	Notes         *string `json:"notes"`
}

func (p ItemPatch) affectsPrice() bool {
	return p.CakeSize != nil || p.IsGlutenFree != nil || p.IsVegan != nil || p.Toppings != nil
}

// UpdateItem applies patch to one of the owner's lines and reprices it when
// a price-affecting field changed.
func (e *Engine) UpdateItem(ctx context.Context, owner Owner, itemID uint, patch ItemPatch) (*models.Cart, error) {
	var cartID uint
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := e.findOrCreate(tx, owner)
		if err != nil {
			return err
		}
		cartID = cart.ID

		item, err := findItem(tx, cart.ID, itemID)
		if err != nil {
			return err
		}

		applyPatch(item, patch)
		if err := validateItem(item); err != nil {
			return err
		}
		if patch.affectsPrice() {
			if err := priceItem(tx, item); err != nil {
				return err
			}
		}
		if err := tx.Omit("Cake", "ReferenceImages").Save(item).Error; err != nil {
			return apperrors.Database("Failed to update cart item", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("cart item updated", zap.Uint("cart_id", cartID), zap.Uint("item_id", itemID))
	return e.load(ctx, cartID)
}

func applyPatch(item *models.CartItem, p ItemPatch) {
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.CakeShape != nil {
		item.CakeShape = strings.TrimSpace(*p.CakeShape)
	}
	if p.CakeSize != nil {
		item.CakeSize = strings.TrimSpace(*p.CakeSize)
	}
	if p.CakeLayers != nil {
		item.CakeLayers = *p.CakeLayers
	}
	if p.Flavor != nil {
		item.Flavor = strings.TrimSpace(*p.Flavor)
	}
	if p.Filling != nil {
		item.Filling = strings.TrimSpace(*p.Filling)
	}
	if p.Frosting != nil {
		item.Frosting = strings.TrimSpace(*p.Frosting)
	}
	if p.IsGlutenFree != nil {
		item.IsGlutenFree = *p.IsGlutenFree
	}
	if p.IsVegan != nil {
		item.IsVegan = *p.IsVegan
	}
	if p.IsSugarFree != nil {
		item.IsSugarFree = *p.IsSugarFree
	}
	if p.IsDairyFree != nil {
		item.IsDairyFree = *p.IsDairyFree
	}
	if p.Toppings != nil {
		item.Toppings = dedupe(*p.Toppings)
	}
	if p.Decorations != nil {
		item.Decorations = *p.Decorations
	}
	if p.MessageOnCake != nil {
		item.MessageOnCake = *p.MessageOnCake
	}
	if p.Notes != nil {
		item.Notes = *p.Notes
	}
}

// RemoveItem deletes one of the owner's lines.
func (e *Engine) RemoveItem(ctx context.Context, owner Owner, itemID uint) (*models.Cart, error) {
	var cartID uint
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := e.findOrCreate(tx, owner)
		if err != nil {
			return err
		}
		cartID = cart.ID

		result := tx.Where("id = ? AND cart_id = ?", itemID, cart.ID).Delete(&models.CartItem{})
		if result.Error != nil {
			return apperrors.Database("Failed to remove cart item", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NotFound("Cart item not found")
		}
		if err := tx.Where("cart_item_id = ?", itemID).Delete(&models.CartItemImage{}).Error; err != nil {
			return apperrors.Database("Failed to remove cart item images", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("cart item removed", zap.Uint("cart_id", cartID), zap.Uint("item_id", itemID))
	return e.load(ctx, cartID)
}

// Clear deletes every line in the owner's cart. The cart itself is kept.
func (e *Engine) Clear(ctx context.Context, owner Owner) (*models.Cart, error) {
	var cartID uint
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := e.findOrCreate(tx, owner)
		if err != nil {
			return err
		}
		cartID = cart.ID
		return ClearItems(tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("cart cleared", zap.Uint("cart_id", cartID))
	return e.load(ctx, cartID)
}

// ClearItems deletes a cart's lines and their images inside tx.
func ClearItems(tx *gorm.DB, cartID uint) error {
	itemIDs := tx.Model(&models.CartItem{}).Select("id").Where("cart_id = ?", cartID)
	if err := tx.Where("cart_item_id IN (?)", itemIDs).Delete(&models.CartItemImage{}).Error; err != nil {
		return apperrors.Database("Failed to clear cart images", err)
	}
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return apperrors.Database("Failed to clear cart", err)
	}
	return nil
}

// ImageInput describes an uploaded reference picture.
type ImageInput struct {
	URL         string
	PublicID    string
	Filename    string
	Description string
}

// AttachImage records a reference image on one of the owner's lines.
func (e *Engine) AttachImage(ctx context.Context, owner Owner, itemID uint, in ImageInput) (*models.CartItemImage, error) {
	if len(in.Description) > 500 {
		return nil, apperrors.Validation("Description must be at most 500 characters")
	}

	var image models.CartItemImage
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := e.findOrCreate(tx, owner)
		if err != nil {
			return err
		}
		if _, err := findItem(tx, cart.ID, itemID); err != nil {
			return err
		}
		image = models.CartItemImage{
			CartItemID:    itemID,
			ImageURL:      in.URL,
			PublicID:      in.PublicID,
			ImageFilename: in.Filename,
			Description:   in.Description,
		}
		if err := tx.Create(&image).Error; err != nil {
			return apperrors.Database("Failed to save image", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("reference image attached", zap.Uint("item_id", itemID), zap.String("public_id", in.PublicID))
	return &image, nil
}

// CheckItem confirms itemID is in the owner's cart without changing anything.
func (e *Engine) CheckItem(ctx context.Context, owner Owner, itemID uint) error {
	cart, err := e.findOrCreate(e.db.WithContext(ctx), owner)
	if err != nil {
		return err
	}
	_, err = findItem(e.db.WithContext(ctx), cart.ID, itemID)
	return err
}

// LockForCheckout loads the owner's cart with items and images inside tx,
// holding a row lock on the cart until tx ends.
func LockForCheckout(tx *gorm.DB, owner Owner) (*models.Cart, error) {
	if owner.IsZero() {
		return nil, apperrors.Validation("Cart is empty")
	}
	var cart models.Cart
	err := ownerScope(tx, owner).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Validation("Cart is empty")
	}
	if err != nil {
		return nil, apperrors.Database("Failed to fetch cart", err)
	}
	err = tx.Where("cart_id = ?", cart.ID).
		Order("id").
		Preload("Cake", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("ReferenceImages").
		Find(&cart.Items).Error
	if err != nil {
		return nil, apperrors.Database("Failed to fetch cart items", err)
	}
	return &cart, nil
}

// MergeGuestCart moves the lines of a guest cart into the user's cart and
// returns how many were moved. The emptied guest cart is kept.
func (e *Engine) MergeGuestCart(ctx context.Context, sessionID string, userID uint) (int, error) {
	if sessionID == "" {
		return 0, nil
	}

	var moved int64
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var guest models.Cart
		err := tx.Where("session_id = ?", sessionID).First(&guest).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return apperrors.Database("Failed to fetch guest cart", err)
		}

		userCart, err := e.findOrCreate(tx, UserOwner(userID))
		if err != nil {
			return err
		}
		if userCart.ID == guest.ID {
			return nil
		}

		result := tx.Model(&models.CartItem{}).
			Where("cart_id = ?", guest.ID).
			Update("cart_id", userCart.ID)
		if result.Error != nil {
			return apperrors.Database("Failed to merge guest cart", result.Error)
		}
		moved = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}

	if moved > 0 {
		e.log.Info("guest cart merged", zap.Uint("user_id", userID), zap.Int64("items", moved))
	}
	return int(moved), nil
}

func findItem(tx *gorm.DB, cartID, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := tx.Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Cart item not found")
	}
	if err != nil {
		return nil, apperrors.Database("Failed to fetch cart item", err)
	}
	return &item, nil
}

func validateItem(item *models.CartItem) error {
	if item.Quantity < pricing.MinQuantity || item.Quantity > pricing.MaxQuantity {
		return apperrors.Validation("Quantity must be between %d and %d", pricing.MinQuantity, pricing.MaxQuantity)
	}
	if item.CakeID == nil {
		if item.CakeSize == "" {
			return apperrors.Validation("Either cake_id or customization details required")
		}
		if !pricing.ValidSize(item.CakeSize) {
			return apperrors.Validation("cake_size must be one of %s", strings.Join(pricing.Sizes, ", "))
		}
	} else if item.CakeSize != "" && !pricing.ValidSize(item.CakeSize) {
		return apperrors.Validation("cake_size must be one of %s", strings.Join(pricing.Sizes, ", "))
	}
	if item.CakeShape != "" && !pricing.ValidShape(item.CakeShape) {
		return apperrors.Validation("Unsupported cake_shape %q", item.CakeShape)
	}
	if item.CakeLayers < pricing.MinLayers || item.CakeLayers > pricing.MaxLayers {
		return apperrors.Validation("cake_layers must be between %d and %d", pricing.MinLayers, pricing.MaxLayers)
	}
	for field, limit := range map[string]struct {
		value string
		max   int
	}{
		"flavor":          {item.Flavor, 100},
		"filling":         {item.Filling, 100},
		"frosting":        {item.Frosting, 100},
		"decorations":     {item.Decorations, 500},
		"message_on_cake": {item.MessageOnCake, 200},
		"notes":           {item.Notes, 1000},
	} {
		if len(limit.value) > limit.max {
			return apperrors.Validation("%s must be at most %d characters", field, limit.max)
		}
	}
	return nil
}

// priceItem sets the base and customization price snapshot from the current
// catalog.
func priceItem(tx *gorm.DB, item *models.CartItem) error {
	if item.CakeID != nil {
		var cake models.Cake
		err := tx.First(&cake, *item.CakeID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("Cake not found")
		}
		if err != nil {
			return apperrors.Database("Failed to fetch cake", err)
		}
		if !cake.IsAvailable {
			return apperrors.Validation("%s is not available", cake.Name)
		}
		if item.IsVegan && !cake.CanBeVegan {
			return apperrors.Validation("%s cannot be made vegan", cake.Name)
		}
		if item.IsGlutenFree && !cake.CanBeGlutenFree {
			return apperrors.Validation("%s cannot be made gluten-free", cake.Name)
		}
		item.BasePrice = cake.Price
	} else {
		item.BasePrice = pricing.SizePrice(item.CakeSize)
	}

	toppings, err := lookupToppings(tx, item.Toppings)
	if err != nil {
		return err
	}
	prices := make([]decimal.Decimal, 0, len(toppings))
	for _, t := range toppings {
		if item.IsVegan && !t.IsVeganCompatible {
			return apperrors.Validation("Topping %q is not vegan", t.Name)
		}
		if item.IsGlutenFree && !t.IsGlutenFreeCompatible {
			return apperrors.Validation("Topping %q is not gluten-free", t.Name)
		}
		prices = append(prices, t.Price)
	}
	item.CustomizationPrice = pricing.CustomizationPrice(prices, item.IsGlutenFree, item.IsVegan)
	return nil
}

// lookupToppings resolves ids to active topping options, failing when any id
// does not resolve.
func lookupToppings(tx *gorm.DB, ids []uint) ([]models.CustomizationOption, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var options []models.CustomizationOption
	err := tx.Where("id IN ? AND category = ? AND active = ?", ids, models.CategoryTopping, true).
		Find(&options).Error
	if err != nil {
		return nil, apperrors.Database("Failed to fetch toppings", err)
	}
	if len(options) == len(ids) {
		return options, nil
	}

	found := make(map[uint]bool, len(options))
	for _, o := range options {
		found[o.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, fmt.Sprint(id))
		}
	}
	return nil, apperrors.Validation("Invalid or inactive toppings: %s", strings.Join(missing, ", "))
}

func dedupe(ids []uint) []uint {
	if len(ids) == 0 {
		return []uint{}
	}
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
