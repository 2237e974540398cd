package database

import (
	"fmt"

	"github.com/George-Dev-Web/cakes2/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seed inserts a starter catalog when the tables are empty. Running it twice
// is a no-op.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.CustomizationOption{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := tx.Create(seedOptions()).Error; err != nil {
				return fmt.Errorf("seed customization options: %w", err)
			}
		}

		if err := tx.Model(&models.Cake{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := tx.Create(seedCakes()).Error; err != nil {
				return fmt.Errorf("seed cakes: %w", err)
			}
		}
		return nil
	})
}

func option(category models.OptionCategory, name, description string, price int64, sort int) models.CustomizationOption {
	return models.CustomizationOption{
		Category:               category,
		Name:                   name,
		Description:            description,
		Price:                  decimal.NewFromInt(price),
		Active:                 true,
		SortOrder:              sort,
		IsVeganCompatible:      true,
		IsGlutenFreeCompatible: true,
	}
}

func seedOptions() []models.CustomizationOption {
	opts := []models.CustomizationOption{
		option(models.CategoryShape, "Round", "Classic round cake", 0, 1),
		option(models.CategoryShape, "Square", "Square tiers", 0, 2),
		option(models.CategoryShape, "Heart", "Heart-shaped", 300, 3),
		option(models.CategorySize, "Small", "Serves 6-8", 2000, 1),
		option(models.CategorySize, "Medium", "Serves 10-14", 3500, 2),
		option(models.CategorySize, "Large", "Serves 16-20", 5000, 3),
		option(models.CategorySize, "XL", "Serves 22-26", 7500, 4),
		option(models.CategoryFlavor, "Vanilla", "", 0, 1),
		option(models.CategoryFlavor, "Chocolate", "", 0, 2),
		option(models.CategoryFlavor, "Red Velvet", "", 200, 3),
		option(models.CategoryFilling, "Strawberry Jam", "", 150, 1),
		option(models.CategoryFrosting, "Buttercream", "", 0, 1),
		option(models.CategoryFrosting, "Fondant", "", 400, 2),
		option(models.CategoryTopping, "Fresh Berries", "", 300, 1),
		option(models.CategoryTopping, "Chocolate Shavings", "", 200, 2),
		option(models.CategoryTopping, "Edible Gold Leaf", "", 800, 3),
		option(models.CategoryDecoration, "Fondant Flowers", "", 600, 1),
		option(models.CategoryDietaryRestriction, "Gluten-Free", "Gluten-free flour blend", 500, 1),
		option(models.CategoryDietaryRestriction, "Vegan", "Plant-based ingredients", 500, 2),
	}
	// Gold leaf is set on a gelatin glaze.
	opts[15].IsVeganCompatible = false
	return opts
}

func seedCakes() []models.Cake {
	cake := func(name, description, category string, price int64, featured bool) models.Cake {
		return models.Cake{
			Name:            name,
			Description:     description,
			Category:        category,
			Price:           decimal.NewFromInt(price),
			IsAvailable:     true,
			IsFeatured:      featured,
			CanBeVegan:      true,
			CanBeGlutenFree: true,
		}
	}
	return []models.Cake{
		cake("Chocolate Dream", "Rich chocolate sponge with ganache", "Birthday", 4500, true),
		cake("Vanilla Bliss", "Light vanilla sponge with buttercream", "Birthday", 4000, false),
		cake("Red Velvet Elegance", "Red velvet with cream cheese frosting", "Anniversary", 5000, true),
		cake("Lemon Delight", "Zesty lemon sponge with curd filling", "Custom", 4200, false),
		cake("Three-Tier Classic", "Tiered wedding cake, fondant finish", "Wedding", 15000, true),
	}
}
