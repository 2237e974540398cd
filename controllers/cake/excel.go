package cakecontroller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/controllers"
	"github.com/George-Dev-Web/cakes2/models"
)

// Column layout shared by import and export.
var excelHeaders = []string{
	"ID", "Name", "Description", "Category", "Price", "ImageURL",
	"IsAvailable", "IsFeatured", "CanBeVegan", "CanBeGlutenFree", "SortOrder",
	"ViewsCount", "CreatedAt", "UpdatedAt",
}

// POST /api/admin/cakes/import (multipart: file)
//
// Rows with an ID that matches an existing cake update it; other rows
// create a cake. Rows without a name or a valid positive price are skipped.
func ImportCakesFromExcel(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			_ = c.Error(apperrors.Validation("Excel file is required"))
			return
		}
		file, err := header.Open()
		if err != nil {
			_ = c.Error(apperrors.Validation("Failed to open Excel file"))
			return
		}
		defer file.Close()

		xlFile, err := xlsx.OpenReaderAt(file, header.Size)
		if err != nil {
			_ = c.Error(apperrors.Validation("Failed to parse Excel file"))
			return
		}
		if len(xlFile.Sheets) == 0 || xlFile.Sheets[0].MaxRow < 2 {
			_ = c.Error(apperrors.Validation("Excel file is empty or missing header row"))
			return
		}

		db := d.DB.WithContext(c.Request.Context())
		sheet := xlFile.Sheets[0]
		created, updated, skipped := 0, 0, 0

		for i := 1; i < sheet.MaxRow; i++ {
			row := sheet.Rows[i]
			get := func(index int) string {
				if row != nil && index < len(row.Cells) {
					return strings.TrimSpace(row.Cells[index].String())
				}
				return ""
			}

			name := get(1)
			price, err := decimal.NewFromString(get(4))
			if name == "" || err != nil || !price.IsPositive() {
				skipped++
				continue
			}

			cake := models.Cake{
				Name:            name,
				Description:     get(2),
				Category:        get(3),
				Price:           price.Round(2),
				ImageURL:        get(5),
				IsAvailable:     parseBool(get(6), true),
				IsFeatured:      parseBool(get(7), false),
				CanBeVegan:      parseBool(get(8), false),
				CanBeGlutenFree: parseBool(get(9), false),
			}
			cake.SortOrder, _ = strconv.Atoi(get(10))

			if id, err := strconv.ParseUint(get(0), 10, 64); err == nil && id > 0 {
				var existing models.Cake
				if err := db.First(&existing, id).Error; err == nil {
					cake.ID = existing.ID
					cake.ViewsCount = existing.ViewsCount
					cake.CreatedAt = existing.CreatedAt
					if err := db.Save(&cake).Error; err != nil {
						d.Log.Warn("cake import row failed", zap.Int("row", i+1), zap.Error(err))
						skipped++
						continue
					}
					d.Cache.InvalidateCake(c.Request.Context(), cake.ID)
					updated++
					continue
				}
			}

			if err := db.Create(&cake).Error; err != nil {
				d.Log.Warn("cake import row failed", zap.Int("row", i+1), zap.Error(err))
				skipped++
				continue
			}
			created++
		}

		d.Log.Info("cake import finished",
			zap.Int("created", created), zap.Int("updated", updated), zap.Int("skipped", skipped))
		c.JSON(http.StatusOK, gin.H{
			"message":       "Import completed",
			"created_count": created,
			"updated_count": updated,
			"skipped_count": skipped,
		})
	}
}

func parseBool(s string, def bool) bool {
	switch strings.ToLower(s) {
	case "":
		return def
	case "yes", "y":
		return true
	case "no", "n":
		return false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
