package cakecontroller

import (
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/controllers"
	"github.com/George-Dev-Web/cakes2/models"
)

// GET /api/admin/cakes/export
func ExportCakesToExcel(d *controllers.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cakes []models.Cake
		if err := d.DB.WithContext(c.Request.Context()).Order("id").Find(&cakes).Error; err != nil {
			_ = c.Error(apperrors.Database("Failed to fetch cakes", err))
			return
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Cakes")
		if err != nil {
			_ = c.Error(apperrors.Database("Failed to create Excel sheet", err))
			return
		}

		headerRow := sheet.AddRow()
		for _, h := range excelHeaders {
			headerRow.AddCell().SetValue(h)
		}

		for _, cake := range cakes {
			row := sheet.AddRow()
			row.AddCell().SetInt(int(cake.ID))
			row.AddCell().SetString(cake.Name)
			row.AddCell().SetString(cake.Description)
			row.AddCell().SetString(cake.Category)
			row.AddCell().SetString(cake.Price.StringFixed(2))
			row.AddCell().SetString(cake.ImageURL)
			row.AddCell().SetBool(cake.IsAvailable)
			row.AddCell().SetBool(cake.IsFeatured)
			row.AddCell().SetBool(cake.CanBeVegan)
			row.AddCell().SetBool(cake.CanBeGlutenFree)
			row.AddCell().SetInt(cake.SortOrder)
			row.AddCell().SetInt(cake.ViewsCount)
			row.AddCell().SetString(cake.CreatedAt.Format("2006-01-02 15:04:05"))
			row.AddCell().SetString(cake.UpdatedAt.Format("2006-01-02 15:04:05"))
		}

		controllers.WriteXLSX(c, file, "cakes.xlsx")
	}
}
