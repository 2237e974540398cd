// Package controllers holds what the per-area handler packages share.
package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/cache"
	"github.com/George-Dev-Web/cakes2/media"
	"github.com/George-Dev-Web/cakes2/services/cart"
	"github.com/George-Dev-Web/cakes2/services/order"
)

type Deps struct {
	DB             *gorm.DB
	Log            *zap.Logger
	Cache          *cache.Catalog
	Uploader       media.Uploader
	MaxUploadBytes int64
	Carts          *cart.Engine
	Orders         *order.Engine
}

// ParamID parses a positive numeric path parameter.
func ParamID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("Invalid %s", name)
	}
	return uint(id), nil
}

// BindStrict decodes the JSON body into dst, rejecting fields dst does not
// declare.
func BindStrict(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Validation("Request body is required")
		}
		return apperrors.Validation("Invalid request body: %v", err)
	}
	return nil
}

// UploadImage validates the multipart file in field and stores it under
// folder.
func (d *Deps) UploadImage(c *gin.Context, field, folder string) (media.Asset, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return media.Asset{}, apperrors.Validation("No file provided")
	}
	if err := media.Validate(header.Filename, header.Size, d.MaxUploadBytes); err != nil {
		return media.Asset{}, err
	}

	file, err := header.Open()
	if err != nil {
		return media.Asset{}, apperrors.Validation("Failed to read uploaded file")
	}
	defer file.Close()

	asset, err := d.Uploader.Upload(c.Request.Context(), file, header.Filename, folder)
	if err != nil {
		d.Log.Error("image upload failed", zap.String("folder", folder), zap.Error(err))
		return media.Asset{}, apperrors.Database("Failed to upload image", err)
	}
	return asset, nil
}

// WriteXLSX streams file as a download named name.
func WriteXLSX(c *gin.Context, file *xlsx.File, name string) {
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Expires", "0")
	if err := file.Write(c.Writer); err != nil {
		_ = c.Error(apperrors.Database("Failed to write Excel file", err))
	}
}
