package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryUploader stores images on Cloudinary under a "cakes2/" folder.
type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryUploader(cloudName, apiKey, apiSecret string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &CloudinaryUploader{cld: cld}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, r io.Reader, filename, folder string) (Asset, error) {
	name := UniqueName(filename)
	publicID := strings.TrimSuffix(name, extOf(name))

	res, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID: publicID,
		Folder:   "cakes2/" + cleanFolder(folder),
	})
	if err != nil {
		return Asset{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return Asset{}, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return Asset{
		URL:      res.SecureURL,
		PublicID: res.PublicID,
		Width:    res.Width,
		Height:   res.Height,
		Format:   res.Format,
		Filename: name,
	}, nil
}

func (u *CloudinaryUploader) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return errors.New("empty public id")
	}
	res, err := u.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	return nil
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}
