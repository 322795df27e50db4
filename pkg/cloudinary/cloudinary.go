package cloudinary

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// DocumentFolder is where KYC uploads land.
const DocumentFolder = "greenpay/kyc"

// Uploader stores identity documents and returns their delivery URL.
type Uploader interface {
	UploadDocument(ctx context.Context, file io.Reader, folder, publicID string) (*UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

type UploadResult struct {
	URL      string
	PublicID string
	Format   string
}

// Documents are resized for review, not thumbnails.
const documentEager = "q_auto,f_auto,w_1600,c_limit"

var eagerAsyncFalse = false

type clientImpl struct {
	cloudName string
	uploader  *uploader.API
}

// UploadDocument uploads an image or PDF with a review-sized eager transform.
func (c *clientImpl) UploadDocument(ctx context.Context, file io.Reader, folder, publicID string) (*UploadResult, error) {
	if folder == "" {
		folder = DocumentFolder
	}
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "auto",
		Eager:        documentEager,
		EagerAsync:   &eagerAsyncFalse,
	})
	if err != nil {
		return nil, err
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary: %s", result.Error.Message)
	}
	return &UploadResult{URL: result.SecureURL, PublicID: result.PublicID, Format: result.Format}, nil
}

func (c *clientImpl) Delete(ctx context.Context, publicID string) error {
	_, err := c.uploader.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	return err
}

// NewClientFromParams builds an Uploader from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Uploader, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{cloudName: cloudName, uploader: up}, nil
}
