// Package storage uploads episode audio to durable object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/sirupsen/logrus"

	"github.com/edopalomino/generate-startupcafe/pkg/logging"
)

// Uploader stores a local file under an explicit identifier and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, path, publicID string) (string, error)
}

// uploadAPI is the part of the Cloudinary SDK the uploader needs.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// Config holds Cloudinary credentials and naming.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	Timeout   time.Duration
}

// CloudinaryUploader uploads with resource type "auto" so audio is stored with
// an inferred media content type.
type CloudinaryUploader struct {
	api     uploadAPI
	folder  string
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewCloudinaryUploader builds an uploader from credentials.
func NewCloudinaryUploader(cfg Config, log logrus.FieldLogger) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("configure cloudinary: %w", err)
	}
	return newCloudinaryUploader(&cld.Upload, cfg, log), nil
}

func newCloudinaryUploader(client uploadAPI, cfg Config, log logrus.FieldLogger) *CloudinaryUploader {
	return &CloudinaryUploader{
		api:     client,
		folder:  cfg.Folder,
		timeout: cfg.Timeout,
		log:     logging.Component(log, "storage"),
	}
}

// Upload sends the file once; uploads are not retried.
func (u *CloudinaryUploader) Upload(ctx context.Context, path, publicID string) (string, error) {
	if publicID == "" {
		return "", errors.New("upload: public id required")
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	u.log.WithFields(logrus.Fields{"path": path, "public_id": publicID, "folder": u.folder}).Info("Uploading audio")

	res, err := u.api.Upload(ctx, path, uploader.UploadParams{
		PublicID:     publicID,
		Folder:       u.folder,
		ResourceType: "auto",
		Overwrite:    api.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", publicID, err)
	}
	if res == nil {
		return "", fmt.Errorf("upload %s: empty response", publicID)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload %s: %s", publicID, res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", fmt.Errorf("upload %s: response has no secure url", publicID)
	}

	u.log.WithField("url", res.SecureURL).Info("Audio published")
	return res.SecureURL, nil
}

// PublicID returns the deterministic identifier for a run: <prefix>-YYYY-MM-DD-<runID>.
// The date is taken in UTC.
func PublicID(prefix string, at time.Time, runID string) string {
	return fmt.Sprintf("%s-%s-%s", prefix, at.UTC().Format("2006-01-02"), runID)
}
