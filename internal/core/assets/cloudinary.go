package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"golang.org/x/time/rate"
)

// CloudinaryConfig holds the credentials for a Cloudinary account
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	// APIBase overrides the upload API origin; empty uses the public endpoint
	APIBase string
}

// CloudinaryHost uploads and destroys images through the Cloudinary SDK.
// Outbound calls are throttled so a burst of profile updates cannot exhaust the account quota.
type CloudinaryHost struct {
	cld     *cloudinary.Cloudinary
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewCloudinaryHost creates a Cloudinary client
func NewCloudinaryHost(cfg CloudinaryConfig, logger *slog.Logger) (*CloudinaryHost, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary cloud name, api key and api secret are required")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	if cfg.APIBase != "" {
		cld.Config.API.UploadPrefix = strings.TrimRight(cfg.APIBase, "/")
	}

	return &CloudinaryHost{
		cld: cld,
		// 10 requests per second with a burst of 20
		limiter: rate.NewLimiter(10, 20),
		logger:  logger,
	}, nil
}

// Upload sends the data URI as-is; Cloudinary accepts base64 data URIs as the file
func (h *CloudinaryHost) Upload(ctx context.Context, dataURI string) (string, error) {
	if _, _, err := ParseDataURI(dataURI); err != nil {
		return "", err
	}
	if err := h.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	resp, err := h.cld.Upload.Upload(ctx, dataURI, uploader.UploadParams{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("%w: response missing secure_url", ErrUploadFailed)
	}

	h.logger.Debug("asset uploaded", "public_id", resp.PublicID)
	return resp.SecureURL, nil
}

// Destroy deletes the asset; a "not found" result counts as success
func (h *CloudinaryHost) Destroy(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	if err := h.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrDestroyFailed, err)
	}

	resp, err := h.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDestroyFailed, err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("%w: %s", ErrDestroyFailed, resp.Error.Message)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("%w: unexpected result %q", ErrDestroyFailed, resp.Result)
	}

	h.logger.Debug("asset destroyed", "public_id", publicID, "result", resp.Result)
	return nil
}
