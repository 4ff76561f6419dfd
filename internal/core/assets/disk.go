package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// DiskHost stores images on the local filesystem and serves them under /assets/.
// Uploads are decoded, bounded to MaxDimension on the longest side and re-encoded,
// so anything that is not a real image is rejected.
type DiskHost struct {
	logger       *slog.Logger
	dir          string
	baseURL      string
	maxDimension int
}

// NewDiskHost creates the asset directory if needed and returns a host writing into it.
// baseURL is the public origin prefixed to "/assets/<file>"; empty yields relative URLs.
func NewDiskHost(dir, baseURL string, maxDimension int, logger *slog.Logger) (*DiskHost, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		return nil, errors.New("asset directory is required")
	}
	if maxDimension <= 0 {
		return nil, fmt.Errorf("max dimension must be positive, got %d", maxDimension)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create asset directory: %w", err)
	}
	return &DiskHost{
		dir:          dir,
		baseURL:      strings.TrimRight(baseURL, "/"),
		maxDimension: maxDimension,
		logger:       logger,
	}, nil
}

// Upload decodes the data URI, bounds its size and writes it under a new random name
func (h *DiskHost) Upload(ctx context.Context, dataURI string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	_, data, err := ParseDataURI(dataURI)
	if err != nil {
		return "", err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode image: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > h.maxDimension || bounds.Dy() > h.maxDimension {
		img = imaging.Fit(img, h.maxDimension, h.maxDimension, imaging.Lanczos)
	}

	// PNG keeps transparency; everything else is stored as JPEG
	outFormat, ext := imaging.JPEG, ".jpg"
	if format == "png" || format == "gif" {
		outFormat, ext = imaging.PNG, ".png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, outFormat, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("%w: failed to encode image: %v", ErrUploadFailed, err)
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(h.dir, name), buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	h.logger.Debug("asset stored", "file", name, "bytes", buf.Len(), "source_format", format)
	return h.baseURL + "/assets/" + name, nil
}

// Destroy removes every stored file whose name starts with publicID
func (h *DiskHost) Destroy(ctx context.Context, publicID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Keys are generated uuids; anything else cannot name one of our files
	if _, err := uuid.Parse(publicID); err != nil {
		h.logger.Warn("ignoring destroy for foreign asset key", "public_id", publicID)
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(h.dir, publicID+".*"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDestroyFailed, err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %v", ErrDestroyFailed, err)
		}
	}

	h.logger.Debug("asset destroyed", "public_id", publicID, "files", len(matches))
	return nil
}

// FileServer serves stored assets; mount it at /assets/
func (h *DiskHost) FileServer() http.Handler {
	return http.StripPrefix("/assets/", http.FileServer(http.Dir(h.dir)))
}
