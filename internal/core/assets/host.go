package assets

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Host stores uploaded images and deletes them again.
// Upload takes a data URI ("data:image/png;base64,...") and returns the public URL.
// Destroy takes the asset key derived from that URL with PublicID; destroying an
// unknown key is not an error.
type Host interface {
	Upload(ctx context.Context, dataURI string) (string, error)
	Destroy(ctx context.Context, publicID string) error
}

// PublicID derives the asset key from a stored URL: the last path segment with
// everything from its first dot removed.
// "https://res.cloudinary.com/x/image/upload/v1/abc123.jpg" -> "abc123"
func PublicID(assetURL string) string {
	p := assetURL
	if u, err := url.Parse(assetURL); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}

// ParseDataURI splits a base64 data URI into its media type and decoded payload
func ParseDataURI(dataURI string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURI, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: not a data URI", ErrInvalidImage)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data URI payload", ErrInvalidImage)
	}

	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: data URI must be base64 encoded", ErrInvalidImage)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", nil, fmt.Errorf("%w: unsupported media type %q", ErrInvalidImage, mediaType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty image data", ErrInvalidImage)
	}

	return mediaType, data, nil
}
