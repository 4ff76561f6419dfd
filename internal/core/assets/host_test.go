package assets

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"cloudinary url", "https://res.cloudinary.com/demo/image/upload/v1712/abc123.jpg", "abc123"},
		{"disk url", "http://localhost:5000/assets/4f6c.png", "4f6c"},
		{"relative url", "/assets/4f6c.png", "4f6c"},
		{"no extension", "https://cdn.example.com/images/plain", "plain"},
		{"multiple dots", "https://cdn.example.com/a/b.c.d", "b"},
		{"query string ignored", "https://cdn.example.com/a/key.webp?x=1", "key"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PublicID(tt.url))
		})
	}
}

func TestParseDataURI(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("fake-bytes"))

	mediaType, data, err := ParseDataURI("data:image/jpeg;base64," + payload)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mediaType)
	assert.Equal(t, []byte("fake-bytes"), data)

	invalid := []string{
		"",
		"https://example.com/a.png",
		"data:image/png;base64",
		"data:image/png," + payload,
		"data:text/plain;base64," + payload,
		"data:image/png;base64,!!!not-base64",
		"data:image/png;base64,",
	}
	for _, in := range invalid {
		_, _, err := ParseDataURI(in)
		assert.ErrorIs(t, err, ErrInvalidImage, "input %q", in)
	}
}

// pngDataURI renders a solid w x h PNG as a data URI
func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
