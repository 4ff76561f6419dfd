package assets

import "errors"

var (
	// ErrInvalidImage is returned when an upload is not a decodable image data URI.
	// Callers surface it as a client error.
	ErrInvalidImage = errors.New("invalid image")

	// ErrUploadFailed is returned when the asset host rejects or fails an upload
	ErrUploadFailed = errors.New("asset upload failed")

	// ErrDestroyFailed is returned when the asset host fails to delete an asset
	ErrDestroyFailed = errors.New("asset destroy failed")
)
