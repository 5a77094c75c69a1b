// Package validate checks uploaded images before extraction.
package validate

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Registered for image.DecodeConfig format sniffing.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ErrValidation indicates the uploaded image failed validation.
var ErrValidation = errors.New("invalid image")

// Image dimension bounds in pixels.
const (
	MinDimension = 64
	MaxDimension = 4096
)

// allowedFormats are the image formats accepted for face extraction, as
// reported by image.DecodeConfig.
var allowedFormats = map[string]struct{}{
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// ImageValidator validates raw uploaded image bytes.
type ImageValidator struct {
	maxBytes int64
}

// NewImageValidator creates an ImageValidator with the given size limit.
func NewImageValidator(maxBytes int64) *ImageValidator {
	return &ImageValidator{maxBytes: maxBytes}
}

// Validate checks size, format and pixel dimensions. All failures wrap
// ErrValidation so callers can map them to a single client error class.
func (v *ImageValidator) Validate(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty image", ErrValidation)
	}
	if v.maxBytes > 0 && int64(len(data)) > v.maxBytes {
		return fmt.Errorf("%w: image exceeds %d bytes", ErrValidation, v.maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: undecodable image: %v", ErrValidation, err)
	}
	if _, ok := allowedFormats[format]; !ok {
		return fmt.Errorf("%w: unsupported format %q", ErrValidation, format)
	}

	if cfg.Width < MinDimension || cfg.Height < MinDimension {
		return fmt.Errorf("%w: image %dx%d below minimum %dpx", ErrValidation, cfg.Width, cfg.Height, MinDimension)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return fmt.Errorf("%w: image %dx%d above maximum %dpx", ErrValidation, cfg.Width, cfg.Height, MaxDimension)
	}

	return nil
}
