package validate

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func jpegImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func TestImageValidator_ValidPNG(t *testing.T) {
	v := NewImageValidator(5 * 1024 * 1024)
	assert.NoError(t, v.Validate(pngImage(t, 128, 128)))
}

func TestImageValidator_ValidJPEG(t *testing.T) {
	v := NewImageValidator(5 * 1024 * 1024)
	assert.NoError(t, v.Validate(jpegImage(t, 640, 480)))
}

func TestImageValidator_Empty(t *testing.T) {
	v := NewImageValidator(5 * 1024 * 1024)
	err := v.Validate(nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestImageValidator_TooLarge(t *testing.T) {
	v := NewImageValidator(10)
	err := v.Validate(pngImage(t, 128, 128))
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestImageValidator_Undecodable(t *testing.T) {
	v := NewImageValidator(5 * 1024 * 1024)
	err := v.Validate([]byte("this is not an image"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestImageValidator_TooSmall(t *testing.T) {
	v := NewImageValidator(5 * 1024 * 1024)
	err := v.Validate(pngImage(t, 32, 32))
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "below minimum")
}

func TestImageValidator_TooBig(t *testing.T) {
	v := NewImageValidator(50 * 1024 * 1024)
	err := v.Validate(pngImage(t, 5000, 100))
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "above maximum")
}

func TestImageValidator_BoundaryDimensions(t *testing.T) {
	v := NewImageValidator(50 * 1024 * 1024)
	assert.NoError(t, v.Validate(pngImage(t, MinDimension, MinDimension)))
	assert.NoError(t, v.Validate(pngImage(t, MaxDimension, MinDimension)))
}
