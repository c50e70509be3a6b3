package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder registration.
	_ "image/jpeg" // JPEG decoder registration.
	_ "image/png"  // PNG decoder registration.
	"io"

	_ "golang.org/x/image/bmp"  // BMP decoder registration.
	_ "golang.org/x/image/webp" // WebP decoder registration.
)

const (
	// MaxImageBytes limits the size of an uploaded picture.
	MaxImageBytes = 16 << 20
	// MaxImagePixels limits the decoded canvas a picture header may declare.
	MaxImagePixels = 40_000_000
)

var (
	// ErrEmptyImage is returned when there is nothing to decode.
	ErrEmptyImage = errors.New("image is empty")
	// ErrImageTooLarge is returned for pictures above MaxImageBytes or MaxImagePixels.
	ErrImageTooLarge = errors.New("image is too large")
)

// Decode reads a PNG, JPEG, GIF, BMP or WebP picture from r.
func Decode(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}

	return DecodeBytes(data)
}

// DecodeBytes decodes an in-memory picture.
// The header is checked before any pixel memory is allocated.
func DecodeBytes(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("%w: %d bytes, limit is %d", ErrImageTooLarge, len(data), MaxImageBytes)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image header: %w", err)
	}

	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxImagePixels {
		return nil, "", fmt.Errorf("%w: %dx%d pixels, limit is %d",
			ErrImageTooLarge, cfg.Width, cfg.Height, MaxImagePixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	return img, format, nil
}
