package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"time"
)

// JPEGQuality is the quality used when re-encoding captures for the model.
const JPEGQuality = 80

// Image is a decoded, validated capture re-encoded as JPEG.
type Image struct {
	JPEG       []byte
	Width      int
	Height     int
	Source     string
	CapturedAt time.Time
}

// DecodeImage validates raw JPEG or PNG bytes and re-encodes them as JPEG.
func DecodeImage(data []byte, source string) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("capture: empty image data: %w", ErrCaptureFailed)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("capture: decode %s: %v: %w", source, err, ErrCaptureFailed)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return Image{}, fmt.Errorf("capture: encode jpeg: %v: %w", err, ErrCaptureFailed)
	}

	b := img.Bounds()
	return Image{
		JPEG:       buf.Bytes(),
		Width:      b.Dx(),
		Height:     b.Dy(),
		Source:     source,
		CapturedAt: time.Now(),
	}, nil
}
