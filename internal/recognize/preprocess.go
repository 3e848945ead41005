package recognize

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
)

// Preprocess prepares an image for recognition: grayscale plus a fixed
// contrast boost. Printed manifests photographed under
// warehouse lighting tend to be low-contrast; this measurably improves digit
// recognition without any engine-specific tuning.
func Preprocess(data []byte, contrast float64) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	out := imaging.Grayscale(src)
	out = imaging.AdjustContrast(out, contrast)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
