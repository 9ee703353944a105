package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"

	"github.com/apex/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultBudgetBytes is the maximum encoded size sent to a backend.
	DefaultBudgetBytes = 500 * 1024

	startQuality = 85
	qualityFloor = 10
	qualityStep  = 5

	// maxShrinkCycles bounds the resize loop once quality is at the floor.
	// Past this the smallest encoding produced so far is returned as-is.
	maxShrinkCycles = 20
)

// ErrInvalidImage reports bytes that cannot be decoded as JPEG, PNG or WEBP.
var ErrInvalidImage = errors.New("invalid image")

// Normalize re-encodes arbitrary image bytes as JPEG under the given size
// budget. Quality is stepped down from 85 to 10; once at the floor both
// dimensions are shrunk by 10% per cycle until the budget is met or the
// cycle cap is hit, in which case the smallest encoding produced is
// returned. Transparency is dropped, not composited, so semi-transparent
// pixels keep their raw color values.
func Normalize(data []byte, budgetBytes int) ([]byte, error) {
	if budgetBytes <= 0 {
		budgetBytes = DefaultBudgetBytes
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if orientation := exifOrientation(data); orientation != 1 {
		img = correctOrientation(img, orientation)
		log.Infof("Applied orientation correction: %d", orientation)
	}

	img = flattenOpaque(img)

	quality := startQuality
	shrinks := 0
	var best []byte

	for {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}
		encoded := buf.Bytes()

		if best == nil || len(encoded) < len(best) {
			best = encoded
		}

		if len(encoded) <= budgetBytes {
			log.Infof("Image normalized: %s %d bytes -> %d bytes (quality: %d, shrinks: %d)",
				format, len(data), len(encoded), quality, shrinks)
			return encoded, nil
		}

		if quality > qualityFloor {
			quality -= qualityStep
			if quality < qualityFloor {
				quality = qualityFloor
			}
			continue
		}

		if shrinks >= maxShrinkCycles {
			log.Warnf("Image normalization budget %d not reachable, returning best effort %d bytes",
				budgetBytes, len(best))
			return best, nil
		}
		img = shrink(img)
		shrinks++
	}
}

// flattenOpaque strips the alpha channel, keeping per-pixel color values.
func flattenOpaque(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 0xFF
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}

// shrink scales both dimensions down by 10%, never below 1x1.
func shrink(img image.Image) image.Image {
	bounds := img.Bounds()
	newWidth := bounds.Dx() * 9 / 10
	newHeight := bounds.Dy() * 9 / 10
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), img, bounds, draw.Src, nil)
	return out
}
