package image

import (
	"bytes"
	"image"

	"github.com/rwcarlsen/goexif/exif"
)

// exifOrientation extracts the EXIF orientation tag, defaulting to 1
// (upright) when the data carries no usable EXIF block.
func exifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	val, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return val
}

// correctOrientation rewrites the image so that the stored pixel order is
// upright, undoing the camera rotation/mirroring recorded in EXIF.
func correctOrientation(img image.Image, orientation int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Destination coordinates for source pixel (x, y), per EXIF tag value.
	var dstW, dstH int
	var mapPixel func(x, y int) (int, int)

	switch orientation {
	case 2: // mirrored horizontally
		dstW, dstH = w, h
		mapPixel = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3: // rotated 180
		dstW, dstH = w, h
		mapPixel = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4: // mirrored vertically
		dstW, dstH = w, h
		mapPixel = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5: // mirrored and rotated 90 CW
		dstW, dstH = h, w
		mapPixel = func(x, y int) (int, int) { return y, x }
	case 6: // rotated 90 CCW
		dstW, dstH = h, w
		mapPixel = func(x, y int) (int, int) { return h - 1 - y, x }
	case 7: // mirrored and rotated 90 CCW
		dstW, dstH = h, w
		mapPixel = func(x, y int) (int, int) { return h - 1 - y, w - 1 - x }
	case 8: // rotated 90 CW
		dstW, dstH = h, w
		mapPixel = func(x, y int) (int, int) { return y, w - 1 - x }
	default: // upright or unknown
		return img
	}

	out := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := mapPixel(x, y)
			out.Set(dx, dy, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return out
}
