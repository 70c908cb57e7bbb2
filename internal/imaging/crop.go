package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// CropBox extracts the region (x1,y1)-(x2,y2) from an image.
//
// Coordinates are floating point because detectors report sub-pixel boxes.
// They are rounded outward to whole pixels and clamped to the image bounds, so
// a box that overhangs the edge of the image still yields the visible part.
//
// Returns an error if the clamped region is empty.
func CropBox(img image.Image, x1, y1, x2, y2 float64) (*image.NRGBA, error) {
	bounds := img.Bounds()

	rx1 := clamp(int(math.Floor(x1)), bounds.Min.X, bounds.Max.X)
	ry1 := clamp(int(math.Floor(y1)), bounds.Min.Y, bounds.Max.Y)
	rx2 := clamp(int(math.Ceil(x2)), bounds.Min.X, bounds.Max.X)
	ry2 := clamp(int(math.Ceil(y2)), bounds.Min.Y, bounds.Max.Y)

	if rx1 >= rx2 || ry1 >= ry2 {
		return nil, fmt.Errorf("crop region (%.1f,%.1f)-(%.1f,%.1f) is empty inside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}

	return imaging.Crop(img, image.Rect(rx1, ry1, rx2, ry2)), nil
}

// CenterBox converts a centre-based box (as reported by object detectors) into
// corner coordinates x1, y1, x2, y2.
func CenterBox(cx, cy, width, height float64) (x1, y1, x2, y2 float64) {
	return cx - width/2, cy - height/2, cx + width/2, cy + height/2
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
