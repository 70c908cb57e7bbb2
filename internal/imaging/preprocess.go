package imaging

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// PreprocessOptions controls the OCR preparation applied to a cropped region.
//
// The fixed part of the chain is always: grayscale, integer upscale,
// contrast stretch, median denoise. InvertBright and SharpenSigma are optional
// refinements applied afterwards.
type PreprocessOptions struct {
	// UpscaleFactor multiplies both dimensions (Lanczos resampling). Values
	// below 1 are treated as 1.
	UpscaleFactor int `json:"upscale_factor" yaml:"upscale_factor"`

	// MedianSize is the side of the square median window (3 means 3x3).
	// Values below 3 disable the filter.
	MedianSize int `json:"median_size" yaml:"median_size"`

	// InvertBright inverts the image when its mean brightness exceeds the
	// midpoint (127), turning light-on-dark text into dark-on-light.
	InvertBright bool `json:"invert_bright" yaml:"invert_bright"`

	// SharpenSigma applies an unsharp mask with this sigma when > 0.
	SharpenSigma float64 `json:"sharpen_sigma" yaml:"sharpen_sigma"`
}

// brightnessMidpoint is the mean gray level above which InvertBright applies.
const brightnessMidpoint = 127

// Preprocess prepares a region for text recognition.
//
// The steps run in this order:
//  1. Grayscale conversion
//  2. Upscale by opts.UpscaleFactor
//  3. AutoContrast (histogram stretch to the full 0-255 range)
//  4. Median filter with an opts.MedianSize window
//  5. Optional inversion when mean brightness > 127
//  6. Optional sharpening
//
// The input image is never modified.
func Preprocess(img image.Image, opts PreprocessOptions) image.Image {
	var out image.Image = imaging.Grayscale(img)

	if opts.UpscaleFactor > 1 {
		b := out.Bounds()
		out = imaging.Resize(out, b.Dx()*opts.UpscaleFactor, b.Dy()*opts.UpscaleFactor, imaging.Lanczos)
	}

	out = AutoContrast(out)

	if opts.MedianSize >= 3 {
		out = effect.Median(out, float64(opts.MedianSize/2))
	}

	if opts.InvertBright && MeanBrightness(out) > brightnessMidpoint {
		out = imaging.Invert(out)
	}

	if opts.SharpenSigma > 0 {
		out = imaging.Sharpen(out, opts.SharpenSigma)
	}

	return out
}

// AutoContrast stretches the luminance histogram so the darkest present level
// maps to 0 and the brightest to 255. Images with a single gray level are
// returned as an unchanged copy.
func AutoContrast(img image.Image) *image.NRGBA {
	hist := imaging.Histogram(img)

	lo, hi := -1, -1
	for i := 0; i < 256; i++ {
		if hist[i] > 0 {
			if lo < 0 {
				lo = i
			}
			hi = i
		}
	}
	if lo < 0 || hi <= lo {
		return imaging.Clone(img)
	}

	scale := 255.0 / float64(hi-lo)
	offset := -float64(lo) * scale

	var lut [256]uint8
	for i := range lut {
		v := int(float64(i)*scale + offset)
		lut[i] = uint8(clamp(v, 0, 255))
	}

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

// MeanBrightness returns the mean luminance (0-255) of an image.
func MeanBrightness(img image.Image) float64 {
	hist := imaging.Histogram(img)
	var mean float64
	for i, share := range hist {
		mean += float64(i) * share
	}
	return mean
}

// Rotate rotates an image counter-clockwise by angle degrees. The canvas grows
// to hold the whole rotated image and uncovered corners are filled with black.
func Rotate(img image.Image, angle float64) image.Image {
	return imaging.Rotate(img, angle, color.Black)
}
