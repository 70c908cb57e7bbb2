// Package imaging holds the image operations used to read medicine labels:
// decoding uploads, cropping detected regions, preparing regions for text
// recognition, rotating them, and drawing detection boxes for inspection.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For boxes, (x1,y1) is the top-left corner and (x2,y2) the bottom-right
//
// Detection boxes arrive as floating point corners. CropBox floors the
// top-left corner, ceils the bottom-right corner and clamps both to the image,
// so a box that only partly overlaps the image still yields the visible part.
//
// # Preprocessing
//
// Preprocess always converts to grayscale, upscales, stretches contrast and
// applies a median filter. Inversion of bright regions and sharpening are
// optional and selected per profile through PreprocessOptions.
//
// # Thread Safety
//
// Every function is stateless and returns a new image. The input is never
// modified, so the same image can be processed from several goroutines.
package imaging
