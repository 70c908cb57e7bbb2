// Package detection locates medicine-label regions through a hosted
// object-detection model.
//
// The model runs on Roboflow's hosted inference API. An image is posted as a
// base64 encoded JPEG and the service answers with a list of predictions, one
// per detected region, each carrying a class name (the label attribute), a
// confidence between 0 and 1 and a centre-based box in source image pixels.
//
// # Coordinate System
//
// Predictions use the centre of the box (x, y) plus its width and height.
// Regions converts them into corner coordinates with the standard image
// convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Boxes that overhang the image are clamped when cropped. Boxes with no
// visible area are dropped.
//
// # Errors
//
// Transport failures and non-2xx answers are reported as ErrUnavailable so
// callers can tell a broken upstream from a bad image. An empty prediction
// list is not an error.
package detection
