package detection

import (
	"context"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/medilabel-reader/internal/imaging"
	"github.com/ironsheep/medilabel-reader/internal/labels"
)

// Detect runs the model on img and crops every prediction at or above the
// configured minimum confidence. Regions keep the service's order.
func (r *Roboflow) Detect(ctx context.Context, img image.Image) ([]labels.DetectionRegion, error) {
	preds, err := r.Predict(ctx, img)
	if err != nil {
		return nil, err
	}
	return Regions(img, preds, r.cfg.MinConfidence, r.log), nil
}

// Regions crops each prediction out of img.
//
// Predictions below minConfidence are dropped, as are boxes that lie
// entirely outside the image. The stored box is the unclamped corner box
// reported by the model.
func Regions(img image.Image, preds []Prediction, minConfidence float64, log logrus.FieldLogger) []labels.DetectionRegion {
	regions := make([]labels.DetectionRegion, 0, len(preds))
	for _, p := range preds {
		if p.Confidence < minConfidence {
			continue
		}

		x1, y1, x2, y2 := p.Corners()
		crop, err := imaging.CropBox(img, x1, y1, x2, y2)
		if err != nil {
			if log != nil {
				log.WithFields(logrus.Fields{
					"class":      p.Class,
					"confidence": p.Confidence,
				}).Warnf("dropping prediction: %v", err)
			}
			continue
		}

		regions = append(regions, labels.DetectionRegion{
			Attribute:  p.Class,
			Confidence: p.Confidence,
			Box:        labels.BoundingBox{x1, y1, x2, y2},
			Image:      crop,
		})
	}
	return regions
}
