package labels

import (
	"context"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/medilabel-reader/internal/imaging"
)

// Reader finds the best reading of a preprocessed region.
type Reader interface {
	Read(ctx context.Context, img image.Image) (Reading, error)
}

// Aggregator builds a LabelRecord from detected regions.
type Aggregator struct {
	reader   Reader
	fallback TextRecognizer
	log      logrus.FieldLogger

	prepare func(image.Image) image.Image
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithFallback makes the aggregator retry regions whose rotation search found
// nothing with a single combined recognition at angle 0.
func WithFallback(r TextRecognizer) AggregatorOption {
	return func(a *Aggregator) {
		a.fallback = r
	}
}

// WithAggregatorLogger sets the logger.
func WithAggregatorLogger(log logrus.FieldLogger) AggregatorOption {
	return func(a *Aggregator) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAggregator creates an aggregator that preprocesses every region with
// opts before handing it to reader.
func NewAggregator(reader Reader, opts imaging.PreprocessOptions, options ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		reader: reader,
		log:    discardLogger(),
		prepare: func(img image.Image) image.Image {
			return imaging.Preprocess(img, opts)
		},
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Aggregate reads every region in order and returns the resulting record.
//
// Regions with an unknown attribute are skipped. A field is set when the
// region's normalized text is non-empty and the field is either unset or holds
// a reading with strictly lower confidence. A recognition error aborts the
// whole call.
func (a *Aggregator) Aggregate(ctx context.Context, regions []DetectionRegion) (LabelRecord, error) {
	var record LabelRecord

	for i, region := range regions {
		attr, ok := ParseAttribute(region.Attribute)
		if !ok {
			a.log.WithFields(logrus.Fields{
				"index":     i,
				"attribute": region.Attribute,
			}).Debug("skipping region with unknown attribute")
			continue
		}
		if err := ctx.Err(); err != nil {
			return LabelRecord{}, err
		}
		if region.Image == nil {
			return LabelRecord{}, fmt.Errorf("region %d (%s): no image", i, attr)
		}

		reading, err := a.read(ctx, region.Image)
		if err != nil {
			return LabelRecord{}, fmt.Errorf("region %d (%s): %w", i, attr, err)
		}

		text := Normalize(reading.Text)
		if text == "" {
			a.log.WithFields(logrus.Fields{
				"index":     i,
				"attribute": attr,
			}).Debug("region produced no usable text")
			continue
		}

		if prev := record.Field(attr); prev != nil && region.Confidence <= prev.Confidence {
			continue
		}

		record.set(attr, &FieldResult{
			Text:        text,
			Confidence:  region.Confidence,
			BoundingBox: region.Box,
			Angle:       reading.Angle,
		})
		a.log.WithFields(logrus.Fields{
			"attribute":  attr,
			"text":       text,
			"confidence": fmt.Sprintf("%.2f", region.Confidence),
			"angle":      reading.Angle,
		}).Info("set label field")
	}

	return record, nil
}

func (a *Aggregator) read(ctx context.Context, img image.Image) (Reading, error) {
	prepared := a.prepare(img)

	reading, err := a.reader.Read(ctx, prepared)
	if err != nil {
		return Reading{}, err
	}
	if reading.Text != "" || a.fallback == nil {
		return reading, nil
	}

	text, err := a.fallback.RecognizeText(ctx, prepared)
	if err != nil {
		return Reading{}, fmt.Errorf("fallback recognition: %w", err)
	}
	return Reading{Text: text}, nil
}
