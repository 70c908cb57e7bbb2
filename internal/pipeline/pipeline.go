// Package pipeline runs the label reading stages for one upload: decode,
// detect, extract and explain.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/medilabel-reader/internal/cache"
	"github.com/ironsheep/medilabel-reader/internal/explain"
	"github.com/ironsheep/medilabel-reader/internal/imaging"
	"github.com/ironsheep/medilabel-reader/internal/labels"
)

// Stage errors.
var (
	ErrInvalidImage = errors.New("invalid image")
	ErrNoDetections = errors.New("unable to detect any information from the image")
	ErrNoText       = errors.New("unable to convert text in the image to strings")
	ErrNoResponse   = explain.ErrNoResponse

	// ErrNoExplainer is returned by Analyze when no language model is set.
	ErrNoExplainer = errors.New("no language model configured")
)

// Detector finds label regions in an image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]labels.DetectionRegion, error)
}

// Extractor reads regions into a record.
type Extractor interface {
	Aggregate(ctx context.Context, regions []labels.DetectionRegion) (labels.LabelRecord, error)
}

// Explainer explains a record.
type Explainer interface {
	Explain(ctx context.Context, record labels.LabelRecord) (*explain.Explanation, error)
}

// Extraction is the result of reading a label without explaining it.
type Extraction struct {
	Profile string                   `json:"profile"`
	Image   imaging.DimensionsResult `json:"image"`
	Regions int                      `json:"regions"`
	Label   labels.LabelRecord       `json:"label"`
}

// Analysis is the full result: the prompt slots, the generated explanation
// and the record they came from.
type Analysis struct {
	explain.Explanation
	Label labels.LabelRecord `json:"label"`
}

// Service runs the pipeline.
type Service struct {
	detector  Detector
	extractor Extractor
	explainer Explainer
	profile   labels.Profile

	cache    cache.Store
	cacheTTL time.Duration
	log      logrus.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

// WithCache stores extraction and analysis results in store for ttl.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = store
		s.cacheTTL = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Service. explainer may be nil when only extraction and
// annotation are served.
func New(detector Detector, extractor Extractor, explainer Explainer, profile labels.Profile, opts ...Option) *Service {
	l := logrus.New()
	l.SetOutput(io.Discard)

	s := &Service{
		detector:  detector,
		extractor: extractor,
		explainer: explainer,
		profile:   profile,
		log:       l,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profile returns the active profile.
func (s *Service) Profile() labels.Profile { return s.profile }

// Extract reads the six label fields from an uploaded image.
//
// Returns ErrInvalidImage when data cannot be decoded, ErrNoDetections when the
// detector found nothing and ErrNoText when no field could be read.
func (s *Service) Extract(ctx context.Context, data []byte) (*Extraction, error) {
	key := cache.Key("extract", s.profile.Fingerprint(), data)

	var cached Extraction
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	img, err := s.decode(data)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	regions, err := s.detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	if len(regions) == 0 {
		return nil, ErrNoDetections
	}

	record, err := s.extractor.Aggregate(ctx, regions)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if record.Empty() {
		return nil, ErrNoText
	}

	s.log.WithFields(logrus.Fields{
		"profile":    s.profile.Name,
		"regions":    len(regions),
		"latency_ms": time.Since(start).Milliseconds(),
	}).Info("label extracted")

	result := &Extraction{
		Profile: s.profile.Name,
		Image:   imaging.Dimensions(img),
		Regions: len(regions),
		Label:   record,
	}
	s.cacheSet(ctx, key, result)
	return result, nil
}

// Analyze extracts the label and asks the language model to explain it.
func (s *Service) Analyze(ctx context.Context, data []byte) (*Analysis, error) {
	if s.explainer == nil {
		return nil, ErrNoExplainer
	}

	key := cache.Key("analyze", s.profile.Fingerprint(), data)

	var cached Analysis
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	extraction, err := s.Extract(ctx, data)
	if err != nil {
		return nil, err
	}

	explanation, err := s.explainer.Explain(ctx, extraction.Label)
	if err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}

	result := &Analysis{Explanation: *explanation, Label: extraction.Label}
	s.cacheSet(ctx, key, result)
	return result, nil
}

// Annotate draws the detector's boxes onto the uploaded image. An image with
// no detections is returned unchanged.
func (s *Service) Annotate(ctx context.Context, data []byte) (*imaging.AnnotateResult, error) {
	img, err := s.decode(data)
	if err != nil {
		return nil, err
	}

	regions, err := s.detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	boxes := make([]imaging.Box, 0, len(regions))
	for _, r := range regions {
		label := r.Attribute
		if attr, ok := labels.ParseAttribute(r.Attribute); ok {
			label = string(attr)
		}
		boxes = append(boxes, imaging.Box{
			Label:      label,
			Confidence: r.Confidence,
			X1:         r.Box[0],
			Y1:         r.Box[1],
			X2:         r.Box[2],
			Y2:         r.Box[3],
		})
	}

	attrs := labels.Attributes()
	palette := make([]string, len(attrs))
	for i, a := range attrs {
		palette[i] = string(a)
	}

	return imaging.Annotate(img, boxes, palette)
}

func (s *Service) decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(data, s.profile.AutoOrient)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

func (s *Service) cacheGet(ctx context.Context, key string, v any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := cache.GetJSON(ctx, s.cache, key, v)
	if errors.Is(err, cache.ErrCorrupt) {
		s.log.WithField("key", key).Warnf("dropping unreadable cache entry: %v", err)
		if err := s.cache.Delete(ctx, key); err != nil {
			s.log.WithField("key", key).Warnf("cache delete failed: %v", err)
		}
		return false
	}
	if err != nil {
		s.log.WithField("key", key).Warnf("cache read failed: %v", err)
		return false
	}
	if ok {
		s.log.WithField("key", key).Debug("cache hit")
	}
	return ok
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, v, s.cacheTTL); err != nil {
		s.log.WithField("key", key).Warnf("cache write failed: %v", err)
	}
}
