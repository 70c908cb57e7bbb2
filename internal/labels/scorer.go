package labels

import (
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/medilabel-reader/internal/imaging"
	"github.com/ironsheep/medilabel-reader/internal/ocr"
)

// Recognizer performs word-level text recognition.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (ocr.Recognition, error)
}

// TextRecognizer returns all text in an image as one string.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, img image.Image) (string, error)
}

const (
	// lowQualityLetters is the letter count at or below which a reading is
	// discarded.
	lowQualityLetters = 5

	// letterWeight scales the letter count in the combined score.
	letterWeight = 0.3
)

// RotationCandidate is the reading of a region at one angle.
type RotationCandidate struct {
	Angle          float64 `json:"angle"`
	Text           string  `json:"text"`
	MeanConfidence float64 `json:"mean_confidence"`
	Letters        int     `json:"letters"`
	Score          float64 `json:"score"`
	LowQuality     bool    `json:"low_quality"`
}

// Reading is the selected text of a region and the angle it was read at.
type Reading struct {
	Text  string  `json:"text"`
	Angle float64 `json:"angle"`
}

// CountLetters returns the number of ASCII letters in text.
func CountLetters(text string) int {
	n := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			n++
		}
	}
	return n
}

// IsLowQuality reports whether text has too few letters to be label text.
func IsLowQuality(text string) bool {
	return CountLetters(text) <= lowQualityLetters
}

// CombinedScore ranks a reading by its mean confidence and letter count.
func CombinedScore(meanConfidence float64, letters int) float64 {
	return meanConfidence + letterWeight*float64(letters)
}

// NewCandidate scores a recognition made at angle.
func NewCandidate(angle float64, rec ocr.Recognition) RotationCandidate {
	text := rec.Text()
	letters := CountLetters(text)
	conf := rec.MeanConfidence()
	return RotationCandidate{
		Angle:          angle,
		Text:           text,
		MeanConfidence: conf,
		Letters:        letters,
		Score:          CombinedScore(conf, letters),
		LowQuality:     IsLowQuality(text),
	}
}

// SelectBest returns the highest scoring candidate that is not low quality.
// Ties go to the earliest candidate. ok is false when every candidate is low
// quality.
func SelectBest(candidates []RotationCandidate) (best RotationCandidate, ok bool) {
	for _, c := range candidates {
		if c.LowQuality {
			continue
		}
		if !ok || c.Score > best.Score {
			best = c
			ok = true
		}
	}
	return best, ok
}

// RotationScorer reads a region at every angle of a fixed list and keeps the
// best reading.
type RotationScorer struct {
	recognizer Recognizer
	angles     []float64
	workers    int
	log        logrus.FieldLogger

	rotate func(image.Image, float64) image.Image
}

// ScorerOption configures a RotationScorer.
type ScorerOption func(*RotationScorer)

// WithWorkers sets how many angles are recognized at once. It should not
// exceed the recognizer's own pool size. Values below 1 mean 1.
func WithWorkers(n int) ScorerOption {
	return func(s *RotationScorer) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithScorerLogger sets the logger used for per-angle debug output.
func WithScorerLogger(log logrus.FieldLogger) ScorerOption {
	return func(s *RotationScorer) {
		if log != nil {
			s.log = log
		}
	}
}

// NewRotationScorer creates a scorer for the given angle order.
func NewRotationScorer(recognizer Recognizer, angles []float64, opts ...ScorerOption) *RotationScorer {
	s := &RotationScorer{
		recognizer: recognizer,
		angles:     append([]float64(nil), angles...),
		workers:    1,
		log:        discardLogger(),
		rotate:     imaging.Rotate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Angles returns a copy of the angle list.
func (s *RotationScorer) Angles() []float64 {
	return append([]float64(nil), s.angles...)
}

// Candidates recognizes img at every angle. The result is in angle order
// regardless of how many workers ran. The first recognition error cancels
// the remaining angles and is returned.
func (s *RotationScorer) Candidates(ctx context.Context, img image.Image) ([]RotationCandidate, error) {
	candidates := make([]RotationCandidate, len(s.angles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, angle := range s.angles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := s.recognizer.Recognize(gctx, s.rotate(img, angle))
			if err != nil {
				return fmt.Errorf("recognize at %g degrees: %w", angle, err)
			}
			candidates[i] = NewCandidate(angle, rec)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return candidates, nil
}

// Read returns the best reading of img, trimmed. When every angle is low
// quality the reading is empty with angle 0.
func (s *RotationScorer) Read(ctx context.Context, img image.Image) (Reading, error) {
	candidates, err := s.Candidates(ctx, img)
	if err != nil {
		return Reading{}, err
	}

	for _, c := range candidates {
		fields := logrus.Fields{
			"angle":    c.Angle,
			"text":     c.Text,
			"avg_conf": fmt.Sprintf("%.1f", c.MeanConfidence),
			"alpha":    c.Letters,
		}
		if c.LowQuality {
			s.log.WithFields(fields).Debug("skipping low-quality angle")
			continue
		}
		fields["score"] = fmt.Sprintf("%.1f", c.Score)
		s.log.WithFields(fields).Debug("scored angle")
	}

	best, ok := SelectBest(candidates)
	if !ok {
		return Reading{}, nil
	}
	return Reading{Text: strings.TrimSpace(best.Text), Angle: best.Angle}, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
