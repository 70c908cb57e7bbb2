package ocr

import (
	"strings"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Word is a single recognized token.
type Word struct {
	// Text is the recognized word. Tesseract may report blank words.
	Text string `json:"text"`

	// Confidence is Tesseract's confidence on a 0-100 scale. Negative values
	// mean "no confidence available" and are ignored by MeanConfidence.
	Confidence float64 `json:"confidence"`

	// Bounds is the word's box in the recognized image.
	Bounds Bounds `json:"bounds"`
}

// Recognition is the word-level output of one recognition call.
type Recognition struct {
	Words []Word `json:"words"`
}

// Text joins all non-blank words with single spaces.
func (r Recognition) Text() string {
	parts := make([]string, 0, len(r.Words))
	for _, w := range r.Words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

// MeanConfidence returns the mean of all non-negative word confidences, or 0
// when there are none.
func (r Recognition) MeanConfidence() float64 {
	var sum float64
	n := 0
	for _, w := range r.Words {
		if w.Confidence < 0 {
			continue
		}
		sum += w.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
