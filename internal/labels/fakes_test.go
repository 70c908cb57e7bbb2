package labels

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync/atomic"

	"github.com/ironsheep/medilabel-reader/internal/ocr"
)

// angledImage records the angle a fake rotation was asked for.
type angledImage struct {
	image.Image
	angle float64
}

func tagAngle(img image.Image, angle float64) image.Image {
	return angledImage{Image: img, angle: angle}
}

// regionImage identifies a region in fakes keyed by region.
type regionImage struct {
	image.Image
	id string
}

func newRegionImage(id string) image.Image {
	return regionImage{Image: image.NewGray(image.Rect(0, 0, 4, 4)), id: id}
}

func identity(img image.Image) image.Image { return img }

// words builds a recognition where every word has the same confidence.
func words(text string, conf float64) ocr.Recognition {
	var rec ocr.Recognition
	for _, w := range strings.Fields(text) {
		rec.Words = append(rec.Words, ocr.Word{Text: w, Confidence: conf})
	}
	return rec
}

var errRecognize = errors.New("recognition failed")

// fakeRecognizer answers by region id and angle. Regions without an entry
// recognize as nothing.
type fakeRecognizer struct {
	results map[string]map[float64]ocr.Recognition
	failAt  map[float64]bool
	calls   atomic.Int32
}

func (f *fakeRecognizer) Recognize(ctx context.Context, img image.Image) (ocr.Recognition, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return ocr.Recognition{}, err
	}

	rotated := img.(angledImage)
	if f.failAt[rotated.angle] {
		return ocr.Recognition{}, errRecognize
	}

	id := ""
	if r, ok := rotated.Image.(regionImage); ok {
		id = r.id
	}
	return f.results[id][rotated.angle], nil
}

// fakeReader returns a fixed reading per region id.
type fakeReader struct {
	readings map[string]Reading
	err      error
}

func (f *fakeReader) Read(ctx context.Context, img image.Image) (Reading, error) {
	if f.err != nil {
		return Reading{}, f.err
	}
	return f.readings[img.(regionImage).id], nil
}

type fakeTextRecognizer struct {
	text  string
	calls int
}

func (f *fakeTextRecognizer) RecognizeText(ctx context.Context, img image.Image) (string, error) {
	f.calls++
	return f.text, nil
}
