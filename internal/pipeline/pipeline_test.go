package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ironsheep/medilabel-reader/internal/cache"
	"github.com/ironsheep/medilabel-reader/internal/explain"
	"github.com/ironsheep/medilabel-reader/internal/labels"
)

// createTestPNG encodes a solid white image
func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type fakeDetector struct {
	regions []labels.DetectionRegion
	err     error
	calls   int
}

func (f *fakeDetector) Detect(ctx context.Context, img image.Image) ([]labels.DetectionRegion, error) {
	f.calls++
	return f.regions, f.err
}

type fakeExtractor struct {
	record labels.LabelRecord
	err    error
}

func (f *fakeExtractor) Aggregate(ctx context.Context, regions []labels.DetectionRegion) (labels.LabelRecord, error) {
	return f.record, f.err
}

type fakeExplainer struct {
	text  string
	err   error
	calls int
}

func (f *fakeExplainer) Explain(ctx context.Context, record labels.LabelRecord) (*explain.Explanation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	slots := explain.NewSlots(record)
	return &explain.Explanation{MedicineName: slots[0], GeneratedResponse: f.text}, nil
}

func advilRecord() labels.LabelRecord {
	return labels.LabelRecord{
		MedicineName: &labels.FieldResult{Text: "Advil", Confidence: 0.9, BoundingBox: labels.BoundingBox{2, 2, 8, 6}},
	}
}

func oneRegion() []labels.DetectionRegion {
	return []labels.DetectionRegion{{
		Attribute:  "medicine_name",
		Confidence: 0.9,
		Box:        labels.BoundingBox{2, 2, 8, 6},
		Image:      image.NewGray(image.Rect(0, 0, 6, 4)),
	}}
}

func TestService_Analyze(t *testing.T) {
	det := &fakeDetector{regions: oneRegion()}
	exp := &fakeExplainer{text: "Advil relieves pain."}
	s := New(det, &fakeExtractor{record: advilRecord()}, exp, labels.FullProfile())

	got, err := s.Analyze(context.Background(), createTestPNG(t, 10, 10))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if got.GeneratedResponse != "Advil relieves pain." {
		t.Errorf("GeneratedResponse = %q", got.GeneratedResponse)
	}
	if got.MedicineName != "Medicine name: Advil" {
		t.Errorf("MedicineName = %q", got.MedicineName)
	}
	if got.Label.Text(labels.MedicineName) != "Advil" {
		t.Errorf("label = %+v", got.Label)
	}
}

func TestService_StageErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		data      []byte
		detector  *fakeDetector
		extractor *fakeExtractor
		explainer *fakeExplainer
		want      error
	}{
		{"empty upload", []byte{}, &fakeDetector{}, &fakeExtractor{}, &fakeExplainer{}, ErrInvalidImage},
		{"not an image", []byte("hello"), &fakeDetector{}, &fakeExtractor{}, &fakeExplainer{}, ErrInvalidImage},
		{"no detections", nil, &fakeDetector{}, &fakeExtractor{}, &fakeExplainer{}, ErrNoDetections},
		{"detector error", nil, &fakeDetector{err: boom}, &fakeExtractor{}, &fakeExplainer{}, boom},
		{"no text", nil, &fakeDetector{regions: oneRegion()}, &fakeExtractor{}, &fakeExplainer{}, ErrNoText},
		{"extractor error", nil, &fakeDetector{regions: oneRegion()}, &fakeExtractor{err: boom}, &fakeExplainer{}, boom},
		{"no response", nil, &fakeDetector{regions: oneRegion()}, &fakeExtractor{record: advilRecord()}, &fakeExplainer{err: explain.ErrNoResponse}, ErrNoResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			if data == nil {
				data = createTestPNG(t, 10, 10)
			}
			s := New(tt.detector, tt.extractor, tt.explainer, labels.FullProfile())

			_, err := s.Analyze(context.Background(), data)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestService_Extract_DoesNotExplain(t *testing.T) {
	exp := &fakeExplainer{text: "unused"}
	s := New(&fakeDetector{regions: oneRegion()}, &fakeExtractor{record: advilRecord()}, exp, labels.SimpleProfile())

	got, err := s.Extract(context.Background(), createTestPNG(t, 10, 10))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got.Profile != labels.ProfileSimple || got.Regions != 1 {
		t.Errorf("got %+v", got)
	}
	if exp.calls != 0 {
		t.Errorf("explainer called %d times", exp.calls)
	}
}

func TestService_AnalyzeWithoutExplainer(t *testing.T) {
	s := New(&fakeDetector{regions: oneRegion()}, &fakeExtractor{record: advilRecord()}, nil, labels.FullProfile())
	if _, err := s.Analyze(context.Background(), createTestPNG(t, 10, 10)); !errors.Is(err, ErrNoExplainer) {
		t.Errorf("got %v, want ErrNoExplainer", err)
	}
}

func TestService_Cache(t *testing.T) {
	det := &fakeDetector{regions: oneRegion()}
	exp := &fakeExplainer{text: "cached"}
	store := cache.NewMemory()
	s := New(det, &fakeExtractor{record: advilRecord()}, exp, labels.FullProfile(), WithCache(store, 0))

	data := createTestPNG(t, 10, 10)
	for i := 0; i < 3; i++ {
		got, err := s.Analyze(context.Background(), data)
		if err != nil {
			t.Fatalf("Analyze %d failed: %v", i, err)
		}
		if got.GeneratedResponse != "cached" || got.Label.Text(labels.MedicineName) != "Advil" {
			t.Errorf("Analyze %d = %+v", i, got)
		}
	}

	if det.calls != 1 || exp.calls != 1 {
		t.Errorf("detector calls = %d, explainer calls = %d; want 1 each", det.calls, exp.calls)
	}

	// A different profile does not share entries.
	other := New(det, &fakeExtractor{record: advilRecord()}, exp, labels.SimpleProfile(), WithCache(store, 0))
	if _, err := other.Analyze(context.Background(), data); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if det.calls != 2 {
		t.Errorf("detector calls = %d, want 2", det.calls)
	}
}

func TestService_Annotate(t *testing.T) {
	s := New(&fakeDetector{regions: oneRegion()}, &fakeExtractor{}, nil, labels.FullProfile())

	got, err := s.Annotate(context.Background(), createTestPNG(t, 20, 16))
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if got.Width != 20 || got.Height != 16 || got.MimeType != "image/png" {
		t.Errorf("got %dx%d %s", got.Width, got.Height, got.MimeType)
	}

	img, err := png.Decode(bytes.NewReader(got.PNG))
	if err != nil {
		t.Fatalf("result is not a png: %v", err)
	}
	r, g, b, _ := img.At(2, 4).RGBA()
	if r == 0xffff && g == 0xffff && b == 0xffff {
		t.Error("box outline should not be white")
	}
}

func TestService_ExtractReportsImageSize(t *testing.T) {
	s := New(&fakeDetector{regions: oneRegion()}, &fakeExtractor{record: advilRecord()}, nil, labels.FullProfile())

	got, err := s.Extract(context.Background(), createTestPNG(t, 12, 9))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got.Image.Width != 12 || got.Image.Height != 9 {
		t.Errorf("image = %+v, want 12x9", got.Image)
	}
}

func TestService_CacheKeyTracksProfileSettings(t *testing.T) {
	det := &fakeDetector{regions: oneRegion()}
	store := cache.NewMemory()
	data := createTestPNG(t, 10, 10)

	s := New(det, &fakeExtractor{record: advilRecord()}, nil, labels.FullProfile(), WithCache(store, 0))
	if _, err := s.Extract(context.Background(), data); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Same name, different angles: a redefined profile must not reuse results.
	redefined := labels.FullProfile()
	redefined.Angles = []float64{0, 180}
	other := New(det, &fakeExtractor{record: advilRecord()}, nil, redefined, WithCache(store, 0))
	if _, err := other.Extract(context.Background(), data); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if det.calls != 2 {
		t.Errorf("detector calls = %d, want 2", det.calls)
	}
}

func TestService_CorruptCacheEntryIsReplaced(t *testing.T) {
	det := &fakeDetector{regions: oneRegion()}
	store := cache.NewMemory()
	profile := labels.FullProfile()
	data := createTestPNG(t, 10, 10)

	key := cache.Key("extract", profile.Fingerprint(), data)
	if err := store.Set(context.Background(), key, []byte("{not json"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	s := New(det, &fakeExtractor{record: advilRecord()}, nil, profile, WithCache(store, 0))
	for i := 0; i < 2; i++ {
		got, err := s.Extract(context.Background(), data)
		if err != nil {
			t.Fatalf("Extract %d failed: %v", i, err)
		}
		if got.Label.Text(labels.MedicineName) != "Advil" {
			t.Errorf("Extract %d label = %+v", i, got.Label)
		}
	}
	if det.calls != 1 {
		t.Errorf("detector calls = %d, want 1", det.calls)
	}
}

func TestService_AnnotateNormalizesClassNames(t *testing.T) {
	pixel := func(attribute string) color.RGBA {
		regions := oneRegion()
		regions[0].Attribute = attribute
		s := New(&fakeDetector{regions: regions}, &fakeExtractor{}, nil, labels.FullProfile())

		got, err := s.Annotate(context.Background(), createTestPNG(t, 20, 16))
		if err != nil {
			t.Fatalf("Annotate failed: %v", err)
		}
		img, err := png.Decode(bytes.NewReader(got.PNG))
		if err != nil {
			t.Fatalf("result is not a png: %v", err)
		}
		return color.RGBAModel.Convert(img.At(2, 4)).(color.RGBA)
	}

	want := pixel("medicine_name")
	if got := pixel("Medicine_Name"); got != want {
		t.Errorf("Medicine_Name drawn as %v, want %v", got, want)
	}
	if want == (color.RGBA{128, 128, 128, 255}) {
		t.Error("known attribute should not use the fallback gray")
	}
}
