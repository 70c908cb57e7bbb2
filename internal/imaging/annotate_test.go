package imaging

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func decodeAnnotated(t *testing.T, res *AnnotateResult) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(res.PNG))
	if err != nil {
		t.Fatalf("annotated output is not a PNG: %v", err)
	}
	return img
}

func TestAnnotate(t *testing.T) {
	img := createTestImage(60, 60, color.White)
	palette := []string{"medicine_name", "quantity"}
	boxes := []Box{{Label: "medicine_name", Confidence: 0.91, X1: 10, Y1: 30, X2: 50, Y2: 55}}

	res, err := Annotate(img, boxes, palette)
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if res.Width != 60 || res.Height != 60 || res.MimeType != "image/png" {
		t.Errorf("unexpected result %dx%d %s", res.Width, res.Height, res.MimeType)
	}

	out := decodeAnnotated(t, res)
	want := labelColors(palette)["medicine_name"]
	if got := rgbaAt(out, 49, 45); got != want {
		t.Errorf("right edge: got %v, want %v", got, want)
	}
	if got := rgbaAt(out, 30, 45); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("box interior should be untouched, got %v", got)
	}
	if got := rgbaAt(img, 49, 45); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("input image modified: %v", got)
	}
}

func TestAnnotate_UnknownLabelIsGray(t *testing.T) {
	img := createTestImage(40, 40, color.White)
	boxes := []Box{{Label: "other", X1: 5, Y1: 20, X2: 35, Y2: 38}}

	res, err := Annotate(img, boxes, []string{"medicine_name"})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if got := rgbaAt(decodeAnnotated(t, res), 34, 30); got != (color.RGBA{128, 128, 128, 255}) {
		t.Errorf("got %v, want gray", got)
	}
}

func TestAnnotate_BoxOutsideImage(t *testing.T) {
	img := createTestImage(20, 20, color.White)
	boxes := []Box{{Label: "quantity", X1: 30, Y1: 30, X2: 40, Y2: 40}}

	res, err := Annotate(img, boxes, []string{"quantity"})
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	out := decodeAnnotated(t, res)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if got := rgbaAt(out, x, y); got != (color.RGBA{255, 255, 255, 255}) {
				t.Fatalf("pixel (%d,%d) changed to %v", x, y, got)
			}
		}
	}
}

func TestLabelColors(t *testing.T) {
	palette := []string{"a", "b", "c", "a"}

	first := labelColors(palette)
	second := labelColors(palette)
	if len(first) != 3 {
		t.Fatalf("got %d colors, want 3", len(first))
	}
	for label, c := range first {
		if second[label] != c {
			t.Errorf("color for %q is not stable", label)
		}
	}
	if first["a"] == first["b"] || first["b"] == first["c"] || first["a"] == first["c"] {
		t.Errorf("labels should get distinct colors: %v", first)
	}
}
