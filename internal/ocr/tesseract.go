package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/medilabel-reader/internal/imaging"
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("ocr engine is closed")

// EngineMode selects Tesseract's recognition engine.
type EngineMode int

const (
	// EngineDefault leaves the choice to the installed traineddata.
	EngineDefault EngineMode = iota
	// EngineLSTM forces the neural net engine (--oem 1).
	EngineLSTM
	// EngineLegacy forces the legacy engine (--oem 0).
	EngineLegacy
	// EngineCombined runs both engines (--oem 2).
	EngineCombined
)

// ParseEngineMode maps "default", "lstm", "legacy" or "combined" to a mode.
func ParseEngineMode(s string) (EngineMode, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return EngineDefault, nil
	case "lstm":
		return EngineLSTM, nil
	case "legacy":
		return EngineLegacy, nil
	case "combined":
		return EngineCombined, nil
	}
	return EngineDefault, fmt.Errorf("unknown engine mode %q", s)
}

// oem returns the tessedit_ocr_engine_mode value, or -1 for EngineDefault.
func (m EngineMode) oem() int {
	switch m {
	case EngineLSTM:
		return 1
	case EngineLegacy:
		return 0
	case EngineCombined:
		return 2
	}
	return -1
}

// Config configures the Tesseract service.
type Config struct {
	// Languages are Tesseract language codes, e.g. ["eng", "fra"].
	Languages []string

	// PageSegMode is used by Recognize. Defaults to PSM_SINGLE_BLOCK.
	PageSegMode gosseract.PageSegMode

	// FallbackPageSegMode is used by RecognizeText. Defaults to PSM_AUTO.
	FallbackPageSegMode gosseract.PageSegMode

	// TessdataPrefix overrides the tessdata directory when non-empty.
	TessdataPrefix string

	// EngineMode is applied through an init-time config file, since the
	// engine cannot be switched once a client is initialized.
	EngineMode EngineMode

	// Workers is the number of clients in the pool. Values below 1 mean 1.
	Workers int
}

// DefaultConfig returns English+French LSTM recognition of a single text
// block with one client.
func DefaultConfig() Config {
	return Config{
		Languages:           []string{"eng", "fra"},
		EngineMode:          EngineLSTM,
		PageSegMode:         gosseract.PSM_SINGLE_BLOCK,
		FallbackPageSegMode: gosseract.PSM_AUTO,
		Workers:             1,
	}
}

// Tesseract is a pooled Tesseract recognizer. Create one per process with
// NewTesseract and release it with Close.
type Tesseract struct {
	cfg        Config
	clients    chan *gosseract.Client
	all        []*gosseract.Client
	done       chan struct{}
	configFile string
}

// NewTesseract creates the client pool.
//
// Clients are configured eagerly (language, tessdata path) so that a
// misconfiguration is reported here rather than on the first request. The
// underlying engine still initializes lazily on first use.
func NewTesseract(cfg Config) (*Tesseract, error) {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.PageSegMode == 0 {
		cfg.PageSegMode = gosseract.PSM_SINGLE_BLOCK
	}
	if cfg.FallbackPageSegMode == 0 {
		cfg.FallbackPageSegMode = gosseract.PSM_AUTO
	}

	t := &Tesseract{
		cfg:     cfg,
		clients: make(chan *gosseract.Client, cfg.Workers),
		done:    make(chan struct{}),
	}

	configFile, err := writeEngineConfig(cfg.EngineMode)
	if err != nil {
		return nil, err
	}
	t.configFile = configFile

	for i := 0; i < cfg.Workers; i++ {
		client := gosseract.NewClient()
		if t.configFile != "" {
			if err := client.SetConfigFile(t.configFile); err != nil {
				client.Close()
				t.closeAll()
				return nil, fmt.Errorf("failed to set engine config: %w", err)
			}
		}
		if cfg.TessdataPrefix != "" {
			if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
				client.Close()
				t.closeAll()
				return nil, fmt.Errorf("failed to set tessdata path: %w", err)
			}
		}
		if err := client.SetLanguage(cfg.Languages...); err != nil {
			client.Close()
			t.closeAll()
			return nil, fmt.Errorf("failed to set language: %w", err)
		}
		t.all = append(t.all, client)
		t.clients <- client
	}

	return t, nil
}

// Workers returns the pool size.
func (t *Tesseract) Workers() int { return t.cfg.Workers }

// Languages returns the configured language codes joined with "+".
func (t *Tesseract) Languages() string { return strings.Join(t.cfg.Languages, "+") }

// Recognize runs word-level recognition on img.
//
// Every word box at Tesseract's word level is returned, blank words included,
// so callers decide how to treat them. Confidence stays on Tesseract's 0-100
// scale.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (Recognition, error) {
	var rec Recognition
	err := t.withClient(ctx, img, t.cfg.PageSegMode, func(c *gosseract.Client) error {
		boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
		if err != nil {
			return fmt.Errorf("OCR failed: %w", err)
		}
		rec.Words = make([]Word, 0, len(boxes))
		for _, box := range boxes {
			rec.Words = append(rec.Words, Word{
				Text:       box.Word,
				Confidence: box.Confidence,
				Bounds: Bounds{
					X1: box.Box.Min.X,
					Y1: box.Box.Min.Y,
					X2: box.Box.Max.X,
					Y2: box.Box.Max.Y,
				},
			})
		}
		return nil
	})
	if err != nil {
		return Recognition{}, err
	}
	return rec, nil
}

// RecognizeText returns all text found in img as one trimmed string, using the
// fallback page segmentation mode. Lines are joined with single spaces.
func (t *Tesseract) RecognizeText(ctx context.Context, img image.Image) (string, error) {
	var text string
	err := t.withClient(ctx, img, t.cfg.FallbackPageSegMode, func(c *gosseract.Client) error {
		out, err := c.Text()
		if err != nil {
			return fmt.Errorf("OCR failed: %w", err)
		}
		text = strings.Join(strings.Fields(out), " ")
		return nil
	})
	return text, err
}

// Version returns the Tesseract library version.
func (t *Tesseract) Version(ctx context.Context) (string, error) {
	c, err := t.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer t.release(c)
	return c.Version(), nil
}

// Close releases every client. Calls blocked waiting for a client fail with
// ErrClosed; calls already holding a client finish first.
func (t *Tesseract) Close() error {
	select {
	case <-t.done:
		return nil
	default:
	}
	close(t.done)

	var errs []error
	for range t.all {
		c := <-t.clients
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	t.removeConfig()
	return errors.Join(errs...)
}

func (t *Tesseract) withClient(ctx context.Context, img image.Image, mode gosseract.PageSegMode, fn func(*gosseract.Client) error) error {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return err
	}

	c, err := t.acquire(ctx)
	if err != nil {
		return err
	}
	defer t.release(c)

	if err := c.SetPageSegMode(mode); err != nil {
		return fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return fmt.Errorf("failed to set image: %w", err)
	}
	return fn(c)
}

func (t *Tesseract) acquire(ctx context.Context) (*gosseract.Client, error) {
	select {
	case <-t.done:
		return nil, ErrClosed
	default:
	}

	select {
	case c := <-t.clients:
		return c, nil
	case <-t.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Tesseract) release(c *gosseract.Client) {
	t.clients <- c
}

func (t *Tesseract) closeAll() {
	for _, c := range t.all {
		c.Close()
	}
	t.removeConfig()
}

func (t *Tesseract) removeConfig() {
	if t.configFile != "" {
		os.Remove(t.configFile)
		t.configFile = ""
	}
}

// writeEngineConfig writes a Tesseract config file selecting mode and
// returns its path. EngineDefault needs no file and returns "".
func writeEngineConfig(mode EngineMode) (string, error) {
	oem := mode.oem()
	if oem < 0 {
		return "", nil
	}

	f, err := os.CreateTemp("", "medilabel-oem-*.cfg")
	if err != nil {
		return "", fmt.Errorf("failed to create engine config: %w", err)
	}
	if _, err := fmt.Fprintf(f, "tessedit_ocr_engine_mode %d\n", oem); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write engine config: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write engine config: %w", err)
	}
	return f.Name(), nil
}
