package explain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/medilabel-reader/internal/labels"
)

var (
	// ErrNoResponse is returned when the model produced no text.
	ErrNoResponse = errors.New("language model returned no response")

	// ErrUnavailable wraps failures to reach the model.
	ErrUnavailable = errors.New("language model unavailable")
)

// Sampling parameters shared by all generators.
const (
	Temperature     = 0.7
	TopK            = 50
	TopP            = 0.95
	MaxOutputTokens = 500
)

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
	Name() string
	Close() error
}

// Explanation is the response body of an analysis: the six prompt slots and
// the generated text.
type Explanation struct {
	MedicineName      string `json:"medicine_name"`
	Composition       string `json:"composition"`
	Uses              string `json:"uses"`
	DosageAmount      string `json:"dosage_amount"`
	DosageForm        string `json:"dosage_form"`
	Quantity          string `json:"quantity"`
	GeneratedResponse string `json:"generated_response"`
}

// Explainer turns records into explanations.
type Explainer struct {
	gen Generator
	log logrus.FieldLogger
}

// New creates an Explainer backed by gen.
func New(gen Generator, log logrus.FieldLogger) *Explainer {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Explainer{gen: gen, log: log}
}

// Backend returns the generator name.
func (e *Explainer) Backend() string { return e.gen.Name() }

// Explain builds the prompt for record and asks the model to explain it.
func (e *Explainer) Explain(ctx context.Context, record labels.LabelRecord) (*Explanation, error) {
	slots := NewSlots(record)
	prompt := BuildPrompt(slots)

	e.log.WithFields(logrus.Fields{
		"backend": e.gen.Name(),
		"prompt":  prompt.String(),
	}).Debug("sending prompt")

	start := time.Now()
	text, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, e.gen.Name(), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoResponse
	}

	e.log.WithFields(logrus.Fields{
		"backend":    e.gen.Name(),
		"latency_ms": time.Since(start).Milliseconds(),
		"chars":      len(text),
	}).Info("generated explanation")

	return &Explanation{
		MedicineName:      slots[0],
		Composition:       slots[1],
		Uses:              slots[2],
		DosageAmount:      slots[3],
		DosageForm:        slots[4],
		Quantity:          slots[5],
		GeneratedResponse: text,
	}, nil
}

// Close releases the generator.
func (e *Explainer) Close() error { return e.gen.Close() }
