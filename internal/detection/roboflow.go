package detection

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/medilabel-reader/internal/imaging"
)

// ErrUnavailable is returned when the detection service cannot be reached or
// answers with an error status.
var ErrUnavailable = errors.New("detection service unavailable")

// Prediction is one detected region as reported by the service.
type Prediction struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Confidence  float64 `json:"confidence"`
	Class       string  `json:"class"`
	ClassID     int     `json:"class_id"`
	DetectionID string  `json:"detection_id"`
}

// Corners returns the prediction box as x1, y1, x2, y2.
func (p Prediction) Corners() (x1, y1, x2, y2 float64) {
	return imaging.CenterBox(p.X, p.Y, p.Width, p.Height)
}

// Response is the body returned by the inference API.
type Response struct {
	InferenceID string  `json:"inference_id"`
	Time        float64 `json:"time"`
	Image       struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"image"`
	Predictions []Prediction `json:"predictions"`
}

// Config configures the Roboflow client.
type Config struct {
	APIURL  string
	APIKey  string
	ModelID string

	// Timeout bounds a single inference request.
	Timeout time.Duration

	// JPEGQuality is used to encode the uploaded image (1-100).
	JPEGQuality int

	// MinConfidence drops predictions below this confidence in Detect.
	MinConfidence float64
}

// DefaultConfig returns the hosted endpoint and model used for medicine labels.
func DefaultConfig() Config {
	return Config{
		APIURL:      "https://detect.roboflow.com",
		ModelID:     "medilabel_ai/1",
		Timeout:     30 * time.Second,
		JPEGQuality: 95,
	}
}

// Roboflow is a client for the hosted inference API.
type Roboflow struct {
	cfg      Config
	endpoint string
	log      logrus.FieldLogger
}

// NewRoboflow creates a client. APIKey and ModelID are required.
func NewRoboflow(cfg Config, log logrus.FieldLogger) (*Roboflow, error) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	def := DefaultConfig()
	if cfg.APIURL == "" {
		cfg.APIURL = def.APIURL
	}
	if cfg.ModelID == "" {
		return nil, errors.New("roboflow model id is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("roboflow api key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = def.JPEGQuality
	}

	endpoint := strings.TrimRight(cfg.APIURL, "/") + "/" + strings.Trim(cfg.ModelID, "/") +
		"?" + url.Values{"api_key": {cfg.APIKey}}.Encode()
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid roboflow url: %w", err)
	}

	return &Roboflow{cfg: cfg, endpoint: endpoint, log: log}, nil
}

// ModelID returns the configured model.
func (r *Roboflow) ModelID() string { return r.cfg.ModelID }

// Predict runs the model on img.
func (r *Roboflow) Predict(ctx context.Context, img image.Image) ([]Prediction, error) {
	data, err := imaging.EncodeJPEG(img, r.cfg.JPEGQuality)
	if err != nil {
		return nil, err
	}
	body := base64.StdEncoding.EncodeToString(data)

	type result struct {
		code int
		body []byte
		err  error
	}
	done := make(chan result, 1)

	go func() {
		agent := fiber.Post(r.endpoint)
		agent.ContentType("application/x-www-form-urlencoded")
		agent.BodyString(body)
		agent.Timeout(r.cfg.Timeout)
		if err := agent.Parse(); err != nil {
			done <- result{err: err}
			return
		}
		code, respBody, errs := agent.Bytes()
		done <- result{code: code, body: respBody, err: errors.Join(errs...)}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, res.err)
	}
	if res.code < 200 || res.code >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, res.code, truncate(string(res.body), 200))
	}

	var resp Response
	if err := jsoniter.Unmarshal(res.body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	r.log.WithFields(logrus.Fields{
		"model":        r.cfg.ModelID,
		"predictions":  len(resp.Predictions),
		"inference_id": resp.InferenceID,
	}).Debug("detection finished")

	return resp.Predictions, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
