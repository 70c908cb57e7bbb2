// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the complete service configuration.
type Config struct {
	Port        string `validate:"required,numeric"`
	Env         string
	LogLevel    string `validate:"oneof=trace debug info warn warning error"`
	LogDir      string
	BodyLimitMB int `validate:"gte=1,lte=100"`

	Profile      string `validate:"required"`
	ProfilesFile string

	OCRLanguages       []string `validate:"required,min=1,dive,required"`
	OCRWorkers         int      `validate:"gte=1,lte=64"`
	TessdataPrefix     string
	OCREngineMode      string `validate:"oneof=default lstm legacy combined"`
	OCRFallbackOnEmpty bool

	RoboflowAPIURL         string        `validate:"required,url"`
	RoboflowAPIKey         string        `validate:"required"`
	RoboflowModelID        string        `validate:"required"`
	DetectionMinConfidence float64       `validate:"gte=0,lte=1"`
	DetectionTimeout       time.Duration `validate:"gt=0"`

	LLMProvider     string `validate:"oneof=gemini openai none"`
	GeminiAPIKey    string `validate:"required_if=LLMProvider gemini"`
	GeminiModelName string
	OpenAIAPIKey    string
	OpenAIBaseURL   string `validate:"omitempty,url"`
	OpenAIModel     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int           `validate:"gte=0"`
	CacheTTL      time.Duration `validate:"gte=0"`

	RateLimitRPS   float64 `validate:"gte=0"`
	RateLimitBurst int     `validate:"gte=1"`
}

// Lookup reads one variable. os.LookupEnv satisfies it.
type Lookup func(key string) (string, bool)

// NewValidator returns the validator used for configuration and profiles.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// Load reads an optional .env file into the environment and builds the
// configuration from it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds and validates the configuration.
func FromLookup(lookup Lookup) (*Config, error) {
	p := parser{lookup: lookup}

	cfg := &Config{
		Port:        p.str("APP_PORT", "3000"),
		Env:         p.str("APP_ENV", "development"),
		LogLevel:    strings.ToLower(p.str("LOG_LEVEL", "info")),
		LogDir:      p.str("LOG_DIR", "./storage/logs"),
		BodyLimitMB: p.int("BODY_LIMIT_MB", 10),

		Profile:      p.str("OCR_PROFILE", "full"),
		ProfilesFile: p.str("PROFILES_FILE", ""),

		OCRLanguages:       p.list("OCR_LANGUAGES", "eng+fra"),
		OCRWorkers:         p.int("OCR_WORKERS", 1),
		TessdataPrefix:     p.str("TESSDATA_PREFIX", ""),
		OCREngineMode:      strings.ToLower(p.str("OCR_ENGINE_MODE", "lstm")),
		OCRFallbackOnEmpty: p.bool("OCR_FALLBACK_ON_EMPTY", false),

		RoboflowAPIURL:         p.str("ROBOFLOW_API_URL", "https://detect.roboflow.com"),
		RoboflowAPIKey:         p.str("ROBOFLOW_API_KEY", ""),
		RoboflowModelID:        p.str("ROBOFLOW_MODEL_ID", "medilabel_ai/1"),
		DetectionMinConfidence: p.float("DETECTION_MIN_CONFIDENCE", 0),
		DetectionTimeout:       p.duration("DETECTION_TIMEOUT", 30*time.Second),

		LLMProvider:     strings.ToLower(p.str("LLM_PROVIDER", "gemini")),
		GeminiAPIKey:    p.str("GEMINI_API_KEY", ""),
		GeminiModelName: p.str("GEMINI_MODEL_NAME", ""),
		OpenAIAPIKey:    p.str("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   p.str("OPENAI_BASE_URL", ""),
		OpenAIModel:     p.str("OPENAI_MODEL", ""),

		RedisAddr:     p.str("REDIS_ADDR", ""),
		RedisPassword: p.str("REDIS_PASSWORD", ""),
		RedisDB:       p.int("REDIS_DB", 0),
		CacheTTL:      p.duration("CACHE_TTL", time.Hour),

		RateLimitRPS:   p.float("RATE_LIMIT_RPS", 5),
		RateLimitBurst: p.int("RATE_LIMIT_BURST", 10),
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}

	if err := NewValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.LLMProvider == "openai" && cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == "" {
		return nil, errors.New("invalid configuration: OPENAI_API_KEY or OPENAI_BASE_URL is required for the openai provider")
	}

	return cfg, nil
}

// BodyLimit returns the upload limit in bytes.
func (c *Config) BodyLimit() int { return c.BodyLimitMB * 1024 * 1024 }

type parser struct {
	lookup Lookup
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v, ok := p.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (p *parser) int(key string, def int) int {
	s := p.str(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) float(key string, def float64) float64 {
	s := p.str(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) bool(key string, def bool) bool {
	s := p.str(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	s := p.str(key, "")
	if s == "" {
		return def
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

// list splits on "+" or ",", the separators Tesseract and humans use.
func (p *parser) list(key, def string) []string {
	s := p.str(key, def)
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
