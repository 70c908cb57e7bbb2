package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/medilabel-reader/internal/labels"
)

func envLookup(env map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"ROBOFLOW_API_KEY": "rf-key",
		"GEMINI_API_KEY":   "gm-key",
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(envLookup(baseEnv()))
	if err != nil {
		t.Fatalf("FromLookup failed: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Profile != "full" {
		t.Errorf("Profile = %q", cfg.Profile)
	}
	if strings.Join(cfg.OCRLanguages, "+") != "eng+fra" {
		t.Errorf("OCRLanguages = %v", cfg.OCRLanguages)
	}
	if cfg.OCRWorkers != 1 {
		t.Errorf("OCRWorkers = %d", cfg.OCRWorkers)
	}
	if cfg.OCRFallbackOnEmpty {
		t.Error("OCRFallbackOnEmpty should default to false")
	}
	if cfg.OCREngineMode != "lstm" {
		t.Errorf("OCREngineMode = %q", cfg.OCREngineMode)
	}
	if cfg.RoboflowModelID != "medilabel_ai/1" || cfg.RoboflowAPIURL != "https://detect.roboflow.com" {
		t.Errorf("roboflow = %s %s", cfg.RoboflowAPIURL, cfg.RoboflowModelID)
	}
	if cfg.DetectionTimeout != 30*time.Second {
		t.Errorf("DetectionTimeout = %v", cfg.DetectionTimeout)
	}
	if cfg.LLMProvider != "gemini" {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
	if cfg.BodyLimit() != 10*1024*1024 {
		t.Errorf("BodyLimit = %d", cfg.BodyLimit())
	}
}

func TestFromLookup_Overrides(t *testing.T) {
	env := baseEnv()
	env["APP_PORT"] = "8080"
	env["OCR_PROFILE"] = "simple"
	env["OCR_LANGUAGES"] = "eng, deu"
	env["OCR_WORKERS"] = "4"
	env["OCR_FALLBACK_ON_EMPTY"] = "true"
	env["DETECTION_MIN_CONFIDENCE"] = "0.4"
	env["CACHE_TTL"] = "10m"
	env["LLM_PROVIDER"] = "OpenAI"
	env["OPENAI_BASE_URL"] = "http://localhost:8000/v1"

	cfg, err := FromLookup(envLookup(env))
	if err != nil {
		t.Fatalf("FromLookup failed: %v", err)
	}

	if cfg.Port != "8080" || cfg.Profile != "simple" || cfg.OCRWorkers != 4 {
		t.Errorf("got %+v", cfg)
	}
	if strings.Join(cfg.OCRLanguages, "+") != "eng+deu" {
		t.Errorf("OCRLanguages = %v", cfg.OCRLanguages)
	}
	if !cfg.OCRFallbackOnEmpty {
		t.Error("OCRFallbackOnEmpty should be true")
	}
	if cfg.DetectionMinConfidence != 0.4 {
		t.Errorf("DetectionMinConfidence = %v", cfg.DetectionMinConfidence)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
}

func TestFromLookup_Invalid(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]string
		del  []string
	}{
		{"missing roboflow key", nil, []string{"ROBOFLOW_API_KEY"}},
		{"missing gemini key", nil, []string{"GEMINI_API_KEY"}},
		{"bad port", map[string]string{"APP_PORT": "http"}, nil},
		{"bad worker count", map[string]string{"OCR_WORKERS": "many"}, nil},
		{"zero workers", map[string]string{"OCR_WORKERS": "0"}, nil},
		{"confidence above one", map[string]string{"DETECTION_MIN_CONFIDENCE": "1.5"}, nil},
		{"bad duration", map[string]string{"DETECTION_TIMEOUT": "soon"}, nil},
		{"unknown provider", map[string]string{"LLM_PROVIDER": "llama"}, nil},
		{"openai without key or url", map[string]string{"LLM_PROVIDER": "openai"}, nil},
		{"bad fallback flag", map[string]string{"OCR_FALLBACK_ON_EMPTY": "sometimes"}, nil},
		{"unknown engine mode", map[string]string{"OCR_ENGINE_MODE": "cube"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			for k, v := range tt.set {
				env[k] = v
			}
			for _, k := range tt.del {
				delete(env, k)
			}
			if _, err := FromLookup(envLookup(env)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFromLookup_NoProviderSkipsKeys(t *testing.T) {
	env := map[string]string{"ROBOFLOW_API_KEY": "rf", "LLM_PROVIDER": "none"}
	if _, err := FromLookup(envLookup(env)); err != nil {
		t.Errorf("FromLookup failed: %v", err)
	}
}

func TestLoadProfiles_Builtins(t *testing.T) {
	profiles, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("LoadProfiles failed: %v", err)
	}
	full, err := profiles.Get(labels.ProfileFull)
	if err != nil {
		t.Fatalf("Get(full) failed: %v", err)
	}
	if len(full.Angles) != 7 {
		t.Errorf("full angles = %v", full.Angles)
	}
	simple, err := profiles.Get(labels.ProfileSimple)
	if err != nil {
		t.Fatalf("Get(simple) failed: %v", err)
	}
	if len(simple.Angles) != 4 {
		t.Errorf("simple angles = %v", simple.Angles)
	}
	if _, err := profiles.Get("missing"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestLoadProfiles_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `profiles:
  - name: fast
    angles: [0, 180]
    preprocess:
      upscale_factor: 2
      median_size: 3
  - name: simple
    angles: [0, 90]
    preprocess:
      sharpen_sigma: 0.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles failed: %v", err)
	}

	fast, err := profiles.Get("fast")
	if err != nil {
		t.Fatalf("Get(fast) failed: %v", err)
	}
	if len(fast.Angles) != 2 || fast.Angles[1] != 180 || fast.Preprocess.UpscaleFactor != 2 {
		t.Errorf("fast = %+v", fast)
	}

	simple, _ := profiles.Get("simple")
	if len(simple.Angles) != 2 || simple.Preprocess.SharpenSigma != 0.5 {
		t.Errorf("simple not overridden: %+v", simple)
	}

	if _, err := profiles.Get("full"); err != nil {
		t.Errorf("full should remain: %v", err)
	}
}

func TestLoadProfiles_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no angles", "profiles:\n  - name: empty\n"},
		{"no name", "profiles:\n  - angles: [0]\n"},
		{"angle out of range", "profiles:\n  - name: x\n    angles: [0, 360]\n"},
		{"not yaml", "profiles: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseProfiles(labels.BuiltinProfiles(), []byte(tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestResolveProfile(t *testing.T) {
	cfg := &Config{Profile: "simple"}
	p, err := cfg.ResolveProfile()
	if err != nil {
		t.Fatalf("ResolveProfile failed: %v", err)
	}
	if p.Name != "simple" {
		t.Errorf("Name = %q", p.Name)
	}

	cfg.Profile = "bogus"
	if _, err := cfg.ResolveProfile(); err == nil {
		t.Error("expected error for unknown profile")
	}
}
