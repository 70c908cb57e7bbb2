package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/medilabel-reader/internal/cache"
	"github.com/ironsheep/medilabel-reader/internal/config"
	"github.com/ironsheep/medilabel-reader/internal/detection"
	"github.com/ironsheep/medilabel-reader/internal/explain"
	"github.com/ironsheep/medilabel-reader/internal/labels"
	"github.com/ironsheep/medilabel-reader/internal/logging"
	"github.com/ironsheep/medilabel-reader/internal/ocr"
	"github.com/ironsheep/medilabel-reader/internal/pipeline"
	"github.com/ironsheep/medilabel-reader/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 5 * time.Minute
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("label-reader %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Options{
		Level: cfg.LogLevel,
		Dir:   cfg.LogDir,
		Env:   cfg.Env,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func printHelp() {
	fmt.Println("label-reader - medicine label reading service")
	fmt.Println()
	fmt.Println("Usage: label-reader [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (a .env file is read when present):")
	fmt.Println("  APP_PORT=3000                 HTTP port")
	fmt.Println("  LOG_LEVEL=info                trace, debug, info, warn or error")
	fmt.Println("  OCR_PROFILE=full              full or simple, or a name from PROFILES_FILE")
	fmt.Println("  OCR_LANGUAGES=eng+fra         Tesseract languages")
	fmt.Println("  OCR_WORKERS=1                 Tesseract clients and parallel angles")
	fmt.Println("  OCR_ENGINE_MODE=lstm          lstm, legacy, combined or default")
	fmt.Println("  OCR_FALLBACK_ON_EMPTY=false   Retry empty regions with automatic segmentation")
	fmt.Println("  ROBOFLOW_API_KEY              Detection API key (required)")
	fmt.Println("  ROBOFLOW_MODEL_ID=medilabel_ai/1  Detection model")
	fmt.Println("  LLM_PROVIDER=gemini           gemini, openai or none")
	fmt.Println("  GEMINI_API_KEY                Required for the gemini provider")
	fmt.Println("  REDIS_ADDR                    Cache results in Redis instead of memory")
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
		"env":     cfg.Env,
	}).Info("starting label reader")

	profile, err := cfg.ResolveProfile()
	if err != nil {
		return err
	}

	engineMode, err := ocr.ParseEngineMode(cfg.OCREngineMode)
	if err != nil {
		return err
	}

	ocrCfg := ocr.DefaultConfig()
	ocrCfg.EngineMode = engineMode
	ocrCfg.Languages = cfg.OCRLanguages
	ocrCfg.Workers = cfg.OCRWorkers
	ocrCfg.TessdataPrefix = cfg.TessdataPrefix
	engine, err := ocr.NewTesseract(ocrCfg)
	if err != nil {
		return fmt.Errorf("failed to start tesseract: %w", err)
	}
	defer engine.Close()

	detector, err := detection.NewRoboflow(detection.Config{
		APIURL:        cfg.RoboflowAPIURL,
		APIKey:        cfg.RoboflowAPIKey,
		ModelID:       cfg.RoboflowModelID,
		Timeout:       cfg.DetectionTimeout,
		MinConfidence: cfg.DetectionMinConfidence,
	}, log)
	if err != nil {
		return err
	}

	scorer := labels.NewRotationScorer(engine, profile.Angles,
		labels.WithWorkers(engine.Workers()),
		labels.WithScorerLogger(log),
	)
	aggOpts := []labels.AggregatorOption{labels.WithAggregatorLogger(log)}
	if cfg.OCRFallbackOnEmpty {
		aggOpts = append(aggOpts, labels.WithFallback(engine))
	}
	aggregator := labels.NewAggregator(scorer, profile.Preprocess, aggOpts...)

	var explainer pipeline.Explainer
	llmBackend := "none"
	if cfg.LLMProvider != "none" {
		gen, err := explain.NewGenerator(ctx, explain.Config{
			Provider:      cfg.LLMProvider,
			GeminiAPIKey:  cfg.GeminiAPIKey,
			GeminiModel:   cfg.GeminiModelName,
			OpenAIAPIKey:  cfg.OpenAIAPIKey,
			OpenAIBaseURL: cfg.OpenAIBaseURL,
			OpenAIModel:   cfg.OpenAIModel,
		})
		if err != nil {
			return fmt.Errorf("failed to create language model client: %w", err)
		}
		e := explain.New(gen, log)
		defer e.Close()
		explainer = e
		llmBackend = e.Backend()
	}

	store, err := newStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	service := pipeline.New(detector, aggregator, explainer, profile,
		pipeline.WithCache(store, cfg.CacheTTL),
		pipeline.WithLogger(log),
	)

	srv, err := server.New(
		server.WithService(service),
		server.WithEngineInfo(engine),
		server.WithLogger(log),
		server.WithBodyLimit(cfg.BodyLimit()),
		server.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		server.WithLLMBackend(llmBackend),
		server.WithVersion(Version),
	)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"profile":   profile.Name,
		"angles":    scorer.Angles(),
		"languages": engine.Languages(),
		"workers":   engine.Workers(),
		"model":     detector.ModelID(),
		"llm":       llmBackend,
	}).Info("pipeline ready")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	cancel()
	if err := srv.Shutdown(shutdownTimeout); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	return nil
}

// newStore returns a Redis store when REDIS_ADDR is set, otherwise an
// in-memory store swept in the background until ctx is done.
func newStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (cache.Store, error) {
	if cfg.RedisAddr != "" {
		return cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
	}

	mem := cache.NewMemory()
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := mem.Sweep(); n > 0 {
					log.WithFields(logrus.Fields{
						"removed":   n,
						"remaining": mem.Len(),
					}).Debug("swept expired cache entries")
				}
			}
		}
	}()
	return mem, nil
}
