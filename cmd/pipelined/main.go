// Command pipelined wires the transcription pipeline, a provider, the
// event bus, metrics, and the websocket transport into a long-running
// service. Structurally mirrors the teacher's cmd/ramble/main.go App
// struct (flag parsing, signal-driven shutdown, component wiring) adapted
// from a desktop UI app to a headless service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/meetily/asr-core/internal/config"
	"github.com/meetily/asr-core/internal/events"
	"github.com/meetily/asr-core/internal/logging"
	"github.com/meetily/asr-core/internal/metrics"
	"github.com/meetily/asr-core/internal/pipeline"
	"github.com/meetily/asr-core/internal/provider"
	"github.com/meetily/asr-core/internal/qwenasr"
	"github.com/meetily/asr-core/internal/transport/httpapi"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; defaults are used if empty")
	debug := flag.Bool("debug", false, "resolve the Qwen3-ASR models directory in debug mode (cwd-relative)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	logging.Init(os.Stdout, logging.ParseLevel(cfg.Log.Level))
	log := logging.For(logging.ComponentApp)

	bus := events.NewBus(log)
	instruments := metrics.New("asrcore")

	p, engine, err := buildProvider(cfg, *debug, bus, log)
	if err != nil {
		log.Error("failed to construct provider", "err", err)
		os.Exit(1)
	}
	_ = engine

	dispatcher := pipeline.NewDispatcher(p, bus, cfg.Pipeline.Workers, cfg.Provider.Language).WithMetrics(instruments)

	server := httpapi.New(bus, instruments, false)
	httpServer := &http.Server{Addr: cfg.Transport.ListenAddr, Handler: server.Router()}

	go func() {
		log.Info("transport listening", "addr", cfg.Transport.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("transport server failed", "err", err)
		}
	}()

	chunks := make(chan pipeline.AudioChunk)
	ctx, cancel := context.WithCancel(context.Background())

	runErr := make(chan error, 1)
	go func() { runErr <- dispatcher.Run(ctx, chunks) }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	close(chunks)
	cancel()

	if err := <-runErr; err != nil {
		log.Warn("dispatcher exited with error", "err", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("transport shutdown error", "err", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildProvider constructs the configured provider.Provider. For qwen3 it
// also resolves a models directory, wires the Engine to bus so that
// download and load-lifecycle events reach the UI consumer, and attempts
// to load the configured preferred model, downloading it first if needed.
// Failures here are best-effort: a provider that ends up unloaded leaves
// the service running rather than failing startup.
func buildProvider(cfg *config.Config, debug bool, bus *events.Bus, log *slog.Logger) (provider.Provider, *qwenasr.Engine, error) {
	switch cfg.Provider.Name {
	case "openai":
		return provider.NewOpenAIProvider(cfg.Provider.OpenAIAPIKey, cfg.Provider.OpenAIModel, ""), nil, nil

	case "qwen3":
		modelsDir := cfg.Qwen.ModelsDir
		if modelsDir == "" {
			resolved, err := qwenasr.ResolveModelsDir("", debug)
			if err != nil {
				return nil, nil, fmt.Errorf("resolve models dir: %w", err)
			}
			modelsDir = resolved
		}

		engine := qwenasr.NewEngine(modelsDir, bus)
		p := provider.NewQwen3Provider(nil, "")

		preferred := qwenasr.ModelName(cfg.Qwen.PreferredModel)
		status, known := engine.Status(preferred)
		if known && status.Kind == qwenasr.StatusMissing {
			log.Info("downloading preferred qwen3 model", "model", preferred)
			if err := engine.DownloadModel(preferred, nil); err != nil {
				log.Warn("failed to download preferred qwen3 model", "model", preferred, "err", err)
			}
			status, known = engine.Status(preferred)
		}

		if known && status.Kind == qwenasr.StatusAvailable {
			if err := engine.LoadModel(preferred); err != nil {
				log.Warn("failed to load preferred qwen3 model", "model", preferred, "err", err)
			} else {
				p.SetHandle(engine.Handle(), string(preferred))
			}
		} else {
			log.Warn("preferred qwen3 model not available, starting unloaded", "model", preferred)
		}

		return p, engine, nil

	default:
		return nil, nil, fmt.Errorf("unsupported provider %q (whisper/parakeet require a pre-opened native handle, wire via library use)", cfg.Provider.Name)
	}
}
