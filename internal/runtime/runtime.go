// Package runtime wires configuration, the TTS model, the voice cache, and
// the Wyoming server together and owns process startup and shutdown.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ambiware-labs/pocketvox/internal/bus"
	"github.com/ambiware-labs/pocketvox/internal/catalog"
	"github.com/ambiware-labs/pocketvox/internal/config"
	"github.com/ambiware-labs/pocketvox/internal/journal"
	"github.com/ambiware-labs/pocketvox/internal/model"
	"github.com/ambiware-labs/pocketvox/internal/server"
	"github.com/ambiware-labs/pocketvox/internal/voicecache"
)

type Runtime struct {
	cfg         config.Config
	version     string
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, version string, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:     cfg,
		version: version,
		logger:  logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	mdl, err := r.buildModel()
	if err != nil {
		return fmt.Errorf("failed to build model: %w", err)
	}
	r.logger.Info("model ready",
		slog.String("mode", r.cfg.Model.Mode),
		slog.Int("sample_rate", mdl.SampleRate()))

	cache := voicecache.New(mdl, r.logger)
	if dir := r.cfg.Voice.Dir; dir != "" {
		n := cache.ScanDirectory(ctx, dir)
		r.logger.Info("custom voices scanned", slog.String("dir", dir), slog.Int("loaded", n))
	}
	if r.cfg.Voice.PreloadAll {
		r.logger.Info("preloading preset voices")
		for _, name := range catalog.Names() {
			if _, ok := cache.Get(name); !ok {
				cache.Preload(ctx, name)
			}
		}
	}
	if _, ok := cache.Get(r.cfg.Voice.Default); !ok {
		r.logger.Info("loading default voice", slog.String("voice", r.cfg.Voice.Default))
		cache.Preload(ctx, r.cfg.Voice.Default)
	}

	available := availableVoices(cache)
	r.logger.Info("voices available", slog.Any("voices", available))

	jrnl, err := journal.Open(ctx, r.cfg.Journal, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() { _ = jrnl.Close() }()

	srv := server.New(r.cfg, mdl, cache, server.BuildInfo(r.version, available), jrnl, r.logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	var busClient *bus.Client
	var announcer *bus.Announcer
	if r.cfg.Bus.Enabled {
		busClient, err = bus.Connect(r.cfg.Bus, r.logger)
		if err != nil {
			// Discovery is best-effort; synthesis does not depend on it.
			r.logger.Warn("bus unavailable, presence disabled", slog.String("error", err.Error()))
		} else {
			announcer = bus.StartAnnouncer(ctx, busClient, r.cfg.Bus,
				r.cfg.ServerName, srv.Addr().String(), cache, r.logger)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricHandler != nil {
		mux.Handle("/metrics", metricHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("http_addr", addr))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)

	announcer.Close()
	busClient.Close()
	srv.Close()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) buildModel() (model.Model, error) {
	switch r.cfg.Model.Mode {
	case "exec":
		return model.NewExec(r.cfg.Model.Command, r.cfg.Model.SampleRate, r.cfg.Model.HFToken, r.logger)
	default:
		return model.NewMock(r.cfg.Model.SampleRate, 0), nil
	}
}

// availableVoices is the preset roster plus whatever the directory scan and
// preloading resolved, deduplicated and sorted.
func availableVoices(cache *voicecache.Cache) []string {
	seen := make(map[string]bool)
	var voices []string
	for _, name := range append(catalog.Names(), cache.Names()...) {
		if !seen[name] {
			seen[name] = true
			voices = append(voices, name)
		}
	}
	sort.Strings(voices)
	return voices
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
