// Package server accepts Wyoming connections and serves one session per
// connection, sharing the model, voice cache, and generation gate.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ambiware-labs/pocketvox/internal/config"
	"github.com/ambiware-labs/pocketvox/internal/journal"
	"github.com/ambiware-labs/pocketvox/internal/model"
	"github.com/ambiware-labs/pocketvox/internal/voicecache"
	"github.com/ambiware-labs/pocketvox/internal/wyoming"
)

type Server struct {
	cfg   config.Config
	model model.Model
	cache *voicecache.Cache
	info  wyoming.Event
	jrnl  *journal.Store
	log   *slog.Logger

	// genMu serializes Generate calls while the backend's reentrancy is
	// unverified (model.serialize).
	genMu sync.Mutex

	listener net.Listener
	wg       sync.WaitGroup

	requests    metric.Int64Counter
	genDuration metric.Float64Histogram
}

func New(cfg config.Config, m model.Model, cache *voicecache.Cache, info wyoming.Event, jrnl *journal.Store, log *slog.Logger) *Server {
	s := &Server{
		cfg:   cfg,
		model: m,
		cache: cache,
		info:  info,
		jrnl:  jrnl,
		log:   log.With(slog.String("component", "server")),
	}

	meter := otel.Meter("pocketvox/server")
	var err error
	if s.requests, err = meter.Int64Counter("tts_requests_total",
		metric.WithDescription("Synthesis turns served, by outcome")); err != nil {
		s.log.Warn("failed to create request counter", slog.String("error", err.Error()))
	}
	if s.genDuration, err = meter.Float64Histogram("tts_generate_seconds",
		metric.WithDescription("Model generation latency")); err != nil {
		s.log.Warn("failed to create duration histogram", slog.String("error", err.Error()))
	}
	return s
}

// Start binds the listener and begins accepting connections. Cancelling
// ctx closes the listener and drains in-flight sessions.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Bind, s.cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = listener

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	s.log.Info("server listening", slog.String("addr", listener.Addr().String()))
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			s.log.Warn("accept failed", slog.String("error", err.Error()))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Close waits for the accept loop and all sessions to finish.
func (s *Server) Close() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
}

// Addr reports the bound address once started.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) generate(ctx context.Context, state model.VoiceState, text string) ([]float32, error) {
	if s.cfg.Model.Serialize {
		s.genMu.Lock()
		defer s.genMu.Unlock()
	}
	return s.model.Generate(ctx, state, text)
}

func (s *Server) observe(ctx context.Context, outcome string, generate time.Duration) {
	if s.requests != nil {
		s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if s.genDuration != nil && generate > 0 {
		s.genDuration.Record(ctx, generate.Seconds(),
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
