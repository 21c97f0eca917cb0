package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ambiware-labs/pocketvox/internal/audio"
	"github.com/ambiware-labs/pocketvox/internal/journal"
	"github.com/ambiware-labs/pocketvox/internal/voicecache"
	"github.com/ambiware-labs/pocketvox/internal/wyoming"
)

// session serves one connection. There is no state beyond the in-flight
// turn; every request is independent.
type session struct {
	id   string
	conn net.Conn
	srv  *Server
	log  *slog.Logger
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	sess := &session{
		id:   id,
		conn: conn,
		srv:  s,
		log: s.log.With(
			slog.String("session", id[:8]),
			slog.String("remote", conn.RemoteAddr().String())),
	}
	sess.run(ctx)
}

func (sess *session) run(ctx context.Context) {
	defer sess.conn.Close()
	sess.log.Debug("session opened")

	reader := bufio.NewReader(sess.conn)
	for {
		ev, err := wyoming.ReadEvent(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				sess.log.Debug("session read ended", slog.String("error", err.Error()))
			}
			return
		}

		switch ev.Type {
		case wyoming.TypeDescribe:
			if err := wyoming.WriteEvent(sess.conn, sess.srv.info); err != nil {
				sess.log.Warn("failed to write info", slog.String("error", err.Error()))
				return
			}
			sess.log.Debug("sent info in response to describe")
		case wyoming.TypeSynthesize:
			if err := sess.synthesize(ctx, ev); err != nil {
				sess.log.Warn("session write failed", slog.String("error", err.Error()))
				return
			}
		default:
			// Other event types are not ours to handle.
		}
	}
}

// synthesize runs one turn. Only connection write failures return an
// error; voice and model failures end the turn silently with no frames,
// leaving the connection open for the next request.
func (sess *session) synthesize(ctx context.Context, ev wyoming.Event) error {
	srv := sess.srv

	req, err := wyoming.ParseSynthesize(ev)
	if err != nil {
		sess.log.Warn("bad synthesize event", slog.String("error", err.Error()))
		return nil
	}

	voiceID := req.VoiceID()
	if voiceID == "" {
		voiceID = srv.cfg.Voice.Default
	}
	turn := journal.Turn{
		SessionID:      sess.id,
		VoiceRequested: voiceID,
		TextChars:      len(req.Text),
	}

	if strings.TrimSpace(req.Text) == "" {
		sess.log.Warn("synthesize request with empty text")
		sess.finish(ctx, turn, journal.OutcomeGenFailed, 0)
		return nil
	}

	state, err := srv.cache.Resolve(ctx, voiceID)
	if errors.Is(err, voicecache.ErrUnknownVoice) && voiceID != srv.cfg.Voice.Default {
		sess.log.Warn("voice not found, using default",
			slog.String("voice", voiceID),
			slog.String("default", srv.cfg.Voice.Default))
		voiceID = srv.cfg.Voice.Default
		state, err = srv.cache.Resolve(ctx, voiceID)
	}
	if err != nil {
		outcome := journal.OutcomeLoadFailed
		if errors.Is(err, voicecache.ErrUnknownVoice) {
			outcome = journal.OutcomeUnknown
		}
		sess.log.Error("no voice state available",
			slog.String("voice", voiceID),
			slog.String("error", err.Error()))
		sess.finish(ctx, turn, outcome, 0)
		return nil
	}
	turn.VoiceUsed = voiceID

	sess.log.Info("generating speech",
		slog.String("voice", voiceID),
		slog.Int("chars", len(req.Text)))

	start := time.Now()
	samples, err := srv.generate(ctx, state, req.Text)
	elapsed := time.Since(start)
	turn.Duration = elapsed
	if err != nil {
		sess.log.Error("generation failed",
			slog.String("voice", voiceID),
			slog.String("error", err.Error()))
		sess.finish(ctx, turn, journal.OutcomeGenFailed, elapsed)
		return nil
	}
	turn.Samples = len(samples)

	err = audio.Frame(samples, srv.model.SampleRate(), srv.cfg.Model.ChunkSamples,
		func(frame wyoming.Event) error {
			return wyoming.WriteEvent(sess.conn, frame)
		})
	if err != nil {
		sess.finish(ctx, turn, journal.OutcomeWriteFailed, elapsed)
		return fmt.Errorf("write audio frames: %w", err)
	}

	sess.log.Info("audio generation complete",
		slog.String("voice", voiceID),
		slog.Int("samples", len(samples)),
		slog.Duration("took", elapsed))
	sess.finish(ctx, turn, journal.OutcomeOK, elapsed)
	return nil
}

func (sess *session) finish(ctx context.Context, turn journal.Turn, outcome string, generate time.Duration) {
	sess.srv.observe(ctx, outcome, generate)
	turn.Outcome = outcome
	if err := sess.srv.jrnl.Append(ctx, turn); err != nil {
		sess.log.Warn("journal append failed", slog.String("error", err.Error()))
	}
}
