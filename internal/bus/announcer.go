package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ambiware-labs/pocketvox/internal/config"
)

// SubjectPresence carries periodic TTS node heartbeats.
const SubjectPresence = "tts.presence"

// Presence is one heartbeat announcing a reachable TTS server.
type Presence struct {
	Node      string    `json:"node"`
	Addr      string    `json:"addr"`
	Voices    []string  `json:"voices"`
	Timestamp time.Time `json:"timestamp"`
}

// VoiceLister reports the currently resolved voices for heartbeats.
type VoiceLister interface {
	Names() []string
}

// Announcer publishes presence heartbeats until stopped.
type Announcer struct {
	client   *Client
	interval time.Duration
	node     string
	addr     string
	voices   VoiceLister
	log      *slog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func StartAnnouncer(parent context.Context, client *Client, cfg config.BusConfig, node, addr string, voices VoiceLister, log *slog.Logger) *Announcer {
	ctx, cancel := context.WithCancel(parent)
	a := &Announcer{
		client:   client,
		interval: time.Duration(cfg.HeartbeatInterval) * time.Millisecond,
		node:     node,
		addr:     addr,
		voices:   voices,
		log:      log.With(slog.String("component", "announcer")),
		cancel:   cancel,
	}
	a.wg.Add(1)
	go a.run(ctx)
	return a
}

func (a *Announcer) run(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.publish()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.publish()
		}
	}
}

func (a *Announcer) publish() {
	msg := Presence{
		Node:      a.node,
		Addr:      a.addr,
		Voices:    a.voices.Names(),
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		a.log.Warn("failed to marshal presence", slog.String("error", err.Error()))
		return
	}
	if err := a.client.Conn().Publish(SubjectPresence, data); err != nil {
		a.log.Warn("failed to publish presence", slog.String("error", err.Error()))
	}
}

func (a *Announcer) Close() {
	if a == nil {
		return
	}
	a.cancel()
	a.wg.Wait()
}
