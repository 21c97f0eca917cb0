// Package voicecache owns the process-wide mapping from voice identifier
// to loaded voice state. Entries are added once and never replaced.
package voicecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ambiware-labs/pocketvox/internal/catalog"
	"github.com/ambiware-labs/pocketvox/internal/model"
)

// ErrUnknownVoice marks identifiers outside the catalog and the custom set.
var ErrUnknownVoice = errors.New("unknown voice")

// Audio formats accepted during a custom-voice directory scan.
var allowedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".ogg":  true,
	".flac": true,
	".m4a":  true,
}

// Cache is shared by every session. Loads are deduplicated per identifier:
// concurrent Resolve calls for the same unseen voice dispatch one model
// load and all callers observe its result.
type Cache struct {
	model model.Model
	log   *slog.Logger

	mu     sync.RWMutex
	states map[string]model.VoiceState
	group  singleflight.Group
}

func New(m model.Model, log *slog.Logger) *Cache {
	return &Cache{
		model:  m,
		log:    log.With(slog.String("component", "voicecache")),
		states: make(map[string]model.VoiceState),
	}
}

// Get returns an already-resolved voice state without loading.
func (c *Cache) Get(id string) (model.VoiceState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.states[id]
	return st, ok
}

func (c *Cache) put(id string, st model.VoiceState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.states[id]; exists {
		return
	}
	c.states[id] = st
}

// Resolve returns the cached state for id, loading it through the model if
// id names a catalog preset seen for the first time. Identifiers outside
// both the cache and the catalog yield ErrUnknownVoice.
func (c *Cache) Resolve(ctx context.Context, id string) (model.VoiceState, error) {
	if st, ok := c.Get(id); ok {
		return st, nil
	}
	ref, ok := catalog.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVoice, id)
	}

	v, err, _ := c.group.Do(id, func() (any, error) {
		// A racer may have finished while we queued on the group.
		if st, ok := c.Get(id); ok {
			return st, nil
		}
		st, err := c.model.LoadVoice(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("load voice %q: %w", id, err)
		}
		c.put(id, st)
		c.log.Info("voice loaded", slog.String("voice", id), slog.String("ref", ref.Location))
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(model.VoiceState), nil
}

// Preload forces a resolve, keeping only the cache side effect. Failure is
// logged and left for the first real request to retry.
func (c *Cache) Preload(ctx context.Context, id string) {
	if _, err := c.Resolve(ctx, id); err != nil {
		c.log.Warn("voice preload failed", slog.String("voice", id), slog.String("error", err.Error()))
	}
}

// ScanDirectory loads every allowed audio file in dir as a custom voice,
// keyed by filename stem. Runs once at startup, sequentially; a file that
// fails to load is skipped. Returns the number of voices loaded.
func (c *Cache) ScanDirectory(ctx context.Context, dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		c.log.Warn("voices directory unreadable", slog.String("dir", dir), slog.String("error", err.Error()))
		return 0
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !allowedExtensions[ext] {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		path := filepath.Join(dir, name)

		st, err := c.model.LoadVoice(ctx, model.Local(path))
		if err != nil {
			c.log.Warn("custom voice load failed",
				slog.String("voice", id),
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		c.put(id, st)
		c.log.Info("custom voice loaded", slog.String("voice", id), slog.String("path", path))
		loaded++
	}
	return loaded
}

// Names lists the resolved identifiers in stable order.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.states))
	for id := range c.states {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

// Len reports how many voices are resolved.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.states)
}
