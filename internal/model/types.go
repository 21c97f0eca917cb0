package model

import (
	"context"
	"errors"
)

// VoiceState is the opaque conditioning handle a backend produces from a
// voice sample. Immutable once returned; safe to share across sessions.
type VoiceState any

// RefKind discriminates where a voice sample lives.
type RefKind int

const (
	// RefRemote points at a hosted sample, e.g. hf://kyutai/tts-voices/...
	RefRemote RefKind = iota
	// RefLocal points at a file on disk.
	RefLocal
)

// Reference locates the sample audio a voice is conditioned on.
type Reference struct {
	Kind     RefKind
	Location string
}

func Remote(uri string) Reference { return Reference{Kind: RefRemote, Location: uri} }
func Local(path string) Reference { return Reference{Kind: RefLocal, Location: path} }
func (r Reference) String() string { return r.Location }

// ErrGenerate wraps any backend failure during synthesis.
var ErrGenerate = errors.New("generation failed")

// Model is the contract for a TTS engine.
type Model interface {
	// SampleRate reports the fixed output rate in Hz.
	SampleRate() int

	// LoadVoice builds a reusable voice state from a sample reference.
	LoadVoice(ctx context.Context, ref Reference) (VoiceState, error)

	// Generate synthesizes text into mono float samples in [-1, 1].
	// Reentrancy is backend-specific; callers gate concurrent use.
	Generate(ctx context.Context, state VoiceState, text string) ([]float32, error)
}
