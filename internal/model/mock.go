package model

import (
	"context"
	"fmt"
	"sync/atomic"
)

type mockState struct {
	ref Reference
}

// Mock is a deterministic in-process backend used when no engine is
// configured and throughout the test suite.
type Mock struct {
	rate     int
	samples  int
	loads    atomic.Int64
	FailLoad func(ref Reference) error
	FailGen  func(text string) error
}

func NewMock(sampleRate, samplesPerUtterance int) *Mock {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	if samplesPerUtterance <= 0 {
		samplesPerUtterance = 4800
	}
	return &Mock{rate: sampleRate, samples: samplesPerUtterance}
}

func (m *Mock) SampleRate() int { return m.rate }

// Loads reports how many LoadVoice calls reached the backend.
func (m *Mock) Loads() int64 { return m.loads.Load() }

func (m *Mock) LoadVoice(ctx context.Context, ref Reference) (VoiceState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.loads.Add(1)
	if m.FailLoad != nil {
		if err := m.FailLoad(ref); err != nil {
			return nil, err
		}
	}
	return &mockState{ref: ref}, nil
}

func (m *Mock) Generate(ctx context.Context, state VoiceState, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.FailGen != nil {
		if err := m.FailGen(text); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenerate, err)
		}
	}
	if _, ok := state.(*mockState); !ok {
		return nil, fmt.Errorf("%w: foreign voice state %T", ErrGenerate, state)
	}
	// Length scales with the text so chunking paths see varied sizes.
	n := m.samples + len(text)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32((i%200)-100) / 100
	}
	return out, nil
}
