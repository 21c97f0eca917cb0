// Package audio turns model output into the framed PCM stream the wire
// protocol expects.
package audio

import (
	"encoding/binary"
	"math"

	"github.com/ambiware-labs/pocketvox/internal/wyoming"
)

// DefaultChunkSamples is the nominal samples-per-chunk for streamed audio.
const DefaultChunkSamples = 4096

const sampleWidth = 2 // 16-bit mono

// Frame quantizes samples to little-endian 16-bit mono PCM and emits an
// audio-start event, one audio-chunk per chunkSamples partition (the last
// may be short, never empty), and an audio-stop event, in order. The first
// emit error stops the sequence and is returned.
//
// Samples are assumed bounded to [-1, 1]; out-of-range values wrap on the
// int16 narrowing rather than clipping.
func Frame(samples []float32, rate, chunkSamples int, emit func(wyoming.Event) error) error {
	if chunkSamples <= 0 {
		chunkSamples = DefaultChunkSamples
	}
	format := wyoming.AudioFormat{Rate: rate, Width: sampleWidth, Channels: 1}

	if err := emit(wyoming.NewAudioStart(format)); err != nil {
		return err
	}
	for start := 0; start < len(samples); start += chunkSamples {
		end := start + chunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		if err := emit(wyoming.NewAudioChunk(format, quantize(samples[start:end]))); err != nil {
			return err
		}
	}
	return emit(wyoming.NewAudioStop())
}

func quantize(samples []float32) []byte {
	out := make([]byte, len(samples)*sampleWidth)
	for i, s := range samples {
		v := int16(math.Round(float64(s) * 32767))
		binary.LittleEndian.PutUint16(out[i*sampleWidth:], uint16(v))
	}
	return out
}
