package model

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mattn/go-shellwords"
)

type execState struct {
	// Path to the exported voice embedding consumed by `generate --voice`.
	path string
}

// Exec drives the pocket-tts CLI as a subprocess backend. LoadVoice exports
// a voice embedding once per reference; Generate pipes text on stdin and
// reads the WAV result from stdout.
type Exec struct {
	cmd      []string
	rate     int
	hfToken  string
	stateDir string
	log      *slog.Logger
}

func NewExec(command string, sampleRate int, hfToken string, log *slog.Logger) (*Exec, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse model command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("model command empty")
	}
	dir, err := os.MkdirTemp("", "pocketvox-voices-")
	if err != nil {
		return nil, fmt.Errorf("create voice state dir: %w", err)
	}
	return &Exec{
		cmd:      args,
		rate:     sampleRate,
		hfToken:  hfToken,
		stateDir: dir,
		log:      log.With(slog.String("component", "model-exec")),
	}, nil
}

func (e *Exec) SampleRate() int { return e.rate }

func (e *Exec) command(ctx context.Context, extra ...string) *exec.Cmd {
	base := e.cmd[0]
	args := append(append([]string{}, e.cmd[1:]...), extra...)
	cmd := exec.CommandContext(ctx, base, args...)
	cmd.Env = os.Environ()
	if e.hfToken != "" {
		cmd.Env = append(cmd.Env, "HF_TOKEN="+e.hfToken)
	}
	return cmd
}

func (e *Exec) LoadVoice(ctx context.Context, ref Reference) (VoiceState, error) {
	if ref.Kind == RefLocal {
		if _, err := os.Stat(ref.Location); err != nil {
			return nil, fmt.Errorf("voice sample missing: %w", err)
		}
	}
	sum := sha256.Sum256([]byte(ref.Location))
	out := filepath.Join(e.stateDir, hex.EncodeToString(sum[:8])+".safetensors")

	if _, err := os.Stat(out); err != nil {
		cmd := e.command(ctx, "export-voice", ref.Location, "--output", out)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("export voice %s: %w: %s", ref, err, stderr.String())
		}
		e.log.Debug("exported voice state", slog.String("ref", ref.Location), slog.String("path", out))
	}
	return &execState{path: out}, nil
}

func (e *Exec) Generate(ctx context.Context, state VoiceState, text string) ([]float32, error) {
	st, ok := state.(*execState)
	if !ok {
		return nil, fmt.Errorf("%w: foreign voice state %T", ErrGenerate, state)
	}

	cmd := e.command(ctx, "generate", "--voice", st.path, "--text", "-", "--output-path", "-")
	cmd.Stdin = bytes.NewBufferString(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrGenerate, err, stderr.String())
	}

	samples, err := decodeWAV(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerate, err)
	}
	return samples, nil
}

// decodeWAV converts the CLI's 16-bit mono WAV output to [-1, 1] floats.
func decodeWAV(data []byte) ([]float32, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	return bufferToFloats(buf), nil
}

func bufferToFloats(buf *audio.IntBuffer) []float32 {
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := float32(int(1) << (depth - 1))
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / scale
	}
	return out
}
