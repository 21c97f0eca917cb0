package wyoming

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

func roundTrip(t *testing.T, ev Event) Event {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteEvent(&buf, ev); err != nil {
		t.Fatalf("write event: %v", err)
	}
	got, err := ReadEvent(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	return got
}

func TestRoundTripDescribe(t *testing.T) {
	got := roundTrip(t, NewDescribe())
	if got.Type != TypeDescribe {
		t.Fatalf("expected describe, got %q", got.Type)
	}
	if len(got.Payload) != 0 {
		t.Fatalf("expected no payload, got %d bytes", len(got.Payload))
	}
}

func TestRoundTripSynthesize(t *testing.T) {
	ev := NewSynthesize(Synthesize{Text: "hello", Voice: &Voice{Name: "alba"}})
	got := roundTrip(t, ev)
	s, err := ParseSynthesize(got)
	if err != nil {
		t.Fatalf("parse synthesize: %v", err)
	}
	if s.Text != "hello" {
		t.Fatalf("expected text hello, got %q", s.Text)
	}
	if s.VoiceID() != "alba" {
		t.Fatalf("expected voice alba, got %q", s.VoiceID())
	}
}

func TestRoundTripAudioChunk(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	got := roundTrip(t, NewAudioChunk(AudioFormat{Rate: 24000, Width: 2, Channels: 1}, pcm))
	if got.Type != TypeAudioChunk {
		t.Fatalf("expected audio-chunk, got %q", got.Type)
	}
	if !bytes.Equal(got.Payload, pcm) {
		t.Fatalf("payload mismatch: %v", got.Payload)
	}
	var f AudioFormat
	if err := json.Unmarshal(got.Data, &f); err != nil {
		t.Fatalf("decode format: %v", err)
	}
	if f.Rate != 24000 || f.Width != 2 || f.Channels != 1 {
		t.Fatalf("format mismatch: %+v", f)
	}
}

func TestRoundTripInfo(t *testing.T) {
	info := Info{TTS: []TTSProgram{{
		Name:      "pocket-tts",
		Installed: true,
		Voices:    []TTSVoice{{Name: "alba", Installed: true, Languages: []string{"en"}}},
	}}}
	got := roundTrip(t, NewInfo(info))
	var decoded Info
	if err := json.Unmarshal(got.Data, &decoded); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if len(decoded.TTS) != 1 || decoded.TTS[0].Name != "pocket-tts" {
		t.Fatalf("unexpected info: %+v", decoded)
	}
	if len(decoded.TTS[0].Voices) != 1 || decoded.TTS[0].Voices[0].Name != "alba" {
		t.Fatalf("unexpected voices: %+v", decoded.TTS[0].Voices)
	}
}

func TestReadTrailingDataForm(t *testing.T) {
	// Older clients send data after the header line instead of inline.
	data := []byte(`{"text":"hi","voice":{"speaker":"marius"}}`)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"type":"synthesize","data_length":%d}`+"\n", len(data))
	buf.Write(data)

	ev, err := ReadEvent(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	s, err := ParseSynthesize(ev)
	if err != nil {
		t.Fatalf("parse synthesize: %v", err)
	}
	if s.Text != "hi" || s.VoiceID() != "marius" {
		t.Fatalf("unexpected request: %+v", s)
	}
}

func TestVoiceIDPrecedence(t *testing.T) {
	cases := []struct {
		voice *Voice
		want  string
	}{
		{nil, ""},
		{&Voice{Name: "alba"}, "alba"},
		{&Voice{Speaker: "marius"}, "marius"},
		{&Voice{Name: "alba", Speaker: "marius"}, "alba"},
	}
	for _, tc := range cases {
		s := Synthesize{Text: "x", Voice: tc.voice}
		if got := s.VoiceID(); got != tc.want {
			t.Fatalf("voice %+v: expected %q, got %q", tc.voice, tc.want, got)
		}
	}
}
