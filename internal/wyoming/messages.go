package wyoming

import (
	"encoding/json"
	"fmt"
)

// Voice selects which voice a synthesize request wants. Name takes
// precedence over Speaker when both are set.
type Voice struct {
	Name    string `json:"name,omitempty"`
	Speaker string `json:"speaker,omitempty"`
}

// Synthesize is the inbound TTS request.
type Synthesize struct {
	Text  string `json:"text"`
	Voice *Voice `json:"voice,omitempty"`
}

// AudioFormat describes the PCM stream between audio-start and audio-stop.
type AudioFormat struct {
	Rate     int `json:"rate"`
	Width    int `json:"width"`
	Channels int `json:"channels"`
}

// Attribution credits the upstream voice or program source.
type Attribution struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// TTSVoice is one installed voice advertised in an info response.
type TTSVoice struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Attribution Attribution `json:"attribution"`
	Installed   bool        `json:"installed"`
	Version     string      `json:"version,omitempty"`
	Languages   []string    `json:"languages"`
}

// TTSProgram is one TTS engine entry advertised in an info response.
type TTSProgram struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Attribution Attribution `json:"attribution"`
	Installed   bool        `json:"installed"`
	Version     string      `json:"version,omitempty"`
	Voices      []TTSVoice  `json:"voices"`
}

// Info answers a describe request.
type Info struct {
	TTS []TTSProgram `json:"tts"`
}

// ParseSynthesize decodes a synthesize event's data block.
func ParseSynthesize(ev Event) (Synthesize, error) {
	if ev.Type != TypeSynthesize {
		return Synthesize{}, fmt.Errorf("not a synthesize event: %q", ev.Type)
	}
	var s Synthesize
	if err := json.Unmarshal(ev.Data, &s); err != nil {
		return Synthesize{}, fmt.Errorf("decode synthesize: %w", err)
	}
	return s, nil
}

// VoiceID applies the selector precedence: name, then speaker, then empty.
func (s Synthesize) VoiceID() string {
	if s.Voice == nil {
		return ""
	}
	if s.Voice.Name != "" {
		return s.Voice.Name
	}
	return s.Voice.Speaker
}

func mustEvent(typ string, data any) Event {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(fmt.Sprintf("marshal %s event: %v", typ, err))
	}
	return Event{Type: typ, Data: raw}
}

// NewDescribe builds an inbound describe probe (used by tests and clients).
func NewDescribe() Event { return Event{Type: TypeDescribe} }

// NewInfo builds the outbound info response.
func NewInfo(info Info) Event { return mustEvent(TypeInfo, info) }

// NewSynthesize builds an inbound synthesize request.
func NewSynthesize(s Synthesize) Event { return mustEvent(TypeSynthesize, s) }

// NewAudioStart opens an audio stream.
func NewAudioStart(f AudioFormat) Event { return mustEvent(TypeAudioStart, f) }

// NewAudioChunk carries one PCM slice; the format rides in the data block
// alongside the raw payload bytes.
func NewAudioChunk(f AudioFormat, pcm []byte) Event {
	ev := mustEvent(TypeAudioChunk, f)
	ev.Payload = pcm
	return ev
}

// NewAudioStop terminates an audio stream.
func NewAudioStop() Event { return Event{Type: TypeAudioStop} }
