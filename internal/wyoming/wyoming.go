// Package wyoming implements the framed event protocol spoken by voice
// assistant clients: one JSON header line per event, optionally followed by
// a JSON data block and a binary payload.
package wyoming

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Event types in scope for a TTS server. Anything else read off the wire is
// passed through as a no-op.
const (
	TypeDescribe   = "describe"
	TypeInfo       = "info"
	TypeSynthesize = "synthesize"
	TypeAudioStart = "audio-start"
	TypeAudioChunk = "audio-chunk"
	TypeAudioStop  = "audio-stop"
)

// Event is one framed protocol message.
type Event struct {
	Type    string
	Data    json.RawMessage
	Payload []byte
}

type header struct {
	Type          string          `json:"type"`
	Data          json.RawMessage `json:"data,omitempty"`
	DataLength    int             `json:"data_length,omitempty"`
	PayloadLength int             `json:"payload_length,omitempty"`
}

// ReadEvent reads one event. It accepts both inline data and the trailing
// data_length form older clients emit.
func ReadEvent(r *bufio.Reader) (Event, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return Event{}, err
	}
	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return Event{}, fmt.Errorf("decode event header: %w", err)
	}
	ev := Event{Type: h.Type, Data: h.Data}
	if h.DataLength > 0 {
		data := make([]byte, h.DataLength)
		if _, err := io.ReadFull(r, data); err != nil {
			return Event{}, fmt.Errorf("read event data: %w", err)
		}
		ev.Data = data
	}
	if h.PayloadLength > 0 {
		payload := make([]byte, h.PayloadLength)
		if _, err := io.ReadFull(r, payload); err != nil {
			return Event{}, fmt.Errorf("read event payload: %w", err)
		}
		ev.Payload = payload
	}
	return ev, nil
}

// WriteEvent frames one event onto w: header line, then payload bytes.
func WriteEvent(w io.Writer, ev Event) error {
	h := header{Type: ev.Type, Data: ev.Data, PayloadLength: len(ev.Payload)}
	line, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode event header: %w", err)
	}
	if _, err := w.Write(append(line, '\n')); err != nil {
		return err
	}
	if len(ev.Payload) > 0 {
		if _, err := w.Write(ev.Payload); err != nil {
			return err
		}
	}
	return nil
}
