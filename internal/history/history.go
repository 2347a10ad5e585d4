// Package history persists finished hands and replays them. Each hand
// is stored as its full event stream, one JSON envelope per line; the
// immutable hand record is a pure fold over that stream, so replaying
// a stored stream rebuilds the identical record.
package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openfelt/cardroom/internal/engine"
)

// Envelope wraps one event for storage with enough type information
// to decode it again.
type Envelope struct {
	Seq  uint64           `json:"seq"`
	Type engine.EventType `json:"type"`
	Data json.RawMessage  `json:"data"`
}

// EncodeEvents renders an event stream as JSON lines.
func EncodeEvents(events []engine.Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", e.Type(), err)
		}
		if err := enc.Encode(Envelope{Seq: e.Sequence(), Type: e.Type(), Data: data}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeEvents parses JSON lines back into typed events.
func DecodeEvents(data []byte) ([]engine.Event, error) {
	var events []engine.Event
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var env Envelope
		if err := dec.Decode(&env); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		e, err := decodeEvent(env)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func decodeAs[T engine.Event](data json.RawMessage) (engine.Event, error) {
	var e T
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e, nil
}

var decoders = map[engine.EventType]func(json.RawMessage) (engine.Event, error){
	engine.EventHandStarted:    decodeAs[engine.HandStarted],
	engine.EventBlindPosted:    decodeAs[engine.BlindPosted],
	engine.EventHoleDealt:      decodeAs[engine.HoleDealt],
	engine.EventCommunityDealt: decodeAs[engine.CommunityDealt],
	engine.EventActionTaken:    decodeAs[engine.ActionTaken],
	engine.EventStreetAdvanced: decodeAs[engine.StreetAdvanced],
	engine.EventPotsUpdated:    decodeAs[engine.PotsUpdated],
	engine.EventHandRevealed:   decodeAs[engine.HandRevealed],
	engine.EventPotsAwarded:    decodeAs[engine.PotsAwarded],
	engine.EventHandEnded:      decodeAs[engine.HandEnded],
	engine.EventHandAborted:    decodeAs[engine.HandAborted],
}

func decodeEvent(env Envelope) (engine.Event, error) {
	dec, ok := decoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	e, err := dec(env.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return e, nil
}

// Replay rebuilds the hand record from a stored event stream.
func Replay(data []byte) (*engine.CompletedHand, error) {
	events, err := DecodeEvents(data)
	if err != nil {
		return nil, err
	}
	return engine.BuildCompletedHand(events)
}

// Writer persists a finished hand.
type Writer interface {
	WriteHand(rec *engine.CompletedHand, events []engine.Event) error
}

// FileWriter stores each hand as two files in a directory: the event
// stream (hand_<id>.jsonl) and the folded record (hand_<id>.json).
type FileWriter struct {
	directory string
}

// NewFileWriter creates a file-based hand store.
func NewFileWriter(directory string) *FileWriter {
	return &FileWriter{directory: directory}
}

// WriteHand writes the event stream and record for one hand.
func (w *FileWriter) WriteHand(rec *engine.CompletedHand, events []engine.Event) error {
	if err := os.MkdirAll(w.directory, 0755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}
	stream, err := EncodeEvents(events)
	if err != nil {
		return err
	}
	streamPath := filepath.Join(w.directory, fmt.Sprintf("hand_%s.jsonl", rec.HandID))
	if err := os.WriteFile(streamPath, stream, 0644); err != nil {
		return fmt.Errorf("write event stream: %w", err)
	}
	record, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	recordPath := filepath.Join(w.directory, fmt.Sprintf("hand_%s.json", rec.HandID))
	if err := os.WriteFile(recordPath, record, 0644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// ReadHand loads a stored event stream by hand id.
func (w *FileWriter) ReadHand(handID string) ([]engine.Event, error) {
	path := filepath.Join(w.directory, fmt.Sprintf("hand_%s.jsonl", handID))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeEvents(data)
}

// NopWriter discards hands. Used by tests and tables with history
// disabled.
type NopWriter struct{}

func (NopWriter) WriteHand(*engine.CompletedHand, []engine.Event) error { return nil }
