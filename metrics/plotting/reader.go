// Package plotting reads measurement logs written by the metrics package and
// renders them.
package plotting

import (
	"encoding/json"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Measurements collects measurements.
type Measurements interface {
	// Add adds a measurement to the collection.
	Add(*structpb.Struct)
}

// Reader reads measurements from JSON.
type Reader struct {
	sinks []Measurements
	rd    io.Reader
}

// NewReader returns a reader that passes every measurement in rd to sinks.
func NewReader(rd io.Reader, sinks ...Measurements) *Reader {
	return &Reader{sinks: sinks, rd: rd}
}

// ReadAll passes every measurement in the source to the sinks.
// The source must hold a single JSON array.
func (r *Reader) ReadAll() error {
	dec := json.NewDecoder(r.rd)
	if err := expectDelim(dec, '['); err != nil {
		return err
	}
	for n := 0; dec.More(); n++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("measurement %d: %w", n, err)
		}
		if err := r.read(raw); err != nil {
			return fmt.Errorf("measurement %d: %w", n, err)
		}
	}
	return expectDelim(dec, ']')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading %q: %w", want, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("got %v, want %q", tok, want)
	}
	return nil
}

func (r *Reader) read(b []byte) error {
	msg := &anypb.Any{}
	if err := protojson.Unmarshal(b, msg); err != nil {
		return fmt.Errorf("failed to unmarshal JSON message: %w", err)
	}
	s := &structpb.Struct{}
	if err := msg.UnmarshalTo(s); err != nil {
		return fmt.Errorf("unexpected measurement type %s: %w", msg.GetTypeUrl(), err)
	}
	for _, sink := range r.sinks {
		sink.Add(s)
	}
	return nil
}
