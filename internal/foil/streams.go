package foil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Stream types as reported by the activity-tracking API
const (
	StreamTime     = "time"
	StreamVelocity = "velocity_smooth"
	StreamAltitude = "altitude"
	StreamGrade    = "grade_smooth"
	StreamLatLng   = "latlng"
	StreamDistance = "distance"
)

var (
	// ErrMissingStreams is returned when time, velocity or altitude is absent or empty.
	// It is an expected condition (e.g. an outing recorded without a barometer).
	ErrMissingStreams = errors.New("missing required streams for foil analysis")

	// ErrLengthMismatch is returned when the required streams are not index-aligned.
	ErrLengthMismatch = errors.New("time, velocity and altitude streams differ in length")
)

// Stream is a single named series. Data is nil for stream types that
// don't decode to plain numbers (latlng pairs are kept in Raw).
type Stream struct {
	Type string          `json:"type"`
	Data []float64       `json:"-"`
	Raw  json.RawMessage `json:"data"`
}

// bundleShape tags which of the two upstream response modes a bundle came from
type bundleShape int

const (
	shapeKeyed bundleShape = iota
	shapeArray
)

// StreamBundle is the raw set of streams for one recorded outing.
type StreamBundle struct {
	shape   bundleShape
	streams map[string]Stream
	order   []string
}

// NewStreamBundle builds a keyed bundle from already-decoded series.
func NewStreamBundle(series map[string][]float64) *StreamBundle {
	b := &StreamBundle{shape: shapeKeyed, streams: make(map[string]Stream, len(series))}
	for _, t := range []string{StreamTime, StreamVelocity, StreamAltitude} {
		if data, ok := series[t]; ok {
			b.add(Stream{Type: t, Data: data})
		}
	}
	for t, data := range series {
		if _, ok := b.streams[t]; !ok {
			b.add(Stream{Type: t, Data: data})
		}
	}
	return b
}

func (b *StreamBundle) add(s Stream) {
	if b.streams == nil {
		b.streams = make(map[string]Stream)
	}
	if _, ok := b.streams[s.Type]; !ok {
		b.order = append(b.order, s.Type)
	}
	b.streams[s.Type] = s
}

// Get returns the numeric data of a stream, or nil when it is absent.
func (b *StreamBundle) Get(streamType string) []float64 {
	if b == nil {
		return nil
	}
	return b.streams[streamType].Data
}

// Types lists the stream types in the order they were received.
func (b *StreamBundle) Types() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.order...)
}

// UnmarshalJSON accepts both the keyed-object and array-of-records response shapes.
func (b *StreamBundle) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return fmt.Errorf("empty stream bundle")
	}

	*b = StreamBundle{streams: make(map[string]Stream)}

	switch trimmed[0] {
	case '[':
		b.shape = shapeArray
		var records []Stream
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return fmt.Errorf("decoding stream records: %w", err)
		}
		for _, s := range records {
			if s.Type == "" {
				continue
			}
			decodeNumeric(&s)
			b.add(s)
		}
	case '{':
		b.shape = shapeKeyed
		var keyed map[string]Stream
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return fmt.Errorf("decoding keyed streams: %w", err)
		}
		// Required streams first so Types() is deterministic for them
		for _, t := range []string{StreamTime, StreamVelocity, StreamAltitude} {
			if s, ok := keyed[t]; ok {
				s.Type = t
				decodeNumeric(&s)
				b.add(s)
				delete(keyed, t)
			}
		}
		for t, s := range keyed {
			s.Type = t
			decodeNumeric(&s)
			b.add(s)
		}
	case 'n':
		// JSON null: leave the bundle empty
	default:
		return fmt.Errorf("stream bundle must be an object or an array")
	}

	return nil
}

// MarshalJSON writes the bundle back out in the shape it was received in.
func (b StreamBundle) MarshalJSON() ([]byte, error) {
	encode := func(s Stream) any {
		if s.Data != nil {
			return s.Data
		}
		if len(s.Raw) > 0 {
			return s.Raw
		}
		return []float64{}
	}

	if b.shape == shapeArray {
		out := make([]map[string]any, 0, len(b.order))
		for _, t := range b.order {
			out = append(out, map[string]any{"type": t, "data": encode(b.streams[t])})
		}
		return json.Marshal(out)
	}

	out := make(map[string]map[string]any, len(b.order))
	for _, t := range b.order {
		out[t] = map[string]any{"data": encode(b.streams[t])}
	}
	return json.Marshal(out)
}

// decodeNumeric fills Data from Raw when the payload is a flat number array
func decodeNumeric(s *Stream) {
	if len(s.Raw) == 0 {
		return
	}
	var nums []float64
	if err := json.Unmarshal(s.Raw, &nums); err == nil {
		s.Data = nums
		s.Raw = nil
	}
}

// Streams is the canonical, index-aligned form the engine runs on.
type Streams struct {
	Velocity []float64 `json:"velocity"`
	Altitude []float64 `json:"altitude"`
	Time     []float64 `json:"time"`
}

// Len returns the number of samples.
func (s Streams) Len() int {
	return len(s.Time)
}

// Validate enforces the presence and equal-length invariants.
func (s Streams) Validate() error {
	if len(s.Time) == 0 || len(s.Velocity) == 0 || len(s.Altitude) == 0 {
		return ErrMissingStreams
	}
	if len(s.Time) != len(s.Velocity) || len(s.Time) != len(s.Altitude) {
		return fmt.Errorf("%w: time=%d velocity=%d altitude=%d",
			ErrLengthMismatch, len(s.Time), len(s.Velocity), len(s.Altitude))
	}
	return nil
}

// Normalize extracts the three required series from a bundle.
func Normalize(b *StreamBundle) (Streams, error) {
	s := Streams{
		Time:     b.Get(StreamTime),
		Velocity: b.Get(StreamVelocity),
		Altitude: b.Get(StreamAltitude),
	}
	if err := s.Validate(); err != nil {
		return Streams{}, err
	}
	return s, nil
}
