// Package message defines the byte layouts exchanged between the analyzer
// and the downstream services. All multi-byte fields are little-endian.
package message

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/home-safety-sensor/internal/logic"
)

// Type tags the first two bytes of every framed message.
type Type uint16

const (
	TypeReading Type = 0x01
	TypeAlert   Type = 0x02
	TypePulse   Type = 0x03
	TypeLog     Type = 0x04
)

func (t Type) String() string {
	switch t {
	case TypeReading:
		return "reading"
	case TypeAlert:
		return "alert"
	case TypePulse:
		return "pulse"
	case TypeLog:
		return "log"
	default:
		return fmt.Sprintf("type(0x%02x)", uint16(t))
	}
}

// TextSize is the fixed length of the text field, terminator included.
const TextSize = 128

// ReadingSize is the encoded length of a Reading.
const ReadingSize = 2 + 8 + 4 + 1 + 4 + 1 + 1 + 1 + 1 + 1 + 2 + 1 + 1 + 1 + 4

var (
	ErrShort     = errors.New("message too short")
	ErrWrongType = errors.New("unexpected message type")
)

// Reading is the aggregated message built once per aggregation cycle.
type Reading struct {
	Timestamp time.Time // encoded as Unix seconds

	Temperature   int32
	TempValid     bool
	Humidity      int32
	HumidityValid bool

	Gas         bool
	GasValid    bool
	Motion      bool
	MotionValid bool

	Distance      uint16
	DoorClosed    bool
	DistanceValid bool

	AlertLevel logic.Severity
	Sequence   uint32
}

// NewReading builds the aggregated message from one evaluated snapshot.
func NewReading(now time.Time, r logic.Readings, res logic.Result, seq uint32) Reading {
	return Reading{
		Timestamp:     now,
		Temperature:   int32(r.Climate.Temperature),
		TempValid:     r.Climate.Valid,
		Humidity:      int32(r.Climate.Humidity),
		HumidityValid: r.Climate.Valid,
		Gas:           r.Gas.Detected,
		GasValid:      r.Gas.Valid,
		Motion:        r.Motion.Detected,
		MotionValid:   r.Motion.Valid,
		Distance:      r.Distance.CM,
		DoorClosed:    res.DoorClosed,
		DistanceValid: r.Distance.Valid,
		AlertLevel:    res.Level,
		Sequence:      seq,
	}
}

// wireReading mirrors the byte layout field for field.
type wireReading struct {
	Type          uint16
	Timestamp     int64
	Temperature   int32
	TempValid     uint8
	Humidity      int32
	HumidityValid uint8
	Gas           uint8
	GasValid      uint8
	Motion        uint8
	MotionValid   uint8
	Distance      uint16
	DoorClosed    uint8
	DistanceValid uint8
	AlertLevel    uint8
	Sequence      uint32
}

// Encode returns the fixed binary layout of r.
func (r Reading) Encode() []byte {
	w := wireReading{
		Type:          uint16(TypeReading),
		Timestamp:     r.Timestamp.Unix(),
		Temperature:   r.Temperature,
		TempValid:     b2u(r.TempValid),
		Humidity:      r.Humidity,
		HumidityValid: b2u(r.HumidityValid),
		Gas:           b2u(r.Gas),
		GasValid:      b2u(r.GasValid),
		Motion:        b2u(r.Motion),
		MotionValid:   b2u(r.MotionValid),
		Distance:      r.Distance,
		DoorClosed:    b2u(r.DoorClosed),
		DistanceValid: b2u(r.DistanceValid),
		AlertLevel:    uint8(r.AlertLevel),
		Sequence:      r.Sequence,
	}
	var buf bytes.Buffer
	buf.Grow(ReadingSize)
	// Writing a fixed-size struct into a bytes.Buffer cannot fail.
	_ = binary.Write(&buf, binary.LittleEndian, &w)
	return buf.Bytes()
}

// DecodeReading parses a message produced by Reading.Encode.
func DecodeReading(data []byte) (Reading, error) {
	if len(data) < ReadingSize {
		return Reading{}, fmt.Errorf("reading: %w: %d bytes", ErrShort, len(data))
	}
	var w wireReading
	if err := binary.Read(bytes.NewReader(data[:ReadingSize]), binary.LittleEndian, &w); err != nil {
		return Reading{}, fmt.Errorf("reading: %w", err)
	}
	if Type(w.Type) != TypeReading {
		return Reading{}, fmt.Errorf("reading: %w: %s", ErrWrongType, Type(w.Type))
	}
	return Reading{
		Timestamp:     time.Unix(w.Timestamp, 0),
		Temperature:   w.Temperature,
		TempValid:     w.TempValid != 0,
		Humidity:      w.Humidity,
		HumidityValid: w.HumidityValid != 0,
		Gas:           w.Gas != 0,
		GasValid:      w.GasValid != 0,
		Motion:        w.Motion != 0,
		MotionValid:   w.MotionValid != 0,
		Distance:      w.Distance,
		DoorClosed:    w.DoorClosed != 0,
		DistanceValid: w.DistanceValid != 0,
		AlertLevel:    logic.Severity(w.AlertLevel),
		Sequence:      w.Sequence,
	}, nil
}

// Text is an alert or log message: a type tag and a NUL-padded text field.
type Text struct {
	Type Type
	Text string
}

// AlertText formats an alert for the event sink.
func AlertText(a logic.Alert) Text {
	return Text{Type: TypeAlert, Text: a.String()}
}

// LogText formats a free-form log line for the event sink.
func LogText(msg string) Text {
	return Text{Type: TypeLog, Text: "[LOG] " + msg}
}

// Encode returns the type tag followed by exactly TextSize bytes. Text longer
// than TextSize-1 bytes is truncated so the field always ends in a NUL.
func (t Text) Encode() []byte {
	out := make([]byte, 2+TextSize)
	binary.LittleEndian.PutUint16(out, uint16(t.Type))
	s := t.Text
	if len(s) > TextSize-1 {
		s = s[:TextSize-1]
	}
	copy(out[2:], s)
	return out
}

// DecodeText parses an alert or log message.
func DecodeText(data []byte) (Text, error) {
	if len(data) < 2+TextSize {
		return Text{}, fmt.Errorf("text: %w: %d bytes", ErrShort, len(data))
	}
	typ := Type(binary.LittleEndian.Uint16(data))
	if typ != TypeAlert && typ != TypeLog {
		return Text{}, fmt.Errorf("text: %w: %s", ErrWrongType, typ)
	}
	field := data[2 : 2+TextSize]
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return Text{Type: typ, Text: string(field)}, nil
}

// EncodePulse returns the single-byte pulse payload.
func EncodePulse(code logic.PulseCode) []byte {
	return []byte{byte(code)}
}

// DecodePulse parses a pulse payload.
func DecodePulse(data []byte) (logic.PulseCode, error) {
	if len(data) < 1 {
		return logic.PulseNone, fmt.Errorf("pulse: %w", ErrShort)
	}
	return logic.PulseCode(data[0]), nil
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
