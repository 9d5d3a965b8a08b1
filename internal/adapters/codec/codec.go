// Package codec implements ports.RecordDecoder for CBOR encoded payloads.
//
// A payload is one kind byte followed by a CBOR map with integer keys:
//
//	KIND (0x01 channel sample, 0x02 event record) | CBOR body
//
// Encode and EncodeFrame produce the same format for producers, replay
// captures and tests.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/bft-labs/ladcache/internal/domain"
)

const (
	tagChannel byte = 0x01
	tagEvent   byte = 0x02
)

// encMode uses Core Deterministic Encoding so the same record always
// produces the same bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 4096,
		MaxMapPairs:      4096,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Decoder implements ports.RecordDecoder. It is stateless and safe for
// concurrent use.
type Decoder struct{}

// NewDecoder creates a decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses one payload.
func (*Decoder) Decode(payload []byte) (domain.Record, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("payload too short (%d bytes)", len(payload))
	}
	body := payload[1:]
	switch payload[0] {
	case tagChannel:
		w := wireChannel{Header: unsetHeader()}
		if err := decMode.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("channel sample: %w", err)
		}
		if w.ChannelID == "" {
			return nil, fmt.Errorf("channel sample without channel id")
		}
		return w.record(), nil
	case tagEvent:
		w := wireEvent{Header: unsetHeader(), EventID: -1}
		if err := decMode.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("event record: %w", err)
		}
		if w.Name == "" && w.EventID < 0 {
			return nil, fmt.Errorf("event record without id or name")
		}
		return w.record(), nil
	default:
		return nil, fmt.Errorf("unknown record kind 0x%02x", payload[0])
	}
}

// Encode serializes rec into a payload accepted by Decode.
func Encode(rec domain.Record) ([]byte, error) {
	var (
		tag  byte
		body []byte
		err  error
	)
	switch r := rec.(type) {
	case *domain.ChannelSample:
		tag = tagChannel
		body, err = encMode.Marshal(fromChannel(r))
	case *domain.EventRecord:
		tag = tagEvent
		body, err = encMode.Marshal(fromEvent(r))
	default:
		return nil, fmt.Errorf("codec: unsupported record %T", rec)
	}
	if err != nil {
		return nil, fmt.Errorf("codec: encode %s: %w", rec.Kind(), err)
	}
	return append([]byte{tag}, body...), nil
}

// EncodeFrame serializes rec and wraps it in a marker and length field.
func EncodeFrame(rec domain.Record) ([]byte, error) {
	payload, err := Encode(rec)
	if err != nil {
		return nil, err
	}
	return Frame(payload), nil
}

// Frame wraps an already encoded payload in a marker and length field.
func Frame(payload []byte) []byte {
	out := make([]byte, 0, len(domain.Marker)+domain.LengthFieldSize+len(payload))
	out = append(out, domain.Marker[:]...)
	out = binary.BigEndian.AppendUint32(out, uint32(domain.LengthFieldSize+len(payload)))
	return append(out, payload...)
}
