package protocol

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/liverelay/webcast/internal/errors"
	"github.com/liverelay/webcast/pkg/schema"
)

// FrameKind identifies the kind of outer envelope frame.
type FrameKind uint8

const (
	KindUnknown   FrameKind = iota
	KindMsg                 // carries an inner response envelope
	KindAck                 // acknowledgment (outbound only in practice)
	KindHeartbeat           // server keep-alive
)

// String returns the wire tag for the frame kind.
func (k FrameKind) String() string {
	switch k {
	case KindMsg:
		return "msg"
	case KindAck:
		return "ack"
	case KindHeartbeat:
		return "hb"
	default:
		return "unknown"
	}
}

func kindFromTag(tag string) FrameKind {
	switch tag {
	case "msg":
		return KindMsg
	case "ack":
		return KindAck
	case "hb":
		return KindHeartbeat
	default:
		return KindUnknown
	}
}

// gzipMagic is the prefix that marks a gzip-compressed frame payload.
var gzipMagic = []byte{0x1f, 0x8b, 0x08}

// Frame is one outer envelope read off the wire.
//
// ID 0 means the server does not expect an acknowledgment; any other value
// must be acked promptly or the server will judge the client dead.
type Frame struct {
	ID      uint64
	Kind    FrameKind
	Payload []byte

	// Envelope is the decoded inner container, set only for KindMsg frames.
	Envelope *Envelope
}

// DecodeFrame decodes an outer envelope from wire bytes. For msg frames the
// payload is decompressed when it carries the gzip magic prefix, then
// decoded into the inner Envelope. Malformed bytes fail with a frame-decode
// error; retrying is the caller's concern, not this layer's.
func DecodeFrame(s *schema.Schema, data []byte) (*Frame, error) {
	mt, err := s.Lookup("WebcastWebsocketMessage")
	if err != nil {
		return nil, err
	}
	record, err := mt.Decode(data)
	if err != nil {
		return nil, errors.New(errors.CodeFrameDecode).Wrap(err)
	}

	f := &Frame{}
	if id, ok := record["id"].(uint64); ok {
		f.ID = id
	}
	if tag, ok := record["type"].(string); ok {
		f.Kind = kindFromTag(tag)
	}
	if payload, ok := record["binary"].([]byte); ok {
		f.Payload = payload
	}

	if f.Kind != KindMsg || len(f.Payload) == 0 {
		return f, nil
	}

	payload := f.Payload
	if bytes.HasPrefix(payload, gzipMagic) {
		payload, err = gunzip(payload)
		if err != nil {
			return nil, errors.New(errors.CodeDecompress).Wrap(err)
		}
		f.Payload = payload
	}

	f.Envelope, err = DecodeEnvelope(s, payload)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
