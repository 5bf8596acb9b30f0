package protocol

import (
	"github.com/liverelay/webcast/pkg/schema"
)

// EncodeAck encodes an acknowledgment frame referencing the given frame id.
// The server requires one ack per frame with id > 0; a missed ack risks the
// server judging the client dead.
func EncodeAck(s *schema.Schema, id uint64) ([]byte, error) {
	mt, err := s.Lookup("WebcastWebsocketAck")
	if err != nil {
		return nil, err
	}
	return mt.Encode(map[string]any{
		"id":   id,
		"type": "ack",
	})
}
