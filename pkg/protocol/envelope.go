package protocol

import (
	"github.com/liverelay/webcast/internal/errors"
	"github.com/liverelay/webcast/pkg/schema"
)

// Known submessage type tags. Only these are decoded into typed records;
// anything else passes through undecoded so that newly introduced types
// never crash the pipeline.
const (
	TypeChat          = "WebcastChatMessage"
	TypeGift          = "WebcastGiftMessage"
	TypeLike          = "WebcastLikeMessage"
	TypeMember        = "WebcastMemberMessage"
	TypeSocial        = "WebcastSocialMessage"
	TypeRoomUserSeq   = "WebcastRoomUserSeqMessage"
	TypeControl       = "WebcastControlMessage"
	TypeQuestionNew   = "WebcastQuestionNewMessage"
	TypeLinkMicBattle = "WebcastLinkMicBattle"
	TypeLinkMicArmies = "WebcastLinkMicArmies"
	TypeLiveIntro     = "WebcastLiveIntroMessage"
	TypeEmoteChat     = "WebcastEmoteChatMessage"
	TypeEnvelope      = "WebcastEnvelopeMessage"
	TypeSubNotify     = "WebcastSubNotifyMessage"
)

// KnownTypes is the whitelist of submessage types the codec decodes.
var KnownTypes = map[string]bool{
	TypeChat:          true,
	TypeGift:          true,
	TypeLike:          true,
	TypeMember:        true,
	TypeSocial:        true,
	TypeRoomUserSeq:   true,
	TypeControl:       true,
	TypeQuestionNew:   true,
	TypeLinkMicBattle: true,
	TypeLinkMicArmies: true,
	TypeLiveIntro:     true,
	TypeEmoteChat:     true,
	TypeEnvelope:      true,
	TypeSubNotify:     true,
}

// Submessage is one typed inner message within an Envelope.
type Submessage struct {
	Type   string
	Binary []byte

	// Decoded is the schema-decoded record for whitelisted types,
	// nil for unknown types.
	Decoded map[string]any
}

// Envelope is the decoded inner container holding zero or more submessages.
type Envelope struct {
	Messages []Submessage
}

// DecodeEnvelope decodes the inner response container. Submessages with a
// whitelisted type are decoded into records via the schema; unknown types
// are passed through with Decoded unset.
func DecodeEnvelope(s *schema.Schema, data []byte) (*Envelope, error) {
	mt, err := s.Lookup("WebcastResponse")
	if err != nil {
		return nil, err
	}
	record, err := mt.Decode(data)
	if err != nil {
		return nil, errors.New(errors.CodeEnvelopeDecode).Wrap(err)
	}

	env := &Envelope{}
	messages, _ := record["messages"].([]any)
	for _, raw := range messages {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		sub := Submessage{}
		sub.Type, _ = entry["type"].(string)
		sub.Binary, _ = entry["binary"].([]byte)

		if KnownTypes[sub.Type] {
			inner, err := s.Lookup(sub.Type)
			if err != nil {
				return nil, err
			}
			sub.Decoded, err = inner.Decode(sub.Binary)
			if err != nil {
				return nil, errors.New(errors.CodeEnvelopeDecode).
					WithDetail("submessage %s", sub.Type).Wrap(err)
			}
		}
		env.Messages = append(env.Messages, sub)
	}
	return env, nil
}
