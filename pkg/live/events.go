package live

import "github.com/liverelay/webcast/pkg/protocol"

// EventKind is the closed set of events a connection emits. The names are
// the consumer-facing contract; switch on the kind, never on the name.
type EventKind int

const (
	// Lifecycle events.
	EventConnected EventKind = iota
	EventWebsocketConnected
	EventDisconnected
	EventError
	EventStreamEnd
	EventRawData
	EventDecodedData
	EventDecodeFailed

	// Message events, one per submessage type.
	EventChat
	EventMember
	EventGift
	EventRoomUser
	EventSocial
	EventLike
	EventQuestionNew
	EventLinkMicBattle
	EventLinkMicArmies
	EventLiveIntro
	EventEmote
	EventEnvelope
	EventSubscribe

	// Derived from social messages by display type.
	EventFollow
	EventShare
)

var eventNames = map[EventKind]string{
	EventConnected:          "connected",
	EventWebsocketConnected: "websocketConnected",
	EventDisconnected:       "disconnected",
	EventError:              "error",
	EventStreamEnd:          "streamEnd",
	EventRawData:            "rawData",
	EventDecodedData:        "decodedData",
	EventDecodeFailed:       "messageDecodingFailed",
	EventChat:               "chat",
	EventMember:             "member",
	EventGift:               "gift",
	EventRoomUser:           "roomUser",
	EventSocial:             "social",
	EventLike:               "like",
	EventQuestionNew:        "questionNew",
	EventLinkMicBattle:      "linkMicBattle",
	EventLinkMicArmies:      "linkMicArmies",
	EventLiveIntro:          "liveIntro",
	EventEmote:              "emote",
	EventEnvelope:           "envelope",
	EventSubscribe:          "subscribe",
	EventFollow:             "follow",
	EventShare:              "share",
}

// String returns the consumer-facing event name.
func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// messageKinds maps submessage type tags to their event kind. Control
// messages are handled separately.
var messageKinds = map[string]EventKind{
	protocol.TypeChat:          EventChat,
	protocol.TypeMember:        EventMember,
	protocol.TypeGift:          EventGift,
	protocol.TypeRoomUserSeq:   EventRoomUser,
	protocol.TypeSocial:        EventSocial,
	protocol.TypeLike:          EventLike,
	protocol.TypeQuestionNew:   EventQuestionNew,
	protocol.TypeLinkMicBattle: EventLinkMicBattle,
	protocol.TypeLinkMicArmies: EventLinkMicArmies,
	protocol.TypeLiveIntro:     EventLiveIntro,
	protocol.TypeEmoteChat:     EventEmote,
	protocol.TypeEnvelope:      EventEnvelope,
	protocol.TypeSubNotify:     EventSubscribe,
}

// Event is one connection event. Data carries the flat record for message
// events (and the action code for streamEnd), Raw the wire payload for
// rawData, Err the cause for error and messageDecodingFailed.
type Event struct {
	Kind EventKind
	Data map[string]any
	Raw  []byte
	Err  error
}
