package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType selects the payload carried by a Message.
type MessageType uint8

const (
	// Messages that are sent from server to client without a request
	ServerArenaEventType MessageType = iota

	// Messages sent in response to an action
	GenericResponseType
	ListArenasResponseType
	ArenaInfoResponseType

	// Messages that are sent from client to server
	InitialMessageActionType
	JoinArenaActionType
	ServerArenaActionType
	ListArenasActionType
	CreateArenaActionType
	ArenaInfoActionType
)

var messageTypeNames = [...]string{
	ServerArenaEventType:     "ServerArenaEvent",
	GenericResponseType:      "GenericResponse",
	ListArenasResponseType:   "ListArenasResponse",
	ArenaInfoResponseType:    "ArenaInfoResponse",
	InitialMessageActionType: "InitialMessageAction",
	JoinArenaActionType:      "JoinArenaAction",
	ServerArenaActionType:    "ServerArenaAction",
	ListArenasActionType:     "ListArenasAction",
	CreateArenaActionType:    "CreateArenaAction",
	ArenaInfoActionType:      "ArenaInfoAction",
}

func (t MessageType) String() string {
	if int(t) < len(messageTypeNames) {
		return messageTypeNames[t]
	}
	return fmt.Sprintf("MessageType(%d)", uint8(t))
}

// IsAction reports whether t is a client originated request.
func (t MessageType) IsAction() bool {
	return t >= InitialMessageActionType && t <= ArenaInfoActionType
}

var (
	ErrTypeMismatch   = errors.New("message type does not match payload")
	ErrNoPayload      = errors.New("message has no payload")
	ErrNoMessageType  = errors.New("message has no message_type")
	ErrNoArenaMessage = errors.New("arena envelope has no arena_message")
)

// Payload is implemented by every outer message body.
type Payload interface {
	MessageType() MessageType
	isPayload()
}

// Message is the outer envelope. Index is zero until the connection assigns
// one on send; on inbound frames it holds the echoed message_index.
type Message struct {
	Type  MessageType
	Index uint64
	Data  Payload
}

// NewMessage wraps a payload in an unindexed envelope.
func NewMessage(data Payload) Message {
	return Message{Type: data.MessageType(), Data: data}
}

type wireMessage struct {
	MessageType  MessageType     `json:"message_type"`
	Data         json.RawMessage `json:"data"`
	MessageIndex uint64          `json:"message_index"`
}

// MarshalJSON encodes the envelope with its message_index.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.Data == nil {
		return nil, ErrNoPayload
	}
	if m.Data.MessageType() != m.Type {
		return nil, fmt.Errorf("%w: %s carries %T", ErrTypeMismatch, m.Type, m.Data)
	}

	data, err := json.Marshal(m.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", m.Type, err)
	}

	return json.Marshal(wireMessage{
		MessageType:  m.Type,
		Data:         data,
		MessageIndex: m.Index,
	})
}

// inboundMessage tells an absent message_type apart from type 0.
type inboundMessage struct {
	MessageType  *MessageType    `json:"message_type"`
	Data         json.RawMessage `json:"data"`
	MessageIndex uint64          `json:"message_index"`
}

// UnmarshalJSON decodes the envelope and the payload selected by message_type.
func (m *Message) UnmarshalJSON(raw []byte) error {
	var wire inboundMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	if wire.MessageType == nil {
		return ErrNoMessageType
	}

	data, err := decodePayload(*wire.MessageType, wire.Data)
	if err != nil {
		return err
	}

	m.Type = *wire.MessageType
	m.Index = wire.MessageIndex
	m.Data = data
	return nil
}

func decodePayload(t MessageType, raw json.RawMessage) (Payload, error) {
	switch t {
	case ServerArenaEventType:
		data, err := decodeInto[ServerArenaEvent](raw)
		if err == nil && data.ArenaMessage.Data == nil {
			err = ErrNoArenaMessage
		}
		return data, err
	case GenericResponseType:
		return decodeInto[GenericResponse](raw)
	case ListArenasResponseType:
		return decodeInto[ListArenasResponse](raw)
	case ArenaInfoResponseType:
		return decodeInto[ArenaInfoResponse](raw)
	case InitialMessageActionType:
		return decodeInto[InitialMessageAction](raw)
	case JoinArenaActionType:
		return decodeInto[JoinArenaAction](raw)
	case ServerArenaActionType:
		data, err := decodeInto[ServerArenaAction](raw)
		if err == nil && data.ArenaMessage.Data == nil {
			err = ErrNoArenaMessage
		}
		return data, err
	case ListArenasActionType:
		return decodeEmpty[ListArenasAction](raw)
	case CreateArenaActionType:
		return decodeInto[CreateArenaAction](raw)
	case ArenaInfoActionType:
		return decodeEmpty[ArenaInfoAction](raw)
	default:
		return nil, fmt.Errorf("unknown message type %d", uint8(t))
	}
}

// decodeInto requires a body: an absent or null data is an error.
func decodeInto[T any](raw json.RawMessage) (T, error) {
	var data T
	if isNull(raw) {
		return data, ErrNoPayload
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, err
	}
	return data, nil
}

// decodeEmpty is for payloads without fields, where data may be omitted.
func decodeEmpty[T any](raw json.RawMessage) (T, error) {
	var data T
	if isNull(raw) {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, err
	}
	return data, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// DecodeError reports an inbound frame that could not be parsed.
type DecodeError struct {
	Frame []byte
	Err   error
}

var ErrDecode = errors.New("decode error")

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Decode parses one inbound frame.
func Decode(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, &DecodeError{Frame: frame, Err: err}
	}
	return msg, nil
}

// Encode serializes msg, including its index, into one frame.
func Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
