package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ArenaMessageType selects the payload carried by an ArenaMessage.
type ArenaMessageType uint8

const (
	// Messages that are sent from game (server) to player (client)
	PlayerJoinedEventType ArenaMessageType = iota
	PlayerQuitEventType
	GameStartedEventType
	ArenaBoardEventType
	ListPlayersResponseType

	// Messages that are sent from player (client) to game (server)
	StartGameActionType
	PlayerActionType
	PlayerQuitActionType
	ListPlayersActionType
)

var arenaMessageTypeNames = [...]string{
	PlayerJoinedEventType:   "PlayerJoinedEvent",
	PlayerQuitEventType:     "PlayerQuitEvent",
	GameStartedEventType:    "GameStartedEvent",
	ArenaBoardEventType:     "ArenaBoardEvent",
	ListPlayersResponseType: "ListPlayersResponse",
	StartGameActionType:     "StartGameAction",
	PlayerActionType:        "PlayerAction",
	PlayerQuitActionType:    "PlayerQuitAction",
	ListPlayersActionType:   "ListPlayersAction",
}

func (t ArenaMessageType) String() string {
	if int(t) < len(arenaMessageTypeNames) {
		return arenaMessageTypeNames[t]
	}
	return fmt.Sprintf("ArenaMessageType(%d)", uint8(t))
}

// ArenaPayload is implemented by every arena message body.
type ArenaPayload interface {
	ArenaMessageType() ArenaMessageType
	isArenaPayload()
}

// ArenaMessage is the inner envelope scoped to one arena.
type ArenaMessage struct {
	Type ArenaMessageType
	Data ArenaPayload
}

// NewArenaMessage wraps an arena payload.
func NewArenaMessage(data ArenaPayload) ArenaMessage {
	return ArenaMessage{Type: data.ArenaMessageType(), Data: data}
}

type wireArenaMessage struct {
	MessageType ArenaMessageType `json:"message_type"`
	Data        json.RawMessage  `json:"data"`
}

func (m ArenaMessage) MarshalJSON() ([]byte, error) {
	if m.Data == nil {
		return nil, ErrNoPayload
	}
	if m.Data.ArenaMessageType() != m.Type {
		return nil, fmt.Errorf("%w: %s carries %T", ErrTypeMismatch, m.Type, m.Data)
	}

	data, err := json.Marshal(m.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", m.Type, err)
	}
	return json.Marshal(wireArenaMessage{MessageType: m.Type, Data: data})
}

type inboundArenaMessage struct {
	MessageType *ArenaMessageType `json:"message_type"`
	Data        json.RawMessage   `json:"data"`
}

func (m *ArenaMessage) UnmarshalJSON(raw []byte) error {
	if isNull(raw) {
		return ErrNoArenaMessage
	}

	var wire inboundArenaMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	if wire.MessageType == nil {
		return ErrNoMessageType
	}

	data, err := decodeArenaPayload(*wire.MessageType, wire.Data)
	if err != nil {
		return err
	}

	m.Type = *wire.MessageType
	m.Data = data
	return nil
}

func decodeArenaPayload(t ArenaMessageType, raw json.RawMessage) (ArenaPayload, error) {
	switch t {
	case PlayerJoinedEventType:
		return decodeInto[PlayerJoinedEvent](raw)
	case PlayerQuitEventType:
		return decodeInto[PlayerQuitEvent](raw)
	case GameStartedEventType:
		return decodeEmpty[GameStartedEvent](raw)
	case ArenaBoardEventType:
		return decodeInto[ArenaBoardEvent](raw)
	case ListPlayersResponseType:
		return decodeInto[ListPlayersResponse](raw)
	case StartGameActionType:
		return decodeEmpty[StartGameAction](raw)
	case PlayerActionType:
		return decodeInto[PlayerAction](raw)
	case PlayerQuitActionType:
		return decodeEmpty[PlayerQuitAction](raw)
	case ListPlayersActionType:
		return decodeEmpty[ListPlayersAction](raw)
	default:
		return nil, fmt.Errorf("unknown arena message type %d", uint8(t))
	}
}

// ==================== EVENTS ====================

type PlayerJoinedEvent struct {
	Name string    `json:"name"`
	ID   uuid.UUID `json:"id"`
}

type PlayerQuitEvent struct {
	Name string `json:"name"`
}

type GameStartedEvent struct{}

// ArenaBoardEvent carries game board state whose shape belongs to the game
// extension. The body is kept as raw JSON.
type ArenaBoardEvent struct {
	Board json.RawMessage
}

type ListPlayersResponse struct {
	Success    bool     `json:"success"`
	PlayerList []string `json:"player_list"`
}

// ==================== ACTIONS ====================

type StartGameAction struct{}

// PlayerAction carries a game move; like ArenaBoardEvent the body is opaque.
type PlayerAction struct {
	Move json.RawMessage
}

type PlayerQuitAction struct{}

type ListPlayersAction struct{}

func (e ArenaBoardEvent) MarshalJSON() ([]byte, error) { return rawOrEmpty(e.Board), nil }

func (e *ArenaBoardEvent) UnmarshalJSON(raw []byte) error {
	e.Board = append(json.RawMessage(nil), raw...)
	return nil
}

func (a PlayerAction) MarshalJSON() ([]byte, error) { return rawOrEmpty(a.Move), nil }

func (a *PlayerAction) UnmarshalJSON(raw []byte) error {
	a.Move = append(json.RawMessage(nil), raw...)
	return nil
}

func rawOrEmpty(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}

func (PlayerJoinedEvent) ArenaMessageType() ArenaMessageType   { return PlayerJoinedEventType }
func (PlayerQuitEvent) ArenaMessageType() ArenaMessageType     { return PlayerQuitEventType }
func (GameStartedEvent) ArenaMessageType() ArenaMessageType    { return GameStartedEventType }
func (ArenaBoardEvent) ArenaMessageType() ArenaMessageType     { return ArenaBoardEventType }
func (ListPlayersResponse) ArenaMessageType() ArenaMessageType { return ListPlayersResponseType }
func (StartGameAction) ArenaMessageType() ArenaMessageType     { return StartGameActionType }
func (PlayerAction) ArenaMessageType() ArenaMessageType        { return PlayerActionType }
func (PlayerQuitAction) ArenaMessageType() ArenaMessageType    { return PlayerQuitActionType }
func (ListPlayersAction) ArenaMessageType() ArenaMessageType   { return ListPlayersActionType }

func (PlayerJoinedEvent) isArenaPayload()   {}
func (PlayerQuitEvent) isArenaPayload()     {}
func (GameStartedEvent) isArenaPayload()    {}
func (ArenaBoardEvent) isArenaPayload()     {}
func (ListPlayersResponse) isArenaPayload() {}
func (StartGameAction) isArenaPayload()     {}
func (PlayerAction) isArenaPayload()        {}
func (PlayerQuitAction) isArenaPayload()    {}
func (ListPlayersAction) isArenaPayload()   {}
