// Package protocol defines the wire vocabulary spoken between the arena client
// and the game server.
//
// The protocol package implements:
//   - The outer message envelope and its closed set of payloads
//   - The nested arena envelope carried by ServerArenaEvent and ServerArenaAction
//   - JSON encoding and exhaustive decoding of both envelopes
//
// Message Format:
//
// Every frame is a JSON text message of the form
//
//	{"message_type": 1, "data": {...}, "message_index": 7}
//
// message_type is a number selecting exactly one payload shape. Outbound
// actions carry the index assigned by the client; responses echo it back.
// Server pushed events may carry any index and must never be correlated.
//
// Arena Envelope:
//
// ServerArenaEvent and ServerArenaAction wrap an ArenaMessage in their
// arena_message field. The ArenaMessage is itself tagged, so a single frame is
// double dispatched: first on the outer type, then on the arena type.
//
// Decoding:
//
// Decode switches over every known type and fails with a *DecodeError for
// unknown types or malformed payloads. message_type must be present, and so
// must data, except for payloads without fields. An arena envelope without
// an arena_message is malformed too. Encoding refuses messages whose
// declared type does not match their payload.
package protocol
