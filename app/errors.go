package app

import (
	"errors"
	"fmt"

	"github.com/wricardo/mcp-training/arenaclient/messaging"
	"github.com/wricardo/mcp-training/arenaclient/protocol"
	"github.com/wricardo/mcp-training/arenaclient/transport/websocket"
)

var (
	ErrIllegalStateTransition = errors.New("illegal state transition")
	ErrProtocolMismatch       = errors.New("protocol mismatch")
	ErrOperationRejected      = errors.New("operation rejected")
	ErrUsernameRequired       = errors.New("username is required")

	// Errors raised by the layers below, surfaced unchanged through actions.
	ErrTransportNotReady = websocket.ErrTransportNotReady
	ErrTimeout           = messaging.ErrTimeout
	ErrDuplicateIndex    = messaging.ErrDuplicateIndex
	ErrDecode            = protocol.ErrDecode
)

// IllegalStateTransitionError is returned when an action is not legal in the
// current state.
type IllegalStateTransitionError struct {
	State  string
	Action string
}

func (e *IllegalStateTransitionError) Error() string {
	return fmt.Sprintf("%s is not allowed in state %s", e.Action, e.State)
}

func (e *IllegalStateTransitionError) Is(target error) bool {
	return target == ErrIllegalStateTransition
}

// ProtocolMismatchError is returned when the reply has a different type than
// the action expects.
type ProtocolMismatchError struct {
	Action   string
	Expected protocol.MessageType
	Got      protocol.MessageType
}

func (e *ProtocolMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Action, e.Expected, e.Got)
}

func (e *ProtocolMismatchError) Is(target error) bool {
	return target == ErrProtocolMismatch
}

// OperationRejectedError is returned when the server answered success false.
type OperationRejectedError struct {
	Action string
	Reason string
}

func (e *OperationRejectedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s rejected", e.Action)
	}
	return fmt.Sprintf("%s rejected: %s", e.Action, e.Reason)
}

func (e *OperationRejectedError) Is(target error) bool {
	return target == ErrOperationRejected
}
