// Package messaging demultiplexes inbound arena traffic.
//
// The messaging package implements:
//   - Correlator: matches replies to outstanding requests by message index
//   - EventHandler: fans unsolicited server messages out to listeners
//
// Inbound Routing:
//
// Every decoded frame passes through Correlator.Handle exactly once:
//
//  1. A ServerArenaEvent is always an event, whatever its index says
//  2. Otherwise a frame whose index has a pending registration resolves it
//  3. Anything else is forwarded to the EventHandler as an unmatched event
//
// A frame is either a resolution or an event, never both.
//
// Listeners:
//
// EventHandler keeps two ordered listener lists. Server listeners see every
// event; arena listeners additionally see the unwrapped ArenaMessage of each
// ServerArenaEvent. A listener that returns an error or panics is logged and
// skipped; the remaining listeners still run.
//
// Deadlines:
//
// Registrations wait indefinitely by default. RegisterWithDeadline bounds the
// wait; when it expires the entry is dropped and a late reply is treated as
// an unmatched event.
package messaging
