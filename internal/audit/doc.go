// Package audit relays session lifecycle events to a caller-supplied sink.
//
// # Components
//
//   - [Sink] receives events (channel, JSON lines, zap logger, no-op).
//   - [Dispatcher] buffers events and delivers them on its own goroutine.
//   - [Event] is one record: type, user, outcome, metadata.
//
// # Architecture boundaries
//
// The client decides which events exist and when they fire. This package only
// buffers and delivers them.
//
// # What this package must NOT do
//
//   - Carry token values in events.
//   - Import the root package or any sibling internal package.
//   - Block a session operation on a slow sink when DropIfFull is set.
package audit
