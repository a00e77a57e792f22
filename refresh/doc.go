// Package refresh serializes access-token renewal across concurrent requests.
//
// # Single flight
//
// When several in-flight requests fail with an expired access token at the
// same time, only the first caller (the leader) calls the renewal endpoint.
// Every caller that arrives while the leader is in flight is queued and
// receives the leader's outcome. Waiters are settled FIFO in the same critical
// section that clears the in-flight flag, so a caller arriving afterwards
// always starts a new cycle and never attaches to a settled one.
//
// # Failure
//
// A missing refresh token or a failed renewal clears the stored session and
// fires the session-expired hook once per cycle; the hook is where the client
// redirects to login.
//
// # Architecture boundaries
//
// This package owns the in-flight flag and waiter queue. Retrying the original
// request is the caller's responsibility ([RefreshOrEnqueue] wires the two).
//
// # What this package must NOT do
//
//   - Keep package-level state; every [Coordinator] is an injected instance.
//   - Route the renewal call itself through the coordinator.
//   - Import authsession or transport.
package refresh
