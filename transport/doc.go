// Package transport is the request pipeline every API call goes through.
//
// # Pipeline
//
// [Pipeline.Do] attaches the current access token as a bearer credential, tags
// the request with an X-Request-ID, and normalizes failures into [*APIError].
// A 401 carrying the AUTH_TOKEN_EXPIRED code is the one failure that is
// recovered here: the pipeline asks the refresh coordinator for new tokens and
// sends the request again, once. Everything else propagates unchanged.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into typed results and errors. It does
// NOT decide what a failure means for the session (the client does) and does
// not persist tokens (the coordinator and the client do).
//
// # What this package must NOT do
//
//   - Retry a request more than once.
//   - Route the renewal call itself through renewal.
//   - Log token values or request bodies.
package transport
