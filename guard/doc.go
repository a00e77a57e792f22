// Package guard decides whether a view may render, given the current session
// view. It is a pure function of its inputs: no I/O, no errors, no panics.
//
// Three guards exist:
//
//   - [Auth] admits authenticated sessions and redirects everyone else to the
//     login page, carrying the requested location.
//   - [Guest] admits anonymous sessions and redirects signed-in users home.
//   - [Permission] admits sessions holding the required permissions.
//
// While the session is still loading, Auth and Guest return [Pending] and
// Permission returns [Hidden], so nothing is decided on stale state.
package guard
