// Package internal groups the pieces of authsession that are not part of its
// public API.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: boot, hydrate and logout orchestration as plain functions
//   - logger: zap construction from LogConfig
//
// # What this package must NOT do
//
//   - Export types that appear in the public authsession API.
//   - Be imported by any package outside the authsession module.
package internal
