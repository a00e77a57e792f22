// Package menu derives the visible navigation tree from a static definition
// and the live permission set.
//
// An entry is visible when it is not hidden, its permission rule holds (any
// of the listed permissions by default, all of them in "all" mode), none of
// its excluded permissions are held, and its named predicate, if any, holds.
// Exclusions veto: holding an excluded permission hides the entry even when
// the permission rule passed.
//
// Menus are usually defined in YAML and loaded with [LoadYAML].
package menu
