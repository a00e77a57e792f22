package menu

import (
	"strings"

	"github.com/MrEthical07/authsession/permission"
)

// Principal is the identity a menu is filtered for.
type Principal interface {
	PermissionSet() permission.Set
}

// Predicate is a custom visibility rule referenced by name from Entry.Requires.
type Predicate func(p Principal) bool

// Predicates maps predicate names to rules. Unknown names fail closed.
type Predicates map[string]Predicate

// PredicateHasMeetingAssignment is the name of [HasMeetingAssignment].
const PredicateHasMeetingAssignment = "hasMeetingAssignment"

// HasMeetingAssignment holds when the principal is assigned to at least one
// meeting. Principals that do not expose assignments fail it.
func HasMeetingAssignment(p Principal) bool {
	a, ok := p.(interface{ MeetingAssignments() []string })
	return ok && len(a.MeetingAssignments()) > 0
}

// DefaultPredicates returns the built-in predicates.
func DefaultPredicates() Predicates {
	return Predicates{PredicateHasMeetingAssignment: HasMeetingAssignment}
}

// Filter returns the entries visible to p using [DefaultPredicates].
func Filter(entries []Entry, p Principal) []Entry {
	return DefaultPredicates().Filter(entries, p)
}

// Filter returns the entries visible to p. The input is never modified.
//
// A group survives when at least one child is visible, or when the parent is
// itself visible and links somewhere. A group kept only for its children
// loses its own Href so it renders as a heading.
func (ps Predicates) Filter(entries []Entry, p Principal) []Entry {
	var perms permission.Set
	if p != nil {
		perms = p.PermissionSet()
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Hidden {
			continue
		}
		self := ps.visible(e, perms, p)

		if !e.IsGroup() {
			if self {
				out = append(out, e.clone())
			}
			continue
		}

		children := ps.Filter(e.Children, p)
		if len(children) == 0 && !(self && e.Href != "") {
			continue
		}
		group := e.clone()
		group.Children = children
		if !self {
			group.Href = ""
		}
		out = append(out, group)
	}
	return out
}

// Visible reports whether e itself passes its rules, ignoring children.
func (ps Predicates) Visible(e Entry, p Principal) bool {
	if e.Hidden {
		return false
	}
	var perms permission.Set
	if p != nil {
		perms = p.PermissionSet()
	}
	return ps.visible(e, perms, p)
}

func (ps Predicates) visible(e Entry, perms permission.Set, p Principal) bool {
	if len(e.Permission) > 0 {
		var ok bool
		if strings.EqualFold(e.PermissionMode, "all") {
			ok = perms.HasAll(e.Permission...)
		} else {
			ok = perms.HasAny(e.Permission...)
		}
		if !ok {
			return false
		}
	}
	for _, ex := range e.ExcludePermissions {
		if perms.Has(ex) {
			return false
		}
	}
	if e.Requires != "" {
		pred, ok := ps[e.Requires]
		if !ok || pred == nil || p == nil || !pred(p) {
			return false
		}
	}
	return true
}

// Active returns the entry matching path with the longest Href. An entry
// matches on an exact Href, or on any path below Href when MatchDescendants
// is set. Pass the output of Filter so only visible entries compete.
func Active(entries []Entry, path string) (Entry, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = normalize(path)

	var best Entry
	found := false
	walk(entries, func(e Entry) {
		if e.Href == "" || !matches(e, path) {
			return
		}
		if !found || len(normalize(e.Href)) > len(normalize(best.Href)) {
			best, found = e, true
		}
	})
	return best, found
}

func matches(e Entry, path string) bool {
	href := normalize(e.Href)
	if href == path {
		return true
	}
	if !e.MatchDescendants {
		return false
	}
	if href == "/" {
		return true
	}
	return strings.HasPrefix(path, href+"/")
}

func normalize(p string) string {
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

func walk(entries []Entry, fn func(Entry)) {
	for _, e := range entries {
		fn(e)
		walk(e.Children, fn)
	}
}

// Flatten returns every entry in the tree in depth-first order, without
// their children.
func Flatten(entries []Entry) []Entry {
	var out []Entry
	walk(entries, func(e Entry) { out = append(out, e.clone()) })
	return out
}
