package guard

import (
	"net/url"
	"strings"

	"github.com/MrEthical07/authsession/permission"
)

// Outcome is the kind of a guard decision.
type Outcome int

const (
	// Pending means the session is still loading; render a placeholder.
	Pending Outcome = iota
	// Allow means render the guarded content.
	Allow
	// Redirect means navigate to Decision.Location.
	Redirect
	// Deny means render the fallback or a generic notice.
	Deny
	// Hidden means render nothing at all.
	Hidden
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Deny:
		return "deny"
	case Hidden:
		return "hidden"
	}
	return "unknown"
}

// Mode selects how multiple required permissions combine.
type Mode int

const (
	// ModeAll requires every permission.
	ModeAll Mode = iota
	// ModeAny requires at least one permission.
	ModeAny
)

// ParseMode maps "any" to ModeAny and everything else to ModeAll.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "any") {
		return ModeAny
	}
	return ModeAll
}

// View is the session state a guard reads.
type View interface {
	IsLoading() bool
	IsAuthenticated() bool
	PermissionSet() permission.Set
}

// Decision is a guard verdict. Location is set for Redirect only.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Routes configures redirect targets.
type Routes struct {
	// Login is where unauthenticated visitors go. Default "/login".
	Login string
	// Home is where authenticated visitors of guest pages go. Default "/".
	Home string
	// NextParam carries the originally requested location. Default "next".
	NextParam string
}

func (r Routes) withDefaults() Routes {
	if r.Login == "" {
		r.Login = "/login"
	}
	if r.Home == "" {
		r.Home = "/"
	}
	if r.NextParam == "" {
		r.NextParam = "next"
	}
	return r
}

// DefaultRoutes is used by the package-level guards.
var DefaultRoutes = Routes{}.withDefaults()

// Auth guards an authenticated-only view using [DefaultRoutes].
func Auth(v View, location string) Decision {
	return DefaultRoutes.Auth(v, location)
}

// Guest guards an anonymous-only view using [DefaultRoutes].
func Guest(v View) Decision {
	return DefaultRoutes.Guest(v)
}

// Auth guards an authenticated-only view. location is the path (and query)
// the visitor asked for; it is carried to the login page.
func (r Routes) Auth(v View, location string) Decision {
	r = r.withDefaults()
	switch {
	case v == nil:
		return Decision{Outcome: Redirect, Location: r.loginURL(location)}
	case v.IsLoading():
		return Decision{Outcome: Pending}
	case v.IsAuthenticated():
		return Decision{Outcome: Allow}
	}
	return Decision{Outcome: Redirect, Location: r.loginURL(location)}
}

// Guest guards an anonymous-only view such as the login page.
func (r Routes) Guest(v View) Decision {
	r = r.withDefaults()
	switch {
	case v == nil:
		return Decision{Outcome: Allow}
	case v.IsLoading():
		return Decision{Outcome: Pending}
	case v.IsAuthenticated():
		return Decision{Outcome: Redirect, Location: r.Home}
	}
	return Decision{Outcome: Allow}
}

func (r Routes) loginURL(location string) string {
	if location == "" || location == r.Login {
		return r.Login
	}
	sep := "?"
	if strings.Contains(r.Login, "?") {
		sep = "&"
	}
	return r.Login + sep + url.Values{r.NextParam: {location}}.Encode()
}

// Permission guards a view on required permissions. An empty requirement is
// satisfied by any loaded session.
func Permission(v View, required []string, mode Mode) Decision {
	if v == nil {
		return Decision{Outcome: Deny}
	}
	if v.IsLoading() {
		return Decision{Outcome: Hidden}
	}

	perms := v.PermissionSet()
	var ok bool
	if mode == ModeAny {
		ok = perms.HasAny(required...)
	} else {
		ok = perms.HasAll(required...)
	}
	if !ok {
		return Decision{Outcome: Deny}
	}
	return Decision{Outcome: Allow}
}

// SafeNext returns next when it is a local absolute path, otherwise fallback.
// It guards post-login redirects against open redirects.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}
