package middleware

import (
	"net/http"
	"strconv"

	"github.com/MrEthical07/authsession/guard"
)

// Provider returns the session view for a request.
type Provider interface {
	View(r *http.Request) guard.View
}

// ProviderFunc adapts a function to [Provider].
type ProviderFunc func(r *http.Request) guard.View

// View calls f.
func (f ProviderFunc) View(r *http.Request) guard.View {
	return f(r)
}

// DefaultRetryAfter is sent with Pending responses.
const DefaultRetryAfter = 1

type options struct {
	routes     guard.Routes
	fallback   http.Handler
	retryAfter int
}

// Option customizes an adapter.
type Option func(*options)

// WithRoutes overrides the login and home redirect targets.
func WithRoutes(r guard.Routes) Option {
	return func(o *options) { o.routes = r }
}

// WithFallback renders h instead of the generic 403 on Deny.
func WithFallback(h http.Handler) Option {
	return func(o *options) { o.fallback = h }
}

// WithRetryAfter sets the Retry-After seconds sent with Pending responses.
func WithRetryAfter(seconds int) Option {
	return func(o *options) {
		if seconds > 0 {
			o.retryAfter = seconds
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{retryAfter: DefaultRetryAfter}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func viewOf(p Provider, r *http.Request) guard.View {
	if p == nil {
		return nil
	}
	return p.View(r)
}

// RequireAuth admits authenticated sessions only.
func RequireAuth(p Provider, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := o.routes.Auth(viewOf(p, r), r.URL.RequestURI())
			o.render(w, r, d, next)
		})
	}
}

// RequireGuest admits anonymous sessions only.
func RequireGuest(p Provider, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			o.render(w, r, o.routes.Guest(viewOf(p, r)), next)
		})
	}
}

// RequirePermission admits sessions holding required, combined by mode.
func RequirePermission(p Provider, required []string, mode guard.Mode, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	perms := append([]string(nil), required...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			o.render(w, r, guard.Permission(viewOf(p, r), perms, mode), next)
		})
	}
}

func (o options) render(w http.ResponseWriter, r *http.Request, d guard.Decision, next http.Handler) {
	switch d.Outcome {
	case guard.Allow:
		next.ServeHTTP(w, r)
	case guard.Pending:
		w.Header().Set("Retry-After", strconv.Itoa(o.retryAfter))
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusAccepted)
	case guard.Redirect:
		http.Redirect(w, r, d.Location, http.StatusSeeOther)
	case guard.Hidden:
		w.WriteHeader(http.StatusNoContent)
	default:
		if o.fallback != nil {
			o.fallback.ServeHTTP(w, r)
			return
		}
		http.Error(w, "insufficient permission", http.StatusForbidden)
	}
}
