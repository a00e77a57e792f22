package flows

import "context"

// HydrateOutcome describes what RunHydrate did with the session.
type HydrateOutcome int

const (
	// HydrateAnonymous means there was no session to hydrate.
	HydrateAnonymous HydrateOutcome = iota
	// HydrateRefreshed means the user was fetched and applied.
	HydrateRefreshed
	// HydrateCleared means the server rejected the session and it was erased.
	HydrateCleared
	// HydratePreserved means a transient failure left the cached identity in place.
	HydratePreserved
	// HydrateExpired means a renewal during the fetch already ended the
	// session; nothing was cleared here.
	HydrateExpired
)

// HydrateResult carries the hydrate outcome. Err is set for every outcome
// except HydrateAnonymous and HydrateRefreshed, and for apply failures.
type HydrateResult[U any] struct {
	Outcome HydrateOutcome
	User    U
	Err     error
}

// HydrateDeps captures hydrate flow dependencies.
type HydrateDeps[U any] struct {
	Session SessionReader
	// FetchUser calls the me endpoint through the request pipeline.
	FetchUser func(ctx context.Context) (U, error)
	// Apply persists the user and its derived permissions.
	Apply func(ctx context.Context, user U) error
	// Clear erases the session.
	Clear func(ctx context.Context) error
	// IsTerminal reports whether err means the session is no longer valid.
	IsTerminal func(err error) bool
	// AlreadyEnded reports whether err comes from a renewal that cleared the
	// session itself. Optional.
	AlreadyEnded func(err error) bool
	// PreserveOnTransient keeps the cached identity on non-terminal failures.
	// When false every failure clears the session.
	PreserveOnTransient bool
}

// RunHydrate refreshes the cached user from the server.
func RunHydrate[U any](ctx context.Context, deps HydrateDeps[U]) HydrateResult[U] {
	if !deps.Session.IsAuthenticated(ctx) {
		return HydrateResult[U]{Outcome: HydrateAnonymous}
	}

	user, err := deps.FetchUser(ctx)
	if err != nil {
		if deps.AlreadyEnded != nil && deps.AlreadyEnded(err) {
			return HydrateResult[U]{Outcome: HydrateExpired, Err: err}
		}
		if deps.IsTerminal(err) || !deps.PreserveOnTransient {
			if clearErr := deps.Clear(ctx); clearErr != nil {
				return HydrateResult[U]{Outcome: HydrateCleared, Err: clearErr}
			}
			return HydrateResult[U]{Outcome: HydrateCleared, Err: err}
		}
		return HydrateResult[U]{Outcome: HydratePreserved, Err: err}
	}

	if err := deps.Apply(ctx, user); err != nil {
		return HydrateResult[U]{Outcome: HydrateRefreshed, User: user, Err: err}
	}
	return HydrateResult[U]{Outcome: HydrateRefreshed, User: user}
}
