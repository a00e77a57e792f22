package authsession

import (
	"context"
	"slices"

	"github.com/MrEthical07/authsession/guard"
	"github.com/MrEthical07/authsession/permission"
	"github.com/MrEthical07/authsession/transport"
)

// User is the cached copy of the signed-in user. It is replaced wholesale on
// every me, login and register response and never edited in place.
type User struct {
	ID                 string   `json:"id"`
	Role               string   `json:"role"`
	ExtraPermissions   []string `json:"extraPermissions,omitempty"`
	DeniedPermissions  []string `json:"deniedPermissions,omitempty"`
	MeetingAssignments []string `json:"meetingAssignments,omitempty"`

	Identifier string `json:"identifier,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Email      string `json:"email,omitempty"`
	SectorID   string `json:"sectorId,omitempty"`
}

// PermissionRole implements permission.Subject. A nil user has no role.
func (u *User) PermissionRole() string {
	if u == nil {
		return ""
	}
	return u.Role
}

// PermissionExtras implements permission.Subject.
func (u *User) PermissionExtras() []string {
	if u == nil {
		return nil
	}
	return u.ExtraPermissions
}

// PermissionDenials implements permission.Subject.
func (u *User) PermissionDenials() []string {
	if u == nil {
		return nil
	}
	return u.DeniedPermissions
}

// DisplayName returns "First Last", falling back to the identifier.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	}
	return u.Identifier
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.ExtraPermissions = slices.Clone(u.ExtraPermissions)
	out.DeniedPermissions = slices.Clone(u.DeniedPermissions)
	out.MeetingAssignments = slices.Clone(u.MeetingAssignments)
	return &out
}

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Email      string `json:"email,omitempty"`
	SectorID   string `json:"sectorId,omitempty"`
}

// Snapshot is an immutable view of the session at one instant. Guards, the
// menu filter and templates read it; nothing writes through it.
type Snapshot struct {
	User          *User
	Permissions   permission.Set
	Authenticated bool
	Loading       bool
}

var _ guard.View = Snapshot{}

// IsLoading implements guard.View.
func (s Snapshot) IsLoading() bool { return s.Loading }

// IsAuthenticated implements guard.View.
func (s Snapshot) IsAuthenticated() bool { return s.Authenticated }

// PermissionSet implements guard.View and menu.Principal.
func (s Snapshot) PermissionSet() permission.Set { return s.Permissions }

// MeetingAssignments exposes the user's assignments to menu predicates.
func (s Snapshot) MeetingAssignments() []string {
	if s.User == nil {
		return nil
	}
	return s.User.MeetingAssignments
}

// HasPermission reports whether the snapshot holds name.
func (s Snapshot) HasPermission(name string) bool {
	return s.Permissions.Has(name)
}

// HasAnyPermission reports whether the snapshot holds at least one of names.
// An empty list is satisfied.
func (s Snapshot) HasAnyPermission(names ...string) bool {
	return s.Permissions.HasAny(names...)
}

// HasAllPermissions reports whether the snapshot holds every one of names.
func (s Snapshot) HasAllPermissions(names ...string) bool {
	return s.Permissions.HasAll(names...)
}

// Request describes one API call made through the client.
type Request = transport.Request

// Response is a fully read successful API response.
type Response = transport.Response

// RedirectFunc is called once per failed renewal cycle, after the session was
// cleared. reason is the renewal error. Implementations typically navigate to
// the login page.
type RedirectFunc func(ctx context.Context, reason error)
