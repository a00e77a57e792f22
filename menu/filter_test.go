package menu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authsession/permission"
)

type principal struct {
	perms       permission.Set
	assignments []string
}

func (p principal) PermissionSet() permission.Set { return p.perms }
func (p principal) MeetingAssignments() []string  { return p.assignments }

func holding(perms ...string) principal {
	return principal{perms: permission.NewSet(perms...)}
}

func keys(entries []Entry) []string {
	var out []string
	for _, e := range Flatten(entries) {
		out = append(out, e.Key)
	}
	return out
}

func TestExcludeVetoesPermission(t *testing.T) {
	entries := []Entry{{Key: "x", Href: "/x", Permission: Permissions{"A"}, ExcludePermissions: []string{"B"}}}

	assert.Empty(t, Filter(entries, holding("A", "B")))
	assert.Equal(t, []string{"x"}, keys(Filter(entries, holding("A"))))
}

func TestPermissionModes(t *testing.T) {
	entries := []Entry{
		{Key: "any", Href: "/any", Permission: Permissions{"A", "B"}},
		{Key: "all", Href: "/all", Permission: Permissions{"A", "B"}, PermissionMode: "all"},
		{Key: "open", Href: "/open"},
		{Key: "hidden", Href: "/hidden", Hidden: true},
	}

	assert.Equal(t, []string{"any", "open"}, keys(Filter(entries, holding("B"))))
	assert.Equal(t, []string{"any", "all", "open"}, keys(Filter(entries, holding("A", "B"))))
	assert.Equal(t, []string{"open"}, keys(Filter(entries, nil)))
}

func TestPredicates(t *testing.T) {
	entries := []Entry{
		{Key: "mine", Href: "/mine", Requires: PredicateHasMeetingAssignment},
		{Key: "custom", Href: "/custom", Requires: "unknownPredicate"},
	}

	assert.Empty(t, Filter(entries, holding()))
	assert.Equal(t, []string{"mine"}, keys(Filter(entries, principal{assignments: []string{"m1"}})))

	preds := DefaultPredicates()
	preds["unknownPredicate"] = func(Principal) bool { return true }
	assert.Equal(t, []string{"custom"}, keys(preds.Filter(entries, holding())))
}

func TestGroups(t *testing.T) {
	entries := []Entry{
		{
			Key:   "admin",
			Label: "Administration",
			Children: []Entry{
				{Key: "users", Href: "/users", Permission: Permissions{"users.view"}},
				{Key: "audit", Href: "/audit", Permission: Permissions{"audit.view"}},
			},
		},
		{
			Key:        "meetings",
			Href:       "/meetings",
			Permission: Permissions{"meetings.view"},
			Children: []Entry{
				{Key: "new", Href: "/meetings/new", Permission: Permissions{"meetings.create"}},
			},
		},
		{
			Key:        "reports",
			Href:       "/reports",
			Permission: Permissions{"reports.view"},
			Children: []Entry{
				{Key: "export", Href: "/reports/export", Permission: Permissions{"reports.export"}},
			},
		},
	}

	got := Filter(entries, holding("users.view", "meetings.view", "reports.export"))
	require.Len(t, got, 3)

	assert.Equal(t, "admin", got[0].Key)
	assert.Equal(t, []string{"admin", "users"}, keys(got[:1]))

	assert.Equal(t, "meetings", got[1].Key)
	assert.Empty(t, got[1].Children, "visible parent with a link survives without children")

	assert.Equal(t, "reports", got[2].Key)
	assert.Empty(t, got[2].Href, "parent kept only for its children becomes a heading")
	assert.Equal(t, []string{"reports", "export"}, keys(got[2:]))

	assert.Empty(t, Filter(entries, holding("audit.edit")), "empty groups are dropped")
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	entries := []Entry{{
		Key:        "reports",
		Href:       "/reports",
		Permission: Permissions{"reports.view"},
		Children:   []Entry{{Key: "export", Href: "/reports/export"}},
	}}
	_ = Filter(entries, holding())
	assert.Equal(t, "/reports", entries[0].Href)
	assert.Len(t, entries[0].Children, 1)
}

func TestActiveLongestHrefWins(t *testing.T) {
	entries := []Entry{
		{Key: "home", Href: "/", MatchDescendants: true},
		{Key: "meetings", Href: "/meetings", MatchDescendants: true, Children: []Entry{
			{Key: "servants", Href: "/meetings/servants", MatchDescendants: true},
			{Key: "new", Href: "/meetings/new"},
		}},
		{Key: "reports", Href: "/reports"},
	}

	tests := []struct {
		path string
		want string
	}{
		{"/meetings/servants/42", "servants"},
		{"/meetings/new", "new"},
		{"/meetings/new/extra", "meetings"},
		{"/meetings/12?tab=info", "meetings"},
		{"/meetingsroom", "home"},
		{"/reports/", "reports"},
		{"/reports/2024", "home"},
		{"/", "home"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e, ok := Active(entries, tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.want, e.Key)
		})
	}

	_, ok := Active([]Entry{{Key: "reports", Href: "/reports"}}, "/users")
	assert.False(t, ok)
}

func TestLoadYAML(t *testing.T) {
	src := `
- key: meetings
  label: Meetings
  href: /meetings
  permission: meetings.view
  children:
    - key: servants
      label: Servants
      href: /meetings/servants
      permission: [meetings.manage_servants, meetings.edit]
      permissionMode: all
`
	entries, err := LoadYAML(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Permissions{"meetings.view"}, entries[0].Permission)
	assert.Equal(t, Permissions{"meetings.manage_servants", "meetings.edit"}, entries[0].Children[0].Permission)

	_, err = LoadYAML(strings.NewReader("menu:\n  - key: a\n  - key: a\n"))
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = LoadYAML(strings.NewReader("- key: a\n  permission: {x: 1}\n"))
	assert.Error(t, err)
}

func TestDefaultMenuValidates(t *testing.T) {
	engine, err := permission.Build(permission.DefaultPermissions(), permission.DefaultRoles(), permission.RoleSuperAdmin)
	require.NoError(t, err)

	entries := Default()
	require.NotEmpty(t, entries)
	require.NoError(t, Validate(entries, engine.Registry(), DefaultPredicates()))

	bad := []Entry{{Key: "x", Permission: Permissions{"nope"}, Requires: "nobody", PermissionMode: "some"}}
	err = Validate(bad, engine.Registry(), DefaultPredicates())
	assert.ErrorIs(t, err, ErrUnknownPermission)
	assert.ErrorIs(t, err, ErrUnknownPredicate)
}

func TestDefaultMenuForRoles(t *testing.T) {
	engine, err := permission.Build(permission.DefaultPermissions(), permission.DefaultRoles(), permission.RoleSuperAdmin)
	require.NoError(t, err)

	compute := func(role string) permission.Set {
		return engine.Compute(subject{role: role})
	}

	admin := keys(Filter(Default(), principal{perms: compute(permission.RoleSuperAdmin)}))
	assert.Contains(t, admin, "settings")
	assert.Contains(t, admin, "audit")
	assert.NotContains(t, admin, "my-meetings")

	servant := keys(Filter(Default(), principal{perms: compute(permission.RoleServant), assignments: []string{"m1"}}))
	assert.Contains(t, servant, "my-meetings")
	assert.Contains(t, servant, "attendance")
	assert.NotContains(t, servant, "administration")
}

type subject struct{ role string }

func (s subject) PermissionRole() string      { return s.role }
func (s subject) PermissionExtras() []string  { return nil }
func (s subject) PermissionDenials() []string { return nil }
