package permission

// Permission identifiers of the parish administration application.
const (
	UsersView   = "users.view"
	UsersCreate = "users.create"
	UsersEdit   = "users.edit"
	UsersDelete = "users.delete"

	PermissionsManage = "permissions.manage"

	MeetingsView          = "meetings.view"
	MeetingsCreate        = "meetings.create"
	MeetingsEdit          = "meetings.edit"
	MeetingsDelete        = "meetings.delete"
	MeetingsManageServers = "meetings.manage_servants"

	SectorsView   = "sectors.view"
	SectorsCreate = "sectors.create"
	SectorsEdit   = "sectors.edit"
	SectorsDelete = "sectors.delete"

	LiturgiesView   = "liturgies.view"
	LiturgiesCreate = "liturgies.create"
	LiturgiesEdit   = "liturgies.edit"
	LiturgiesDelete = "liturgies.delete"

	AttendanceView   = "attendance.view"
	AttendanceRecord = "attendance.record"

	ReportsView    = "reports.view"
	ReportsExport  = "reports.export"
	SettingsManage = "settings.manage"
	AuditView      = "audit.view"
)

// Role names.
const (
	RoleSuperAdmin   = "SUPER_ADMIN"
	RoleAdmin        = "ADMIN"
	RoleSectorLeader = "SECTOR_LEADER"
	RoleServant      = "SERVANT"
	RoleMember       = "MEMBER"
)

// DefaultPermissions returns the declared universe in registration order.
func DefaultPermissions() []string {
	return []string{
		UsersView, UsersCreate, UsersEdit, UsersDelete,
		PermissionsManage,
		MeetingsView, MeetingsCreate, MeetingsEdit, MeetingsDelete, MeetingsManageServers,
		SectorsView, SectorsCreate, SectorsEdit, SectorsDelete,
		LiturgiesView, LiturgiesCreate, LiturgiesEdit, LiturgiesDelete,
		AttendanceView, AttendanceRecord,
		ReportsView, ReportsExport,
		SettingsManage,
		AuditView,
	}
}

// DefaultRoles returns the base permissions of every built-in role.
// SUPER_ADMIN is listed without permissions: it resolves to the universe.
func DefaultRoles() map[string][]string {
	return map[string][]string{
		RoleSuperAdmin: {},
		RoleAdmin: {
			UsersView, UsersCreate, UsersEdit,
			MeetingsView, MeetingsCreate, MeetingsEdit, MeetingsDelete, MeetingsManageServers,
			SectorsView, SectorsCreate, SectorsEdit,
			LiturgiesView, LiturgiesCreate, LiturgiesEdit, LiturgiesDelete,
			AttendanceView, AttendanceRecord,
			ReportsView, ReportsExport,
		},
		RoleSectorLeader: {
			UsersView,
			MeetingsView, MeetingsEdit, MeetingsManageServers,
			SectorsView,
			LiturgiesView,
			AttendanceView, AttendanceRecord,
			ReportsView,
		},
		RoleServant: {
			MeetingsView,
			LiturgiesView,
			AttendanceView, AttendanceRecord,
		},
		RoleMember: {
			MeetingsView,
			LiturgiesView,
		},
	}
}

// Build registers permissions and roles, freezes both, and returns the engine.
func Build(permissions []string, roles map[string][]string, superAdminRole string) (*Engine, error) {
	registry := NewRegistry()
	for _, p := range permissions {
		if _, err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	table := NewRoleTable(registry)
	for role, perms := range roles {
		if err := table.RegisterRole(role, perms); err != nil {
			return nil, err
		}
	}
	table.Freeze()

	return NewEngine(registry, table, superAdminRole), nil
}
