package authz

const (
	RoleStaff       = 10 // department staff working on tasks
	RoleCoordinator = 20 // event coordinators
	RoleAudit       = 30
	RoleManagement  = 40
	RoleAdmin       = 50
)

var roleNames = map[int]string{
	RoleStaff:       "staff",
	RoleCoordinator: "coordinator",
	RoleAudit:       "audit",
	RoleManagement:  "management",
	RoleAdmin:       "admin",
}

// EventEditors may create and update events and drop their pending reminders.
var EventEditors = []int{RoleCoordinator, RoleManagement, RoleAdmin}

// SettingsEditors may change notification settings.
var SettingsEditors = []int{RoleAdmin}

func Known(roleID int) bool {
	_, ok := roleNames[roleID]
	return ok
}

// RoleName is used in refusal messages and logs.
func RoleName(roleID int) string {
	if n, ok := roleNames[roleID]; ok {
		return n
	}
	return "unknown"
}

func IsReadOnly(roleID int) bool {
	return roleID == RoleAudit
}
