package events

// Authorize is the single access-control decision point. It maps the
// actor's role on an event (empty when no permission row exists) and
// the attempted operation to an allow/deny verdict. It performs no I/O.
//
// Read requires any role. Update requires Owner or Editor. Delete,
// Share and ManagePermissions require Owner. An absent role denies
// every operation.
func Authorize(role Role, operation Operation) bool {
	if role == "" {
		return false
	}

	switch operation {
	case OperationRead:
		return role == RoleOwner || role == RoleEditor || role == RoleViewer
	case OperationUpdate:
		return role == RoleOwner || role == RoleEditor
	case OperationDelete, OperationShare, OperationManagePermissions:
		return role == RoleOwner
	default:
		return false
	}
}
