// Package routeview decides which client view a session should be
// shown. It is a pure projection of the approval workflow's state:
// it holds nothing and writes nothing.
package routeview

import "github.com/hoas/apiserver/types"

// View names a client-side destination.
type View string

const (
	ViewSignIn              View = "sign_in"
	ViewRoleSelect          View = "role_select"
	ViewWaitingApproval     View = "waiting_approval"
	ViewDenied              View = "denied"
	ViewStudentDashboard    View = "student_dashboard"
	ViewWardenDashboard     View = "warden_dashboard"
	ViewManagementDashboard View = "management_dashboard"
	ViewAdminDashboard      View = "admin_dashboard"
)

// Resolve maps a session and its profile record (nil if none exists
// yet) to the view the client should present. The admin claim wins
// over everything else: an admin identity lands on the admin
// dashboard regardless of record state.
func Resolve(session types.Session, record *types.User) View {
	if !session.Authenticated() {
		return ViewSignIn
	}
	if session.Admin {
		return ViewAdminDashboard
	}
	if record == nil {
		return ViewRoleSelect
	}

	switch record.Status {
	case types.StatusPending:
		return ViewWaitingApproval
	case types.StatusDenied:
		return ViewDenied
	case types.StatusApproved:
	default:
		return ViewWaitingApproval
	}

	switch record.Role {
	case types.RoleStudent:
		return ViewStudentDashboard
	case types.RoleWarden:
		return ViewWardenDashboard
	case types.RoleManagement:
		return ViewManagementDashboard
	case types.RoleAdmin:
		return ViewAdminDashboard
	}
	return ViewRoleSelect
}
