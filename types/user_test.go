package types

import "testing"

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"student", "warden", "management", "admin"} {
		role, ok := ParseRole(valid)
		if !ok || string(role) != valid {
			t.Fatalf("ParseRole(%q) = %q, %v", valid, role, ok)
		}
	}
	for _, invalid := range []string{"", "Student", "owner", "principal"} {
		if _, ok := ParseRole(invalid); ok {
			t.Fatalf("ParseRole(%q) accepted", invalid)
		}
	}
}

func TestRoleProperties(t *testing.T) {
	if RoleAdmin.Selectable() {
		t.Fatal("admin must not be selectable at registration")
	}
	for _, role := range []Role{RoleStudent, RoleWarden, RoleManagement} {
		if !role.Selectable() {
			t.Fatalf("%s must be selectable", role)
		}
	}

	if !RoleStudent.NeedsManagement() || !RoleWarden.NeedsManagement() {
		t.Fatal("student and warden records require a management reference")
	}
	if RoleManagement.NeedsManagement() || RoleAdmin.NeedsManagement() {
		t.Fatal("management and admin records must not reference a management record")
	}
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"pending", "approved", "denied"} {
		status, ok := ParseStatus(valid)
		if !ok || string(status) != valid {
			t.Fatalf("ParseStatus(%q) = %q, %v", valid, status, ok)
		}
	}
	if _, ok := ParseStatus("rejected"); ok {
		t.Fatal("ParseStatus accepted unknown status")
	}
}

func TestStatusCountsAdd(t *testing.T) {
	var counts StatusCounts
	counts.Add(StatusPending)
	counts.Add(StatusApproved)
	counts.Add(StatusApproved)
	counts.Add(StatusDenied)

	if counts.Total != 4 {
		t.Fatalf("total = %d, want 4", counts.Total)
	}
	if counts.Pending != 1 || counts.Approved != 2 || counts.Denied != 1 {
		t.Fatalf("counts wrong: %+v", counts)
	}
}
