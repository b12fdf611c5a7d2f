package types

import "time"

// Role classifies a user record. It is assigned once at registration
// and never changes for the lifetime of the record.
type Role string

const (
	RoleStudent    Role = "student"
	RoleWarden     Role = "warden"
	RoleManagement Role = "management"
	RoleAdmin      Role = "admin"
)

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleStudent, RoleWarden, RoleManagement, RoleAdmin:
		return Role(raw), true
	default:
		return "", false
	}
}

// Selectable reports whether the role may be chosen at registration.
// The admin role is only ever granted through the identity claim.
func (r Role) Selectable() bool {
	switch r {
	case RoleStudent, RoleWarden, RoleManagement:
		return true
	}
	return false
}

// NeedsManagement reports whether records of this role carry a
// back-reference to an owning management record.
func (r Role) NeedsManagement() bool {
	switch r {
	case RoleStudent, RoleWarden:
		return true
	}
	return false
}

// Status is the approval state of a user record. Transitions are
// mediated exclusively by the approval service.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusPending, StatusApproved, StatusDenied:
		return Status(raw), true
	default:
		return "", false
	}
}

// User is the profile record stored for an authenticated identity.
type User struct {
	// ID is the unique identifier of the record, equal to the
	// account ID of the identity that owns it.
	ID string `json:"id" db:"id"`

	// Email, DisplayName and PhotoURL are copied from the account
	// at registration time.
	Email       string `json:"email" db:"email"`
	DisplayName string `json:"display_name" db:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty" db:"photo_url"`

	// Role is set once when the record is created.
	Role Role `json:"role" db:"role"`

	// Status is governed by the approval workflow.
	Status Status `json:"status" db:"status"`

	// ManagementID references the owning management record for
	// student and warden roles. Empty otherwise.
	ManagementID string `json:"management_id,omitempty" db:"management_id"`

	// Profile holds the role-specific free-form fields.
	Profile Profile `json:"profile"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Approval audit trail. Each transition overwrites the fields
	// for its direction and leaves the other direction intact.
	ApprovedAt   *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedBy   string     `json:"approved_by,omitempty" db:"approved_by"`
	DeniedAt     *time.Time `json:"denied_at,omitempty" db:"denied_at"`
	DeniedBy     string     `json:"denied_by,omitempty" db:"denied_by"`
	DenialReason string     `json:"denial_reason,omitempty" db:"denial_reason"`
}

// Profile holds the role-specific fields supplied at registration and
// editable afterwards by the owner or an admin. Fields that do not
// apply to the record's role are left empty.
type Profile struct {
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`

	// Management fields.
	CollegeName string `json:"college_name,omitempty"`
	HostelCount int    `json:"hostel_count,omitempty"`

	// Student fields.
	RollNumber string `json:"roll_number,omitempty"`
	RoomNumber string `json:"room_number,omitempty"`

	// Warden fields.
	EmployeeID  string `json:"employee_id,omitempty"`
	Designation string `json:"designation,omitempty"`
}

// Account is an identity-provider record. The password hash is never
// exposed in API responses.
type Account struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	PhotoURL     string    `json:"photo_url,omitempty" db:"photo_url"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Admin        bool      `json:"admin" db:"admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Session carries the authenticated caller's identity into service
// calls. Operations never read ambient state; every authorization
// decision is made against the session passed in.
type Session struct {
	// ActorID is the authenticated account id. Empty for anonymous
	// callers.
	ActorID string

	// Admin is true when the identity carries the admin claim.
	Admin bool
}

// Authenticated reports whether a caller identity is present.
func (s Session) Authenticated() bool {
	return s.ActorID != ""
}
