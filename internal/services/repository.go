package services

import (
	"context"

	"github.com/hoas/apiserver/types"
)

// UserRepository defines persistence operations for user records.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateStatus(ctx context.Context, id string, status types.Status, actorID, reason string) (types.User, error)
	UpdateProfile(ctx context.Context, id string, profile types.Profile) (types.User, error)
	UpdatePhotoURL(ctx context.Context, id, photoURL string) error
	Delete(ctx context.Context, id string) error
	ListByRole(ctx context.Context, role types.Role) ([]types.User, error)
	ListByManagement(ctx context.Context, managementID string, role types.Role, status types.Status) ([]types.User, error)
	CollegeStats(ctx context.Context, managementID string) (types.CollegeStats, error)
	DeleteCollege(ctx context.Context, managementID string) (types.CascadeResult, error)
}

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (types.Account, error)
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	SetAdmin(ctx context.Context, email string, admin bool) error
}

// Notifier publishes record lifecycle events after a mutation has
// committed. Delivery is best-effort; implementations must not fail
// the request.
type Notifier interface {
	UserCreated(ctx context.Context, user types.User)
	UserStatusChanged(ctx context.Context, user types.User, previous types.Status)
	UserDeleted(ctx context.Context, user types.User)
	CollegeDeleted(ctx context.Context, collegeID string, result types.CascadeResult)
}

// StatsCache caches college stats between reads. A nil StatsCache is
// a valid no-op.
type StatsCache interface {
	Get(ctx context.Context, collegeID string) (types.CollegeStats, bool)
	Set(ctx context.Context, collegeID string, stats types.CollegeStats)
	Invalidate(ctx context.Context, collegeID string)
}
