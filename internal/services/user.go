package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/hoas/apiserver/internal/store"
	"github.com/hoas/apiserver/types"
)

// UserService owns the lifecycle of profile records outside the
// approval workflow: registration, profile edits, avatar pointers,
// and the admin-only single-record delete.
type UserService struct {
	repo     UserRepository
	notifier Notifier
	cache    StatsCache
}

func NewUserService(repo UserRepository, notifier Notifier, cache StatsCache) *UserService {
	return &UserService{repo: repo, notifier: notifier, cache: cache}
}

// RegisterProfile is the payload of the one-time role selection step.
type RegisterProfile struct {
	Role         types.Role
	ManagementID string
	Profile      types.Profile
}

// Register creates the caller's profile record with the selected
// role, in the pending state. The record is keyed by the account id,
// so an identity registers at most once.
func (s *UserService) Register(ctx context.Context, session types.Session, account types.Account, req RegisterProfile) (types.User, error) {
	if !session.Authenticated() {
		return types.User{}, ErrUnauthenticated
	}
	if !req.Role.Selectable() {
		return types.User{}, fmt.Errorf("%w: role must be student, warden or management", ErrInvalidArgument)
	}

	managementID := ""
	if req.Role.NeedsManagement() {
		if req.ManagementID == "" {
			return types.User{}, fmt.Errorf("%w: management id is required for %s registration", ErrInvalidArgument, req.Role)
		}
		owner, err := s.repo.GetByID(ctx, req.ManagementID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return types.User{}, fmt.Errorf("%w: management record %s does not exist", ErrInvalidArgument, req.ManagementID)
			}
			return types.User{}, err
		}
		if owner.Role != types.RoleManagement {
			return types.User{}, fmt.Errorf("%w: record %s is not a management record", ErrInvalidArgument, req.ManagementID)
		}
		managementID = req.ManagementID
	}

	// Identities carrying the admin claim skip the approval queue.
	status := types.StatusPending
	if session.Admin {
		status = types.StatusApproved
	}

	user, err := s.repo.Create(ctx, types.User{
		ID:           session.ActorID,
		Email:        account.Email,
		DisplayName:  account.DisplayName,
		PhotoURL:     account.PhotoURL,
		Role:         req.Role,
		Status:       status,
		ManagementID: managementID,
		Profile:      req.Profile,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, fmt.Errorf("%w: profile already exists", ErrConflict)
		}
		return types.User{}, err
	}

	if s.notifier != nil {
		s.notifier.UserCreated(ctx, user)
	}
	if s.cache != nil && user.ManagementID != "" {
		s.cache.Invalidate(ctx, user.ManagementID)
	}
	return user, nil
}

// EnsureAdminRecord lazily creates an approved admin record for an
// identity carrying the admin claim. Idempotent: an existing record
// of any role is returned as-is.
func (s *UserService) EnsureAdminRecord(ctx context.Context, session types.Session, account types.Account) (types.User, error) {
	if !session.Authenticated() {
		return types.User{}, ErrUnauthenticated
	}
	if !session.Admin {
		return types.User{}, fmt.Errorf("%w: admin claim required", ErrPermissionDenied)
	}

	existing, err := s.repo.GetByID(ctx, session.ActorID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		ID:          session.ActorID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		PhotoURL:    account.PhotoURL,
		Role:        types.RoleAdmin,
		Status:      types.StatusApproved,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return s.repo.GetByID(ctx, session.ActorID)
		}
		return types.User{}, err
	}

	if s.notifier != nil {
		s.notifier.UserCreated(ctx, user)
	}
	return user, nil
}

// Get returns a single record. Callers may always read their own
// record; reading someone else's requires the admin claim.
func (s *UserService) Get(ctx context.Context, session types.Session, targetID string) (types.User, error) {
	if !session.Authenticated() {
		return types.User{}, ErrUnauthenticated
	}
	if targetID != session.ActorID && !session.Admin {
		return types.User{}, fmt.Errorf("%w: cannot read another user's record", ErrPermissionDenied)
	}
	return s.repo.GetByID(ctx, targetID)
}

// UpdateProfile replaces the free-form profile fields of a record.
// Only the owner or an admin may edit; role, status and the
// management back-reference are never writable through this path.
func (s *UserService) UpdateProfile(ctx context.Context, session types.Session, targetID string, profile types.Profile) (types.User, error) {
	if !session.Authenticated() {
		return types.User{}, ErrUnauthenticated
	}
	if targetID != session.ActorID && !session.Admin {
		return types.User{}, fmt.Errorf("%w: cannot edit another user's profile", ErrPermissionDenied)
	}
	return s.repo.UpdateProfile(ctx, targetID, profile)
}

// SetPhotoURL records the location of an uploaded avatar. Owner or
// admin only.
func (s *UserService) SetPhotoURL(ctx context.Context, session types.Session, targetID, photoURL string) error {
	if !session.Authenticated() {
		return ErrUnauthenticated
	}
	if targetID != session.ActorID && !session.Admin {
		return fmt.Errorf("%w: cannot change another user's avatar", ErrPermissionDenied)
	}
	return s.repo.UpdatePhotoURL(ctx, targetID, photoURL)
}

// Delete removes a single record. Admin only; management records
// should normally go through the college cascade instead, but a
// direct delete remains available to admins for any role.
func (s *UserService) Delete(ctx context.Context, session types.Session, targetID string) error {
	if !session.Authenticated() {
		return ErrUnauthenticated
	}
	if !session.Admin {
		return fmt.Errorf("%w: only an admin may delete a user", ErrPermissionDenied)
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, targetID); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.UserDeleted(ctx, target)
	}
	if s.cache != nil && target.ManagementID != "" {
		s.cache.Invalidate(ctx, target.ManagementID)
	}
	return nil
}
