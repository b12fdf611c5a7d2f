package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/hoas/apiserver/internal/store"
	"github.com/hoas/apiserver/types"
)

// ApprovalService mediates every status transition on a user record.
// The role hierarchy is strict: admins approve management records,
// and a warden or student is approved either by an admin or by the
// management record it references.
type ApprovalService struct {
	repo     UserRepository
	notifier Notifier
	cache    StatsCache
}

func NewApprovalService(repo UserRepository, notifier Notifier, cache StatsCache) *ApprovalService {
	return &ApprovalService{repo: repo, notifier: notifier, cache: cache}
}

// Approve transitions a pending record to approved.
func (s *ApprovalService) Approve(ctx context.Context, session types.Session, targetID string) (types.User, error) {
	return s.transition(ctx, session, targetID, types.StatusApproved, "", types.StatusPending)
}

// Deny transitions a pending record to denied, recording the reason.
func (s *ApprovalService) Deny(ctx context.Context, session types.Session, targetID, reason string) (types.User, error) {
	return s.transition(ctx, session, targetID, types.StatusDenied, reason, types.StatusPending)
}

// Restore transitions a denied record back to approved. It is the
// one sanctioned exit from the denied state and carries the same
// authorization rule as Approve.
func (s *ApprovalService) Restore(ctx context.Context, session types.Session, targetID string) (types.User, error) {
	return s.transition(ctx, session, targetID, types.StatusApproved, "", types.StatusDenied)
}

func (s *ApprovalService) transition(ctx context.Context, session types.Session, targetID string, newStatus types.Status, reason string, from types.Status) (types.User, error) {
	if targetID == "" {
		return types.User{}, fmt.Errorf("%w: target user id is required", ErrInvalidArgument)
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return types.User{}, err
	}

	if err := s.authorize(ctx, session, target); err != nil {
		return types.User{}, err
	}

	if target.Status != from {
		return types.User{}, fmt.Errorf("%w: cannot move a %s record to %s", ErrInvalidArgument, target.Status, newStatus)
	}

	updated, err := s.repo.UpdateStatus(ctx, targetID, newStatus, session.ActorID, reason)
	if err != nil {
		return types.User{}, err
	}

	if s.notifier != nil {
		s.notifier.UserStatusChanged(ctx, updated, target.Status)
	}
	if s.cache != nil && updated.ManagementID != "" {
		s.cache.Invalidate(ctx, updated.ManagementID)
	}
	return updated, nil
}

// authorize enforces the role hierarchy for a transition on target.
// No mutation happens when it returns an error.
func (s *ApprovalService) authorize(ctx context.Context, session types.Session, target types.User) error {
	if !session.Authenticated() {
		return ErrUnauthenticated
	}

	switch target.Role {
	case types.RoleAdmin:
		return fmt.Errorf("%w: admin records are not subject to approval", ErrInvalidArgument)
	case types.RoleManagement:
		if !session.Admin {
			return fmt.Errorf("%w: only an admin may act on a management record", ErrPermissionDenied)
		}
		return nil
	case types.RoleWarden, types.RoleStudent:
		if session.Admin {
			return nil
		}
		actor, err := s.repo.GetByID(ctx, session.ActorID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: actor has no profile record", ErrPermissionDenied)
			}
			return err
		}
		if actor.Role != types.RoleManagement || actor.ID != target.ManagementID {
			return fmt.Errorf("%w: actor does not manage this user", ErrPermissionDenied)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown target role", ErrInvalidArgument)
}
