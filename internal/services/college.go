package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/hoas/apiserver/internal/store"
	"github.com/hoas/apiserver/types"
)

// CollegeService owns the operations scoped to a management record:
// dependent-user listings, aggregate stats, and the cascade delete.
type CollegeService struct {
	repo     UserRepository
	notifier Notifier
	cache    StatsCache
}

func NewCollegeService(repo UserRepository, notifier Notifier, cache StatsCache) *CollegeService {
	return &CollegeService{repo: repo, notifier: notifier, cache: cache}
}

// List returns every management record. Admin only.
func (s *CollegeService) List(ctx context.Context, session types.Session) ([]types.User, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !session.Admin {
		return nil, fmt.Errorf("%w: only an admin may list colleges", ErrPermissionDenied)
	}
	return s.repo.ListByRole(ctx, types.RoleManagement)
}

// Users returns the warden and student records belonging to a
// college, optionally filtered by role and status. Callable by an
// admin or by the college's own management record.
func (s *CollegeService) Users(ctx context.Context, session types.Session, collegeID string, role types.Role, status types.Status) ([]types.User, error) {
	if err := s.authorizeCollegeAccess(ctx, session, collegeID); err != nil {
		return nil, err
	}
	if role != "" && !role.NeedsManagement() {
		return nil, fmt.Errorf("%w: role filter must be warden or student", ErrInvalidArgument)
	}
	return s.repo.ListByManagement(ctx, collegeID, role, status)
}

// Stats aggregates the college's dependent records by status. Results
// are cached; every mutation under the college invalidates the entry.
func (s *CollegeService) Stats(ctx context.Context, session types.Session, collegeID string) (types.CollegeStats, error) {
	if err := s.authorizeCollegeAccess(ctx, session, collegeID); err != nil {
		return types.CollegeStats{}, err
	}

	if s.cache != nil {
		if stats, ok := s.cache.Get(ctx, collegeID); ok {
			return stats, nil
		}
	}

	stats, err := s.repo.CollegeStats(ctx, collegeID)
	if err != nil {
		return types.CollegeStats{}, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, collegeID, stats)
	}
	return stats, nil
}

// Delete removes a management record and every dependent warden and
// student record as one atomic operation. Admin only.
func (s *CollegeService) Delete(ctx context.Context, session types.Session, collegeID string) (types.CascadeResult, error) {
	if !session.Authenticated() {
		return types.CascadeResult{}, ErrUnauthenticated
	}
	if !session.Admin {
		return types.CascadeResult{}, fmt.Errorf("%w: only an admin may delete a college", ErrPermissionDenied)
	}
	if collegeID == "" {
		return types.CascadeResult{}, fmt.Errorf("%w: college id is required", ErrInvalidArgument)
	}

	target, err := s.repo.GetByID(ctx, collegeID)
	if err != nil {
		return types.CascadeResult{}, err
	}
	if target.Role != types.RoleManagement {
		return types.CascadeResult{}, fmt.Errorf("%w: record %s is not a management record", ErrInvalidArgument, collegeID)
	}

	result, err := s.repo.DeleteCollege(ctx, collegeID)
	if err != nil {
		return types.CascadeResult{}, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, collegeID)
	}
	if s.notifier != nil {
		s.notifier.CollegeDeleted(ctx, collegeID, result)
	}
	return result, nil
}

func (s *CollegeService) authorizeCollegeAccess(ctx context.Context, session types.Session, collegeID string) error {
	if !session.Authenticated() {
		return ErrUnauthenticated
	}
	if collegeID == "" {
		return fmt.Errorf("%w: college id is required", ErrInvalidArgument)
	}
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
	if actor.Role != types.RoleManagement || actor.ID != collegeID {
		return fmt.Errorf("%w: actor does not manage this college", ErrPermissionDenied)
	}
	return nil
}
