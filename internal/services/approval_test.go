package services

import (
	"context"
	"errors"
	"testing"

	"github.com/hoas/apiserver/internal/store"
	"github.com/hoas/apiserver/types"
)

type eventRecord struct {
	kind     string
	userID   string
	previous types.Status
}

// fakeNotifier records published events for assertions.
type fakeNotifier struct {
	events []eventRecord
}

func (n *fakeNotifier) UserCreated(ctx context.Context, user types.User) {
	n.events = append(n.events, eventRecord{kind: "created", userID: user.ID})
}

func (n *fakeNotifier) UserStatusChanged(ctx context.Context, user types.User, previous types.Status) {
	n.events = append(n.events, eventRecord{kind: "status_changed", userID: user.ID, previous: previous})
}

func (n *fakeNotifier) UserDeleted(ctx context.Context, user types.User) {
	n.events = append(n.events, eventRecord{kind: "deleted", userID: user.ID})
}

func (n *fakeNotifier) CollegeDeleted(ctx context.Context, collegeID string, result types.CascadeResult) {
	n.events = append(n.events, eventRecord{kind: "college_deleted", userID: collegeID})
}

// fakeStatsCache records invalidations for assertions.
type fakeStatsCache struct {
	entries     map[string]types.CollegeStats
	invalidated []string
}

func newFakeStatsCache() *fakeStatsCache {
	return &fakeStatsCache{entries: make(map[string]types.CollegeStats)}
}

func (c *fakeStatsCache) Get(ctx context.Context, collegeID string) (types.CollegeStats, bool) {
	stats, ok := c.entries[collegeID]
	return stats, ok
}

func (c *fakeStatsCache) Set(ctx context.Context, collegeID string, stats types.CollegeStats) {
	c.entries[collegeID] = stats
}

func (c *fakeStatsCache) Invalidate(ctx context.Context, collegeID string) {
	delete(c.entries, collegeID)
	c.invalidated = append(c.invalidated, collegeID)
}

func seedUser(t *testing.T, repo *store.MemoryUserRepository, id string, role types.Role, status types.Status, managementID string) types.User {
	t.Helper()
	user, err := repo.Create(context.Background(), types.User{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  id,
		Role:         role,
		Status:       status,
		ManagementID: managementID,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return user
}

func TestApproveManagementRequiresAdmin(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewApprovalService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusPending, "")
	seedUser(t, repo, "m2", types.RoleManagement, types.StatusApproved, "")

	_, err := svc.Approve(context.Background(), types.Session{ActorID: "m2"}, "m1")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied, got %v", err)
	}

	target, err := repo.GetByID(context.Background(), "m1")
	if err != nil {
		t.Fatalf("get target: %v", err)
	}
	if target.Status != types.StatusPending {
		t.Fatalf("status changed on failed approve: %s", target.Status)
	}
}

func TestAdminApprovesManagement(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewApprovalService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusPending, "")

	updated, err := svc.Approve(context.Background(), types.Session{ActorID: "admin1", Admin: true}, "m1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if updated.Status != types.StatusApproved {
		t.Fatalf("want approved, got %s", updated.Status)
	}
	if updated.ApprovedBy != "admin1" {
		t.Fatalf("want approvedBy admin1, got %q", updated.ApprovedBy)
	}
	if updated.ApprovedAt == nil {
		t.Fatal("approvedAt not stamped")
	}
}

func TestManagementApprovesOwnWardenOnly(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewApprovalService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "m2", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "w1", types.RoleWarden, types.StatusPending, "m1")

	// The owning management record approves its warden.
	updated, err := svc.Approve(context.Background(), types.Session{ActorID: "m1"}, "w1")
	if err != nil {
		t.Fatalf("owner approve: %v", err)
	}
	if updated.Status != types.StatusApproved {
		t.Fatalf("want approved, got %s", updated.Status)
	}
	if updated.ManagementID != "m1" {
		t.Fatalf("managementID changed: %q", updated.ManagementID)
	}

	// A different management record cannot touch it.
	seedUser(t, repo, "w2", types.RoleWarden, types.StatusPending, "m1")
	_, err = svc.Approve(context.Background(), types.Session{ActorID: "m2"}, "w2")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied for foreign management, got %v", err)
	}
}

func TestStudentCanNeverApprove(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewApprovalService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "s1", types.RoleStudent, types.StatusApproved, "m1")
	seedUser(t, repo, "s2", types.RoleStudent, types.StatusPending, "m1")

	_, err := svc.Approve(context.Background(), types.Session{ActorID: "s1"}, "s2")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied, got %v", err)
	}

	target, _ := repo.GetByID(context.Background(), "s2")
	if target.Status != types.StatusPending {
		t.Fatalf("status changed on failed approve: %s", target.Status)
	}
}

func TestDenyRecordsReason(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewApprovalService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "w1", types.RoleWarden, types.StatusPending, "m1")

	updated, err := svc.Deny(context.Background(), types.Session{ActorID: "m1"}, "w1", "incomplete documents")
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if updated.Status != types.StatusDenied {
		t.Fatalf("want denied, got %s", updated.Status)
	}
	if updated.DeniedBy != "m1" || updated.DenialReason != "incomplete documents" {
		t.Fatalf("denial audit wrong: by=%q reason=%q", updated.DeniedBy, updated.DenialReason)
	}
}

func TestRestoreOnlyFromDenied(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewApprovalService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "w1", types.RoleWarden, types.StatusDenied, "m1")
	seedUser(t, repo, "w2", types.RoleWarden, types.StatusPending, "m1")

	updated, err := svc.Restore(context.Background(), types.Session{ActorID: "m1"}, "w1")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if updated.Status != types.StatusApproved {
		t.Fatalf("want approved after restore, got %s", updated.Status)
	}

	if _, err := svc.Restore(context.Background(), types.Session{ActorID: "m1"}, "w2"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("restore of pending record: want ErrInvalidArgument, got %v", err)
	}
}

func TestApproveAlreadyApprovedFails(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewApprovalService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")

	_, err := svc.Approve(context.Background(), types.Session{ActorID: "a", Admin: true}, "m1")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestTransitionUnauthenticated(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewApprovalService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusPending, "")

	_, err := svc.Approve(context.Background(), types.Session{}, "m1")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
}

func TestTransitionTargetNotFound(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewApprovalService(repo, nil, nil)

	_, err := svc.Approve(context.Background(), types.Session{ActorID: "a", Admin: true}, "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestAdminRecordNotSubjectToApproval(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewApprovalService(repo, nil, nil)
	seedUser(t, repo, "a1", types.RoleAdmin, types.StatusApproved, "")

	_, err := svc.Deny(context.Background(), types.Session{ActorID: "a2", Admin: true}, "a1", "")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestApprovePublishesEventAndInvalidatesCache(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	notifier := &fakeNotifier{}
	statsCache := newFakeStatsCache()
	svc := NewApprovalService(repo, notifier, statsCache)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "w1", types.RoleWarden, types.StatusPending, "m1")
	statsCache.Set(context.Background(), "m1", types.CollegeStats{})

	if _, err := svc.Approve(context.Background(), types.Session{ActorID: "m1"}, "w1"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if len(notifier.events) != 1 || notifier.events[0].kind != "status_changed" {
		t.Fatalf("unexpected events: %+v", notifier.events)
	}
	if notifier.events[0].previous != types.StatusPending {
		t.Fatalf("want previous status pending, got %s", notifier.events[0].previous)
	}
	if len(statsCache.invalidated) != 1 || statsCache.invalidated[0] != "m1" {
		t.Fatalf("stats cache not invalidated for m1: %v", statsCache.invalidated)
	}
}
