package services

import (
	"context"
	"errors"
	"testing"

	"github.com/hoas/apiserver/internal/store"
	"github.com/hoas/apiserver/types"
)

func TestCascadeDeleteRemovesCollegeAndDependents(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewCollegeService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "w1", types.RoleWarden, types.StatusApproved, "m1")
	seedUser(t, repo, "s1", types.RoleStudent, types.StatusPending, "m1")
	// A different college is untouched.
	seedUser(t, repo, "m2", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "s2", types.RoleStudent, types.StatusApproved, "m2")

	admin := types.Session{ActorID: "admin1", Admin: true}
	result, err := svc.Delete(context.Background(), admin, "m1")
	if err != nil {
		t.Fatalf("delete college: %v", err)
	}
	if result.WardensDeleted != 1 || result.StudentsDeleted != 1 {
		t.Fatalf("want 1 warden and 1 student deleted, got %+v", result)
	}

	for _, id := range []string{"m1", "w1", "s1"} {
		if _, err := repo.GetByID(context.Background(), id); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("record %s still exists after cascade", id)
		}
	}
	if _, err := repo.GetByID(context.Background(), "s2"); err != nil {
		t.Fatalf("unrelated record s2 was deleted: %v", err)
	}

	// No dangling back-references remain.
	left, err := repo.ListByManagement(context.Background(), "m1", "", "")
	if err != nil {
		t.Fatalf("list dependents: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("dangling dependents after cascade: %+v", left)
	}
}

func TestCascadeDeleteSecondCallNotFound(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewCollegeService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")

	admin := types.Session{ActorID: "admin1", Admin: true}
	if _, err := svc.Delete(context.Background(), admin, "m1"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	_, err := svc.Delete(context.Background(), admin, "m1")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestCascadeDeleteRequiresAdmin(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewCollegeService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")

	_, err := svc.Delete(context.Background(), types.Session{ActorID: "m1"}, "m1")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), "m1"); err != nil {
		t.Fatalf("college deleted by non-admin: %v", err)
	}
}

func TestCascadeDeleteRejectsNonManagementTarget(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewCollegeService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "w1", types.RoleWarden, types.StatusApproved, "m1")

	_, err := svc.Delete(context.Background(), types.Session{ActorID: "a", Admin: true}, "w1")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), "w1"); err != nil {
		t.Fatalf("warden deleted by invalid cascade: %v", err)
	}
}

func TestStatsAgreeWithCascadeMembership(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewCollegeService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "w1", types.RoleWarden, types.StatusApproved, "m1")
	seedUser(t, repo, "w2", types.RoleWarden, types.StatusPending, "m1")
	seedUser(t, repo, "s1", types.RoleStudent, types.StatusApproved, "m1")
	seedUser(t, repo, "s2", types.RoleStudent, types.StatusDenied, "m1")
	seedUser(t, repo, "s3", types.RoleStudent, types.StatusPending, "m1")

	admin := types.Session{ActorID: "admin1", Admin: true}
	stats, err := svc.Stats(context.Background(), admin, "m1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Wardens.Total != 2 || stats.Wardens.Approved != 1 || stats.Wardens.Pending != 1 {
		t.Fatalf("warden counts wrong: %+v", stats.Wardens)
	}
	if stats.Students.Total != 3 || stats.Students.Approved != 1 || stats.Students.Denied != 1 || stats.Students.Pending != 1 {
		t.Fatalf("student counts wrong: %+v", stats.Students)
	}

	result, err := svc.Delete(context.Background(), admin, "m1")
	if err != nil {
		t.Fatalf("delete college: %v", err)
	}
	if result.WardensDeleted != stats.Wardens.Total || result.StudentsDeleted != stats.Students.Total {
		t.Fatalf("stats and cascade disagree: stats=%+v cascade=%+v", stats, result)
	}
}

func TestStatsUsesCache(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	statsCache := newFakeStatsCache()
	svc := NewCollegeService(repo, nil, statsCache)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "w1", types.RoleWarden, types.StatusApproved, "m1")

	admin := types.Session{ActorID: "admin1", Admin: true}
	first, err := svc.Stats(context.Background(), admin, "m1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if cached, ok := statsCache.Get(context.Background(), "m1"); !ok || cached != first {
		t.Fatalf("stats not cached after read")
	}

	// A stale cache entry is served as-is until invalidated.
	statsCache.Set(context.Background(), "m1", types.CollegeStats{Wardens: types.StatusCounts{Total: 99}})
	stale, err := svc.Stats(context.Background(), admin, "m1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stale.Wardens.Total != 99 {
		t.Fatalf("cache bypassed: %+v", stale)
	}
}

func TestCollegeAccessAuthorization(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewCollegeService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "m2", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "w1", types.RoleWarden, types.StatusPending, "m1")

	// Own college: allowed.
	if _, err := svc.Users(context.Background(), types.Session{ActorID: "m1"}, "m1", types.RoleWarden, ""); err != nil {
		t.Fatalf("owner listing: %v", err)
	}

	// Foreign college: denied.
	if _, err := svc.Stats(context.Background(), types.Session{ActorID: "m2"}, "m1"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied for foreign stats, got %v", err)
	}

	// Management filter must be warden or student.
	if _, err := svc.Users(context.Background(), types.Session{ActorID: "m1"}, "m1", types.RoleManagement, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument for management filter, got %v", err)
	}
}

func TestListCollegesAdminOnly(t *testing.T) {
	repo := store.NewMemoryUserRepository()
	svc := NewCollegeService(repo, nil, nil)
	seedUser(t, repo, "m1", types.RoleManagement, types.StatusApproved, "")
	seedUser(t, repo, "m2", types.RoleManagement, types.StatusPending, "")

	colleges, err := svc.List(context.Background(), types.Session{ActorID: "a", Admin: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(colleges) != 2 {
		t.Fatalf("want 2 colleges, got %d", len(colleges))
	}

	if _, err := svc.List(context.Background(), types.Session{ActorID: "m1"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied, got %v", err)
	}
}
