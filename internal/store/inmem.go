package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hoas/apiserver/types"
)

// MemoryUserRepository is a mutex-guarded in-memory implementation of
// the user repository contract. It backs the service and handler
// tests and is handy for local experiments without Postgres.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]types.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]types.User)}
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return types.User{}, ErrDuplicate
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryUserRepository) UpdateStatus(ctx context.Context, id string, status types.Status, actorID, reason string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}

	now := time.Now()
	user.Status = status
	user.UpdatedAt = now
	switch status {
	case types.StatusApproved:
		user.ApprovedAt = &now
		user.ApprovedBy = actorID
	case types.StatusDenied:
		user.DeniedAt = &now
		user.DeniedBy = actorID
		user.DenialReason = reason
	default:
		return types.User{}, errors.New("unsupported status transition")
	}
	r.users[id] = user
	return user, nil
}

func (r *MemoryUserRepository) UpdateProfile(ctx context.Context, id string, profile types.Profile) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	user.Profile = profile
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return user, nil
}

func (r *MemoryUserRepository) UpdatePhotoURL(ctx context.Context, id, photoURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	user.PhotoURL = photoURL
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepository) ListByRole(ctx context.Context, role types.Role) ([]types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []types.User
	for _, user := range r.users {
		if user.Role == role {
			users = append(users, user)
		}
	}
	sortByCreation(users)
	return users, nil
}

func (r *MemoryUserRepository) ListByManagement(ctx context.Context, managementID string, role types.Role, status types.Status) ([]types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []types.User
	for _, user := range r.users {
		if user.ManagementID != managementID {
			continue
		}
		if role != "" && user.Role != role {
			continue
		}
		if status != "" && user.Status != status {
			continue
		}
		users = append(users, user)
	}
	sortByCreation(users)
	return users, nil
}

func (r *MemoryUserRepository) CollegeStats(ctx context.Context, managementID string) (types.CollegeStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats types.CollegeStats
	for _, user := range r.users {
		if user.ManagementID != managementID {
			continue
		}
		switch user.Role {
		case types.RoleWarden:
			stats.Wardens.Add(user.Status)
		case types.RoleStudent:
			stats.Students.Add(user.Status)
		}
	}
	return stats, nil
}

func (r *MemoryUserRepository) DeleteCollege(ctx context.Context, managementID string) (types.CascadeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	college, ok := r.users[managementID]
	if !ok || college.Role != types.RoleManagement {
		return types.CascadeResult{}, ErrNotFound
	}

	var result types.CascadeResult
	for id, user := range r.users {
		if user.ManagementID != managementID {
			continue
		}
		switch user.Role {
		case types.RoleWarden:
			result.WardensDeleted++
			delete(r.users, id)
		case types.RoleStudent:
			result.StudentsDeleted++
			delete(r.users, id)
		}
	}
	delete(r.users, managementID)
	return result, nil
}

func sortByCreation(users []types.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
}

// MemoryAccountRepository is the in-memory counterpart for accounts.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]types.Account
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: make(map[string]types.Account)}
}

func (r *MemoryAccountRepository) GetByID(ctx context.Context, id string) (types.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return types.Account{}, ErrNotFound
	}
	return account, nil
}

func (r *MemoryAccountRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return types.Account{}, ErrNotFound
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.ID]; ok {
		return types.Account{}, ErrDuplicate
	}
	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return types.Account{}, ErrDuplicate
		}
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.accounts[account.ID] = account
	return account, nil
}

func (r *MemoryAccountRepository) SetAdmin(ctx context.Context, email string, admin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, account := range r.accounts {
		if account.Email == email {
			account.Admin = admin
			account.UpdatedAt = time.Now()
			r.accounts[id] = account
			return nil
		}
	}
	return ErrNotFound
}
