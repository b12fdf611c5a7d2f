package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hoas/apiserver/types"
	"github.com/lib/pq"
)

// UserRepository handles persistence for user records.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, display_name, photo_url, role, status, management_id, profile,
		created_at, updated_at, approved_at, approved_by, denied_at, denied_by, denial_reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var (
		user         types.User
		managementID sql.NullString
		profileJSON  []byte
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PhotoURL,
		&user.Role,
		&user.Status,
		&managementID,
		&profileJSON,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.ApprovedAt,
		&user.ApprovedBy,
		&user.DeniedAt,
		&user.DeniedBy,
		&user.DenialReason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.ManagementID = managementID.String
	if len(profileJSON) > 0 {
		if err := json.Unmarshal(profileJSON, &user.Profile); err != nil {
			return types.User{}, fmt.Errorf("decode profile for user %s: %w", user.ID, err)
		}
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	profileJSON, err := json.Marshal(user.Profile)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		INSERT INTO users (id, email, display_name, photo_url, role, status, management_id, profile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.DisplayName,
		user.PhotoURL,
		user.Role,
		user.Status,
		user.ManagementID,
		profileJSON,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	return user, nil
}

// UpdateStatus applies an approval-workflow transition to a single
// record. It writes only the status and the audit fields for the
// transition's direction; everything else is untouched.
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status types.Status, actorID, reason string) (types.User, error) {
	now := time.Now()

	var query string
	switch status {
	case types.StatusApproved:
		query = `
			UPDATE users
			SET status = $1, approved_at = $2, approved_by = $3, updated_at = $2
			WHERE id = $4
			RETURNING ` + userColumns
		return scanUser(r.db.QueryRowContext(ctx, query, status, now, actorID, id))
	case types.StatusDenied:
		query = `
			UPDATE users
			SET status = $1, denied_at = $2, denied_by = $3, denial_reason = $4, updated_at = $2
			WHERE id = $5
			RETURNING ` + userColumns
		return scanUser(r.db.QueryRowContext(ctx, query, status, now, actorID, reason, id))
	default:
		return types.User{}, errors.New("unsupported status transition")
	}
}

// UpdateProfile replaces the free-form profile fields of a record.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, profile types.Profile) (types.User, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		UPDATE users
		SET profile = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, profileJSON, time.Now(), id))
}

// UpdatePhotoURL records the location of an uploaded avatar.
func (r *UserRepository) UpdatePhotoURL(ctx context.Context, id, photoURL string) error {
	const query = `UPDATE users SET photo_url = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, photoURL, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByRole returns every record with the given role.
func (r *UserRepository) ListByRole(ctx context.Context, role types.Role) ([]types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at`
	return r.queryUsers(ctx, query, role)
}

// ListByManagement returns the dependent records of a management
// record, optionally narrowed by role and status. Empty filters match
// everything.
func (r *UserRepository) ListByManagement(ctx context.Context, managementID string, role types.Role, status types.Status) ([]types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE management_id = $1`
	args := []any{managementID}
	if role != "" {
		args = append(args, role)
		query += ` AND role = $2`
	}
	if status != "" {
		args = append(args, status)
		if role != "" {
			query += ` AND status = $3`
		} else {
			query += ` AND status = $2`
		}
	}
	query += ` ORDER BY created_at`
	return r.queryUsers(ctx, query, args...)
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]types.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// CollegeStats counts the dependent warden and student records of a
// management record, split by status. The WHERE clause must stay in
// lockstep with DeleteCollege so stats and cascade agree on
// membership.
func (r *UserRepository) CollegeStats(ctx context.Context, managementID string) (types.CollegeStats, error) {
	const query = `
		SELECT role, status, COUNT(1)
		FROM users
		WHERE management_id = $1 AND role IN ('warden', 'student')
		GROUP BY role, status`
	rows, err := r.db.QueryContext(ctx, query, managementID)
	if err != nil {
		return types.CollegeStats{}, err
	}
	defer rows.Close()

	var stats types.CollegeStats
	for rows.Next() {
		var (
			role   types.Role
			status types.Status
			count  int
		)
		if err := rows.Scan(&role, &status, &count); err != nil {
			return types.CollegeStats{}, err
		}
		var counts *types.StatusCounts
		switch role {
		case types.RoleWarden:
			counts = &stats.Wardens
		case types.RoleStudent:
			counts = &stats.Students
		default:
			continue
		}
		for i := 0; i < count; i++ {
			counts.Add(status)
		}
	}
	if err := rows.Err(); err != nil {
		return types.CollegeStats{}, err
	}
	return stats, nil
}

// DeleteCollege removes a management record together with every
// dependent warden and student record in a single transaction. The
// management row is locked first so registrations racing the cascade
// cannot slip a new dependent in between enumeration and delete.
func (r *UserRepository) DeleteCollege(ctx context.Context, managementID string) (types.CascadeResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.CascadeResult{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const lockQuery = `SELECT id FROM users WHERE id = $1 AND role = 'management' FOR UPDATE`
	var lockedID string
	if err := tx.QueryRowContext(ctx, lockQuery, managementID).Scan(&lockedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.CascadeResult{}, ErrNotFound
		}
		return types.CascadeResult{}, err
	}

	var result types.CascadeResult
	const deleteDependents = `DELETE FROM users WHERE management_id = $1 AND role = $2`
	for _, role := range []types.Role{types.RoleWarden, types.RoleStudent} {
		res, err := tx.ExecContext(ctx, deleteDependents, managementID, role)
		if err != nil {
			return types.CascadeResult{}, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return types.CascadeResult{}, err
		}
		switch role {
		case types.RoleWarden:
			result.WardensDeleted = int(affected)
		case types.RoleStudent:
			result.StudentsDeleted = int(affected)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, managementID); err != nil {
		return types.CascadeResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.CascadeResult{}, err
	}
	return result, nil
}
