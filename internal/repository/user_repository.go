package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/prolinq/messaging-backend/internal/model"
)

// UserRepositoryInterface defines the read-only slice of the user directory
// the engine consumes.
type UserRepositoryInterface interface {
	GetByID(id int) (*model.User, error)
	ListRecipients(role *model.Role, verified *bool) ([]model.User, error)
	ListByIDs(ids []int) ([]model.User, error)
	ListActiveTalents() ([]model.User, error)
}

// UserRepository is the concrete Postgres implementation.
type UserRepository struct {
	DB *sql.DB
}

const userColumns = `id, email, username, full_name, primary_role, is_verified, is_admin, is_active, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FullName, &u.Role,
		&u.IsVerified, &u.IsAdmin, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user by ID; returns nil when not found.
func (r *UserRepository) GetByID(id int) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// ListRecipients fetches active non-admin users, optionally filtered by role
// or verification status.
func (r *UserRepository) ListRecipients(role *model.Role, verified *bool) ([]model.User, error) {
	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE is_admin = FALSE AND is_active = TRUE
    `
	args := []any{}
	if role != nil {
		args = append(args, *role)
		query += ` AND primary_role = $1`
	}
	if verified != nil {
		args = append(args, *verified)
		if role != nil {
			query += ` AND is_verified = $2`
		} else {
			query += ` AND is_verified = $1`
		}
	}
	query += ` ORDER BY id`

	return r.queryUsers(query, args...)
}

// ListByIDs fetches the users matching the given ids.
func (r *UserRepository) ListByIDs(ids []int) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE id = ANY($1) AND is_active = TRUE
        ORDER BY id
    `
	return r.queryUsers(query, pq.Array(ids))
}

// ListActiveTalents fetches the users eligible for daily recommendation
// emails.
func (r *UserRepository) ListActiveTalents() ([]model.User, error) {
	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE is_admin = FALSE AND is_active = TRUE AND primary_role = $1
        ORDER BY id
    `
	return r.queryUsers(query, model.RoleTalent)
}

func (r *UserRepository) queryUsers(query string, args ...any) ([]model.User, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
