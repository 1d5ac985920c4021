package sqlite

import (
	"context"

	"github.com/presstronic/kalsumed/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

// userSelect aggregates role names into a space-delimited column so a single
// query returns the full identity.
const userSelect = `
SELECT u.id, u.username, u.email, u.password_hash, u.created_at, u.updated_at,
       COALESCE(GROUP_CONCAT(r.name, ' '), '') AS role_names
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id
`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.scanOne(ctx, userSelect+`WHERE u.id = ? GROUP BY u.id`, id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	// Empty emails (OAuth-provisioned accounts) are never a match target.
	return r.scanOne(ctx, userSelect+`WHERE u.email = ? AND u.email <> '' GROUP BY u.id`, email)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.scanOne(ctx, userSelect+`WHERE u.username = ? GROUP BY u.id`, username)
}

func (r *usersRepo) scanOne(ctx context.Context, query string, arg string) (domain.User, error) {
	var u domain.User
	var roleNames string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &roleNames,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Roles = splitRoles(roleNames)
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		newHash, userID,
	)
	return err
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
