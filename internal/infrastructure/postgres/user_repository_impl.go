package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
)

const userColumns = `id, email, password_hash, name, avatar_url, role, is_verified,
		verify_code, verify_expiry, reset_code, reset_expiry, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var (
		role                      string
		verifyExpiry, resetExpiry *time.Time
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.AvatarURL, &role, &u.IsVerified,
		&u.VerifyCode, &verifyExpiry, &u.ResetCode, &resetExpiry, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	r, err := entity.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	u.Role = r
	u.VerifyExpiry = fromNullTime(verifyExpiry)
	u.ResetExpiry = fromNullTime(resetExpiry)
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if !u.Role.Valid() {
		u.Role = entity.RoleUser
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, avatar_url, role, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Password, u.Name, u.AvatarURL, u.Role.String(), u.IsVerified)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]entity.User, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]entity.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now()

	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET name = $1, avatar_url = $2, updated_at = $3
		WHERE id = $4
	`, u.Name, u.AvatarURL, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role entity.Role) error {
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrNotFound
	}
	res, err := r.db.Exec(ctx, `UPDATE users SET role = $1, updated_at = now() WHERE id = $2`, role.String(), id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrNotFound
	}
	res, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetOTP(ctx context.Context, id string, purpose entity.OTPPurpose, code string, expiry time.Time) error {
	var q string
	switch purpose {
	case entity.PurposeVerify:
		q = `UPDATE users SET verify_code = $1, verify_expiry = $2, updated_at = now() WHERE id = $3`
	case entity.PurposeReset:
		q = `UPDATE users SET reset_code = $1, reset_expiry = $2, updated_at = now() WHERE id = $3`
	default:
		return entity.ErrUnknownPurpose
	}
	res, err := r.db.Exec(ctx, q, code, nullTime(expiry), id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ConsumeVerify(ctx context.Context, id, code string, now time.Time) error {
	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET is_verified = TRUE, verify_code = '', verify_expiry = NULL, updated_at = $3
		WHERE id = $1 AND verify_code <> '' AND verify_code = $2 AND verify_expiry > $3
	`, id, code, now)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrCodeMismatch
	}
	return nil
}

func (r *UserRepository) ConsumeReset(ctx context.Context, id, code, passwordHash string, now time.Time) error {
	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $3, reset_code = '', reset_expiry = NULL, updated_at = $4
		WHERE id = $1 AND reset_code <> '' AND reset_code = $2 AND reset_expiry > $4
	`, id, code, passwordHash, now)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrCodeMismatch
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
