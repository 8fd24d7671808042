package repos

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type UserRepo struct{ db sqlx.Ext }

func NewUserRepo(db sqlx.Ext) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) WithTx(tx *sqlx.Tx) *UserRepo { return &UserRepo{db: tx} }

const userCols = `id, email, password_hash, first_name, last_name, phone, user_type, is_active, created_at, updated_at`

func (r *UserRepo) Create(u *domain.User) error {
	now := domain.Now()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.db.Exec(`
		INSERT INTO users(`+userCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.Hash, u.FirstName, u.LastName, u.Phone, u.Type, u.Active, u.CreatedAt, u.UpdatedAt)
	return conflict(err, "email %s is already registered", u.Email)
}

func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := sqlx.Get(r.db, &u, `SELECT `+userCols+` FROM users WHERE LOWER(email) = LOWER(?)`, strings.TrimSpace(email))
	if err != nil {
		return nil, notFound(err, "user %s not found", email)
	}
	return &u, nil
}

func (r *UserRepo) ByID(id string) (*domain.User, error) {
	var u domain.User
	err := sqlx.Get(r.db, &u, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "user %s not found", id)
	}
	return &u, nil
}

func (r *UserRepo) List() ([]domain.User, error) {
	out := []domain.User{}
	err := sqlx.Select(r.db, &out, `SELECT `+userCols+` FROM users ORDER BY created_at, email`)
	return out, err
}

func (r *UserRepo) UpdateProfile(id, first, last, phone string) error {
	res, err := r.db.Exec(`
		UPDATE users SET first_name = ?, last_name = ?, phone = ?, updated_at = ?
		WHERE id = ?
	`, first, last, phone, domain.Now(), id)
	if err != nil {
		return err
	}
	return affected(res, "user %s not found", id)
}

func (r *UserRepo) SetActive(id string, active bool) error {
	res, err := r.db.Exec(`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, active, domain.Now(), id)
	if err != nil {
		return err
	}
	return affected(res, "user %s not found", id)
}

func (r *UserRepo) CountActive() (int, error) {
	var n int
	err := sqlx.Get(r.db, &n, `SELECT COUNT(*) FROM users WHERE is_active = 1`)
	return n, err
}
