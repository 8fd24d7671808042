package repos

import (
	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type AddressRepo struct{ db sqlx.Ext }

func NewAddressRepo(db sqlx.Ext) *AddressRepo { return &AddressRepo{db: db} }

func (r *AddressRepo) WithTx(tx *sqlx.Tx) *AddressRepo { return &AddressRepo{db: tx} }

const addressCols = `id, user_id, type, first_name, last_name, company, address_line1, address_line2,
    city, state, postal_code, country, phone, is_default, created_at`

func (r *AddressRepo) Insert(a *domain.Address) error {
	a.CreatedAt = domain.Now()
	_, err := r.db.Exec(`
		INSERT INTO addresses(`+addressCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, a.Type, a.FirstName, a.LastName, a.Company, a.AddressLine1, a.AddressLine2,
		a.City, a.State, a.PostalCode, a.Country, a.Phone, a.Default, a.CreatedAt)
	return conflict(err, "a default %s address already exists", a.Type)
}

// Get returns the address only when it belongs to userID.
func (r *AddressRepo) Get(userID, id string) (domain.Address, error) {
	var a domain.Address
	err := sqlx.Get(r.db, &a, `SELECT `+addressCols+` FROM addresses WHERE id = ? AND user_id = ?`, id, userID)
	return a, notFound(err, "address %s not found", id)
}

// List returns the user's addresses, defaults first. An empty typ lists all.
func (r *AddressRepo) List(userID string, typ domain.AddressType) ([]domain.Address, error) {
	q := `SELECT ` + addressCols + ` FROM addresses WHERE user_id = ?`
	args := []any{userID}
	if typ != "" {
		q += ` AND type = ?`
		args = append(args, typ)
	}
	out := []domain.Address{}
	err := sqlx.Select(r.db, &out, q+` ORDER BY is_default DESC, created_at, rowid`, args...)
	return out, err
}

func (r *AddressRepo) Default(userID string, typ domain.AddressType) (domain.Address, error) {
	var a domain.Address
	err := sqlx.Get(r.db, &a, `
		SELECT `+addressCols+` FROM addresses
		WHERE user_id = ? AND type = ? AND is_default = 1
	`, userID, typ)
	return a, notFound(err, "no default %s address", typ)
}

func (r *AddressRepo) Count(userID string, typ domain.AddressType) (int, error) {
	q := `SELECT COUNT(*) FROM addresses WHERE user_id = ?`
	args := []any{userID}
	if typ != "" {
		q += ` AND type = ?`
		args = append(args, typ)
	}
	var n int
	err := sqlx.Get(r.db, &n, q, args...)
	return n, err
}

func (r *AddressRepo) Update(a *domain.Address) error {
	res, err := r.db.Exec(`
		UPDATE addresses
		SET type = ?, first_name = ?, last_name = ?, company = ?, address_line1 = ?, address_line2 = ?,
		    city = ?, state = ?, postal_code = ?, country = ?, phone = ?, is_default = ?
		WHERE id = ? AND user_id = ?
	`, a.Type, a.FirstName, a.LastName, a.Company, a.AddressLine1, a.AddressLine2,
		a.City, a.State, a.PostalCode, a.Country, a.Phone, a.Default, a.ID, a.UserID)
	if err != nil {
		return conflict(err, "a default %s address already exists", a.Type)
	}
	return affected(res, "address %s not found", a.ID)
}

// UnsetDefaults clears the default flag on every address of (user, type).
func (r *AddressRepo) UnsetDefaults(userID string, typ domain.AddressType) error {
	_, err := r.db.Exec(`UPDATE addresses SET is_default = 0 WHERE user_id = ? AND type = ? AND is_default = 1`, userID, typ)
	return err
}

func (r *AddressRepo) SetDefault(userID, id string) error {
	res, err := r.db.Exec(`UPDATE addresses SET is_default = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return conflict(err, "a default address already exists")
	}
	return affected(res, "address %s not found", id)
}

func (r *AddressRepo) Delete(userID, id string) error {
	res, err := r.db.Exec(`DELETE FROM addresses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return affected(res, "address %s not found", id)
}
