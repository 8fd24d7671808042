package repos

import (
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type CartRepo struct{ db sqlx.Ext }

func NewCartRepo(db sqlx.Ext) *CartRepo { return &CartRepo{db: db} }

func (r *CartRepo) WithTx(tx *sqlx.Tx) *CartRepo { return &CartRepo{db: tx} }

// AddItem inserts the line or merges by incrementing the existing quantity.
func (r *CartRepo) AddItem(userID, productID string, qty int) error {
	now := domain.Now()
	_, err := r.db.Exec(`
		INSERT INTO cart_items(id, user_id, product_id, quantity, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + excluded.quantity, updated_at = excluded.updated_at
	`, uuid.NewString(), userID, productID, qty, now, now)
	return err
}

// SetQuantity overwrites the line quantity; quantities below one delete it.
func (r *CartRepo) SetQuantity(userID, productID string, qty int) error {
	if qty <= 0 {
		return r.Remove(userID, productID)
	}
	res, err := r.db.Exec(`
		UPDATE cart_items SET quantity = ?, updated_at = ?
		WHERE user_id = ? AND product_id = ?
	`, qty, domain.Now(), userID, productID)
	if err != nil {
		return err
	}
	return affected(res, "product %s is not in the cart", productID)
}

func (r *CartRepo) Remove(userID, productID string) error {
	res, err := r.db.Exec(`DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return err
	}
	return affected(res, "product %s is not in the cart", productID)
}

// Lines returns the cart joined with live product data, oldest line first.
func (r *CartRepo) Lines(userID string) ([]domain.CartLine, error) {
	out := []domain.CartLine{}
	err := sqlx.Select(r.db, &out, `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		       p.name AS product_name, p.sku AS product_sku, p.description AS product_description,
		       p.price AS unit_price, p.stock_quantity AS product_stock, p.is_active AS product_active
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = ?
		ORDER BY ci.created_at, ci.rowid
	`, userID)
	return out, err
}

// Count returns the number of distinct lines in the cart.
func (r *CartRepo) Count(userID string) (int, error) {
	var n int
	err := sqlx.Get(r.db, &n, `SELECT COUNT(*) FROM cart_items WHERE user_id = ?`, userID)
	return n, err
}

func (r *CartRepo) Clear(userID string) error {
	_, err := r.db.Exec(`DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}
