package repos

import (
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type WishlistRepo struct{ db sqlx.Ext }

func NewWishlistRepo(db sqlx.Ext) *WishlistRepo { return &WishlistRepo{db: db} }

func (r *WishlistRepo) WithTx(tx *sqlx.Tx) *WishlistRepo { return &WishlistRepo{db: tx} }

const wishlistCols = `id, user_id, product_id, created_at`

func (r *WishlistRepo) Add(userID, productID string) (domain.WishlistItem, error) {
	it := domain.WishlistItem{ID: uuid.NewString(), UserID: userID, ProductID: productID, CreatedAt: domain.Now()}
	_, err := r.db.Exec(`
	  INSERT INTO wishlist_items(`+wishlistCols+`)
	  VALUES(?, ?, ?, ?)
	`, it.ID, it.UserID, it.ProductID, it.CreatedAt)
	return it, conflict(err, "product %s is already in the wishlist", productID)
}

func (r *WishlistRepo) Remove(userID, productID string) error {
	res, err := r.db.Exec(`DELETE FROM wishlist_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return err
	}
	return affected(res, "product %s is not in the wishlist", productID)
}

// RemoveByID deletes an item only when it belongs to userID.
func (r *WishlistRepo) RemoveByID(userID, id string) error {
	res, err := r.db.Exec(`DELETE FROM wishlist_items WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return affected(res, "wishlist item %s not found", id)
}

func (r *WishlistRepo) Clear(userID string) error {
	_, err := r.db.Exec(`DELETE FROM wishlist_items WHERE user_id = ?`, userID)
	return err
}

func (r *WishlistRepo) Items(userID string) ([]domain.WishlistItem, error) {
	out := []domain.WishlistItem{}
	err := sqlx.Select(r.db, &out, `
	  SELECT `+wishlistCols+`
	  FROM wishlist_items
	  WHERE user_id = ?
	  ORDER BY created_at DESC, rowid DESC
	`, userID)
	return out, err
}

func (r *WishlistRepo) ItemsByProduct(productID string) ([]domain.WishlistItem, error) {
	out := []domain.WishlistItem{}
	err := sqlx.Select(r.db, &out, `
	  SELECT `+wishlistCols+`
	  FROM wishlist_items
	  WHERE product_id = ?
	  ORDER BY created_at DESC
	`, productID)
	return out, err
}

// Products returns the wishlisted products that are still active.
func (r *WishlistRepo) Products(userID string) ([]domain.Product, error) {
	out := []domain.Product{}
	err := sqlx.Select(r.db, &out, `
	  SELECT p.id, p.name, p.description, p.price, p.cost_price, p.sku, p.stock_quantity, p.category_id,
	         p.is_active, p.weight, p.dimensions, p.created_at, p.updated_at
	  FROM wishlist_items wi
	  JOIN products p ON p.id = wi.product_id
	  WHERE wi.user_id = ? AND p.is_active = 1
	  ORDER BY wi.created_at DESC, wi.rowid DESC
	`, userID)
	return out, err
}

func (r *WishlistRepo) Contains(userID, productID string) (bool, error) {
	var n int
	err := sqlx.Get(r.db, &n, `SELECT COUNT(*) FROM wishlist_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	return n > 0, err
}

func (r *WishlistRepo) Count(userID string) (int, error) {
	var n int
	err := sqlx.Get(r.db, &n, `SELECT COUNT(*) FROM wishlist_items WHERE user_id = ?`, userID)
	return n, err
}
