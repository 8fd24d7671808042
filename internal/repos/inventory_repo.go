package repos

import (
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"storefront/internal/apperr"
	"storefront/internal/domain"
)

type InventoryRepo struct{ db sqlx.Ext }

func NewInventoryRepo(db sqlx.Ext) *InventoryRepo { return &InventoryRepo{db: db} }

func (r *InventoryRepo) WithTx(tx *sqlx.Tx) *InventoryRepo { return &InventoryRepo{db: tx} }

// Apply is the only stock mutation path: it moves the cached
// products.stock_quantity by e.QuantityChange and appends the ledger row.
// Call it on a transaction-bound repo so both writes commit together.
// A decrement below zero fails with a BadRequest and writes nothing.
func (r *InventoryRepo) Apply(e domain.InventoryTransaction) (domain.InventoryTransaction, error) {
	now := domain.Now()
	res, err := r.db.Exec(`
		UPDATE products
		SET stock_quantity = stock_quantity + ?, updated_at = ?
		WHERE id = ? AND stock_quantity + ? >= 0
	`, e.QuantityChange, now, e.ProductID, e.QuantityChange)
	if err != nil {
		return e, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := sqlx.Get(r.db, &exists, `SELECT COUNT(*) FROM products WHERE id = ?`, e.ProductID); err != nil {
			return e, err
		}
		if exists == 0 {
			return e, apperr.NotFound("product %s not found", e.ProductID)
		}
		return e, apperr.BadRequest("insufficient stock for product %s", e.ProductID)
	}

	e.ID = uuid.NewString()
	e.CreatedAt = now
	if _, err := r.db.Exec(`
		INSERT INTO inventory_transactions
		  (id, product_id, type, quantity_change, reference_id, reference_type, notes, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.ProductID, e.Type, e.QuantityChange, e.ReferenceID, e.ReferenceType, e.Notes, e.CreatedBy, e.CreatedAt); err != nil {
		return e, err
	}
	return e, nil
}

// CachedStock returns products.stock_quantity.
func (r *InventoryRepo) CachedStock(productID string) (int, error) {
	var qty int
	err := sqlx.Get(r.db, &qty, `SELECT stock_quantity FROM products WHERE id = ?`, productID)
	return qty, notFound(err, "product %s not found", productID)
}

// LedgerStock sums every ledger delta for the product.
func (r *InventoryRepo) LedgerStock(productID string) (int, error) {
	var qty int
	err := sqlx.Get(r.db, &qty, `
		SELECT COALESCE(SUM(quantity_change), 0)
		FROM inventory_transactions
		WHERE product_id = ?
	`, productID)
	return qty, err
}

// History lists ledger rows newest first.
func (r *InventoryRepo) History(productID string) ([]domain.InventoryTransaction, error) {
	out := []domain.InventoryTransaction{}
	err := sqlx.Select(r.db, &out, `
		SELECT id, product_id, type, quantity_change, reference_id, reference_type, notes, created_by, created_at
		FROM inventory_transactions
		WHERE product_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, productID)
	return out, err
}

// ByReference lists ledger rows written for one order or adjustment.
func (r *InventoryRepo) ByReference(refType, refID string) ([]domain.InventoryTransaction, error) {
	out := []domain.InventoryTransaction{}
	err := sqlx.Select(r.db, &out, `
		SELECT id, product_id, type, quantity_change, reference_id, reference_type, notes, created_by, created_at
		FROM inventory_transactions
		WHERE reference_type = ? AND reference_id = ?
		ORDER BY rowid
	`, refType, refID)
	return out, err
}
