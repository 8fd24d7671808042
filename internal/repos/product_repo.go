package repos

import (
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type ProductRepo struct{ db sqlx.Ext }

func NewProductRepo(db sqlx.Ext) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) WithTx(tx *sqlx.Tx) *ProductRepo { return &ProductRepo{db: tx} }

const productCols = `
    id, name, description, price, cost_price, sku, stock_quantity, category_id,
    is_active, weight, dimensions, created_at, updated_at`

// ProductFilter narrows catalog queries. Inactive (soft-deleted) products are
// excluded unless IncludeInactive is set.
type ProductFilter struct {
	Term            string
	CategoryID      string
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	IncludeInactive bool
	Limit           int
	Offset          int
}

func (f ProductFilter) where() (string, []any) {
	where := []string{"1 = 1"}
	args := []any{}
	if !f.IncludeInactive {
		where = append(where, "is_active = 1")
	}
	if t := strings.ToLower(strings.TrimSpace(f.Term)); t != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(sku) LIKE ?)")
		args = append(args, "%"+t+"%", "%"+t+"%", "%"+t+"%")
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.MinPrice != nil {
		where = append(where, "CAST(price AS REAL) >= CAST(? AS REAL)")
		args = append(args, f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		where = append(where, "CAST(price AS REAL) <= CAST(? AS REAL)")
		args = append(args, f.MaxPrice.String())
	}
	return strings.Join(where, " AND "), args
}

// Create inserts p with zero stock; opening stock is booked through the ledger.
func (r *ProductRepo) Create(p *domain.Product) error {
	now := domain.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	p.StockQuantity = 0
	if p.Dimensions == nil {
		p.Dimensions = domain.Dimensions{}
	}
	_, err := r.db.Exec(`
		INSERT INTO products(`+productCols+`)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, p.Price, p.CostPrice, p.SKU, p.CategoryID,
		p.Active, p.Weight, p.Dimensions, p.CreatedAt, p.UpdatedAt)
	return conflict(err, "product with sku %s already exists", p.SKU)
}

func (r *ProductRepo) Get(id string) (domain.Product, error) {
	var p domain.Product
	err := sqlx.Get(r.db, &p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	return p, notFound(err, "product %s not found", id)
}

func (r *ProductRepo) GetBySKU(sku string) (domain.Product, error) {
	var p domain.Product
	err := sqlx.Get(r.db, &p, `SELECT `+productCols+` FROM products WHERE sku = ?`, sku)
	return p, notFound(err, "product with sku %s not found", sku)
}

func (r *ProductRepo) List(f ProductFilter) ([]domain.Product, error) {
	where, args := f.where()
	q := `SELECT ` + productCols + ` FROM products WHERE ` + where + ` ORDER BY created_at DESC, name`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}
	out := []domain.Product{}
	err := sqlx.Select(r.db, &out, q, args...)
	return out, err
}

func (r *ProductRepo) Count(f ProductFilter) (int, error) {
	where, args := f.where()
	var n int
	err := sqlx.Get(r.db, &n, `SELECT COUNT(*) FROM products WHERE `+where, args...)
	return n, err
}

// LowStock lists active products at or below threshold, emptiest first.
func (r *ProductRepo) LowStock(threshold int) ([]domain.Product, error) {
	out := []domain.Product{}
	err := sqlx.Select(r.db, &out, `
		SELECT `+productCols+`
		FROM products
		WHERE is_active = 1 AND stock_quantity <= ?
		ORDER BY stock_quantity, name
	`, threshold)
	return out, err
}

// Update writes every mutable column except stock_quantity.
func (r *ProductRepo) Update(p *domain.Product) error {
	p.UpdatedAt = domain.Now()
	res, err := r.db.Exec(`
		UPDATE products
		SET name = ?, description = ?, price = ?, cost_price = ?, sku = ?, category_id = ?,
		    is_active = ?, weight = ?, dimensions = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Description, p.Price, p.CostPrice, p.SKU, p.CategoryID,
		p.Active, p.Weight, p.Dimensions, p.UpdatedAt, p.ID)
	if err != nil {
		return conflict(err, "product with sku %s already exists", p.SKU)
	}
	return affected(res, "product %s not found", p.ID)
}

func (r *ProductRepo) SetActive(id string, active bool) error {
	res, err := r.db.Exec(`UPDATE products SET is_active = ?, updated_at = ? WHERE id = ?`, active, domain.Now(), id)
	if err != nil {
		return err
	}
	return affected(res, "product %s not found", id)
}

// CountByCategory counts products of any state referencing the category.
func (r *ProductRepo) CountByCategory(categoryID string) (int, error) {
	var n int
	err := sqlx.Get(r.db, &n, `SELECT COUNT(*) FROM products WHERE category_id = ?`, categoryID)
	return n, err
}
