package repos

import (
	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type CategoryRepo struct{ db sqlx.Ext }

func NewCategoryRepo(db sqlx.Ext) *CategoryRepo { return &CategoryRepo{db: db} }

const categoryCols = `id, name, description, parent_id, is_active, created_at, updated_at`

// List returns categories ordered by name; activeOnly hides deactivated rows.
func (r *CategoryRepo) List(activeOnly bool) ([]domain.Category, error) {
	q := `SELECT ` + categoryCols + ` FROM categories`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	out := []domain.Category{}
	err := sqlx.Select(r.db, &out, q+` ORDER BY name`)
	return out, err
}

func (r *CategoryRepo) Get(id string) (domain.Category, error) {
	var c domain.Category
	err := sqlx.Get(r.db, &c, `SELECT `+categoryCols+` FROM categories WHERE id = ?`, id)
	return c, notFound(err, "category %s not found", id)
}

func (r *CategoryRepo) Roots() ([]domain.Category, error) {
	out := []domain.Category{}
	err := sqlx.Select(r.db, &out, `
		SELECT `+categoryCols+`
		FROM categories
		WHERE parent_id IS NULL AND is_active = 1
		ORDER BY name
	`)
	return out, err
}

func (r *CategoryRepo) Children(parentID string) ([]domain.Category, error) {
	out := []domain.Category{}
	err := sqlx.Select(r.db, &out, `
		SELECT `+categoryCols+`
		FROM categories
		WHERE parent_id = ? AND is_active = 1
		ORDER BY name
	`, parentID)
	return out, err
}

func (r *CategoryRepo) Create(c *domain.Category) error {
	now := domain.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.db.Exec(`
		INSERT INTO categories(`+categoryCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Description, c.ParentID, c.Active, c.CreatedAt, c.UpdatedAt)
	return conflict(err, "category %q already exists", c.Name)
}

func (r *CategoryRepo) Update(c *domain.Category) error {
	c.UpdatedAt = domain.Now()
	res, err := r.db.Exec(`
		UPDATE categories
		SET name = ?, description = ?, parent_id = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, c.Description, c.ParentID, c.Active, c.UpdatedAt, c.ID)
	if err != nil {
		return conflict(err, "category %q already exists", c.Name)
	}
	return affected(res, "category %s not found", c.ID)
}

func (r *CategoryRepo) SetActive(id string, active bool) error {
	res, err := r.db.Exec(`UPDATE categories SET is_active = ?, updated_at = ? WHERE id = ?`, active, domain.Now(), id)
	if err != nil {
		return err
	}
	return affected(res, "category %s not found", id)
}

func (r *CategoryRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res, "category %s not found", id)
}
