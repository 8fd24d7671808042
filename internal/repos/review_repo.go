package repos

import (
	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type ReviewRepo struct{ db sqlx.Ext }

func NewReviewRepo(db sqlx.Ext) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewCols = `id, product_id, user_id, order_id, rating, title, comment, is_verified_purchase, is_approved, helpful_votes, created_at, updated_at`

func (r *ReviewRepo) Create(rv *domain.ProductReview) error {
	now := domain.Now()
	rv.CreatedAt, rv.UpdatedAt = now, now
	_, err := r.db.Exec(`
		INSERT INTO product_reviews(`+reviewCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rv.ID, rv.ProductID, rv.UserID, rv.OrderID, rv.Rating, rv.Title, rv.Comment,
		rv.VerifiedPurchase, rv.Approved, rv.HelpfulVotes, rv.CreatedAt, rv.UpdatedAt)
	return conflict(err, "product %s has already been reviewed by this user", rv.ProductID)
}

func (r *ReviewRepo) Get(id string) (domain.ProductReview, error) {
	var rv domain.ProductReview
	err := sqlx.Get(r.db, &rv, `SELECT `+reviewCols+` FROM product_reviews WHERE id = ?`, id)
	return rv, notFound(err, "review %s not found", id)
}

// Update rewrites the user-editable fields of a review owned by rv.UserID.
func (r *ReviewRepo) Update(rv *domain.ProductReview) error {
	rv.UpdatedAt = domain.Now()
	res, err := r.db.Exec(`
		UPDATE product_reviews SET rating = ?, title = ?, comment = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, rv.Rating, rv.Title, rv.Comment, rv.UpdatedAt, rv.ID, rv.UserID)
	if err != nil {
		return err
	}
	return affected(res, "review %s not found", rv.ID)
}

func (r *ReviewRepo) Delete(userID, id string) error {
	res, err := r.db.Exec(`DELETE FROM product_reviews WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return affected(res, "review %s not found", id)
}

// ReviewFilter selects reviews; zero fields do not filter.
type ReviewFilter struct {
	ProductID    string
	UserID       string
	Rating       int
	ApprovedOnly bool
	Limit        int
}

func (r *ReviewRepo) List(f ReviewFilter) ([]domain.ProductReview, error) {
	q := `SELECT ` + reviewCols + ` FROM product_reviews WHERE 1 = 1`
	args := []any{}
	if f.ProductID != "" {
		q += ` AND product_id = ?`
		args = append(args, f.ProductID)
	}
	if f.UserID != "" {
		q += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.Rating > 0 {
		q += ` AND rating = ?`
		args = append(args, f.Rating)
	}
	if f.ApprovedOnly {
		q += ` AND is_approved = 1`
	}
	q += ` ORDER BY created_at DESC, rowid DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	out := []domain.ProductReview{}
	err := sqlx.Select(r.db, &out, q, args...)
	return out, err
}

// Stats returns the approved review count and average rating for a product.
func (r *ReviewRepo) Stats(productID string) (count int, avg float64, err error) {
	var row struct {
		N   int     `db:"n"`
		Avg float64 `db:"avg"`
	}
	err = sqlx.Get(r.db, &row, `
		SELECT COUNT(*) AS n, COALESCE(AVG(rating), 0) AS avg
		FROM product_reviews
		WHERE product_id = ? AND is_approved = 1
	`, productID)
	return row.N, row.Avg, err
}

func (r *ReviewRepo) Exists(productID, userID string) (bool, error) {
	var n int
	err := sqlx.Get(r.db, &n, `SELECT COUNT(*) FROM product_reviews WHERE product_id = ? AND user_id = ?`, productID, userID)
	return n > 0, err
}
