package services

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

type CatalogService struct {
	DB    *sqlx.DB
	Cats  *repos.CategoryRepo
	Prods *repos.ProductRepo
	Inv   *repos.InventoryRepo
}

func NewCatalogService(db *sqlx.DB, cats *repos.CategoryRepo, prods *repos.ProductRepo, inv *repos.InventoryRepo) *CatalogService {
	return &CatalogService{DB: db, Cats: cats, Prods: prods, Inv: inv}
}

// ---------- Categories ----------

type CategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	ParentID    *string `json:"parentId"`
}

func (s *CatalogService) ListCategories(activeOnly bool) ([]domain.Category, error) {
	return s.Cats.List(activeOnly)
}

func (s *CatalogService) GetCategory(id string) (domain.Category, error) { return s.Cats.Get(id) }

func (s *CatalogService) RootCategories() ([]domain.Category, error) { return s.Cats.Roots() }

func (s *CatalogService) Subcategories(parentID string) ([]domain.Category, error) {
	if _, err := s.Cats.Get(parentID); err != nil {
		return nil, err
	}
	return s.Cats.Children(parentID)
}

func (s *CatalogService) CreateCategory(req CategoryRequest) (domain.Category, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Category{}, err
	}
	c := domain.Category{ID: uuid.NewString(), Name: strings.TrimSpace(req.Name), Active: true}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if err := s.checkParent(c.ID, req.ParentID); err != nil {
		return domain.Category{}, err
	}
	c.ParentID = nonEmpty(req.ParentID)
	if err := s.Cats.Create(&c); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

// UpdateCategory renames the category; description and parent change only when given.
func (s *CatalogService) UpdateCategory(id string, req CategoryRequest) (domain.Category, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Category{}, err
	}
	c, err := s.Cats.Get(id)
	if err != nil {
		return c, err
	}
	c.Name = strings.TrimSpace(req.Name)
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.ParentID != nil {
		if err := s.checkParent(id, req.ParentID); err != nil {
			return c, err
		}
		c.ParentID = nonEmpty(req.ParentID)
	}
	return c, s.Cats.Update(&c)
}

// checkParent rejects self-parenting and unknown parents. Deeper cycles are not detected.
func (s *CatalogService) checkParent(id string, parentID *string) error {
	if parentID == nil || *parentID == "" {
		return nil
	}
	if *parentID == id {
		return apperr.BadRequest("a category cannot be its own parent")
	}
	_, err := s.Cats.Get(*parentID)
	return err
}

// DeleteCategory removes a category that no product references.
func (s *CatalogService) DeleteCategory(id string) error {
	if _, err := s.Cats.Get(id); err != nil {
		return err
	}
	n, err := s.Prods.CountByCategory(id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.BadRequest("cannot delete category with existing products, move or delete products first")
	}
	return s.Cats.Delete(id)
}

func (s *CatalogService) SetCategoryActive(id string, active bool) error {
	return s.Cats.SetActive(id, active)
}

func (s *CatalogService) CategoryProducts(id string) ([]domain.Product, error) {
	if _, err := s.Cats.Get(id); err != nil {
		return nil, err
	}
	return s.Prods.List(repos.ProductFilter{CategoryID: id})
}

func (s *CatalogService) CategoryProductCount(id string) (int, error) {
	if _, err := s.Cats.Get(id); err != nil {
		return 0, err
	}
	return s.Prods.Count(repos.ProductFilter{CategoryID: id})
}

// ---------- Products ----------

type ProductRequest struct {
	Name          string              `json:"name" validate:"required,max=200"`
	Description   string              `json:"description" validate:"max=2000"`
	Price         decimal.Decimal     `json:"price"`
	CostPrice     decimal.NullDecimal `json:"costPrice"`
	SKU           string              `json:"sku" validate:"required,max=64"`
	StockQuantity int                 `json:"stockQuantity" validate:"gte=0"`
	CategoryID    string              `json:"categoryId" validate:"required"`
	Weight        decimal.NullDecimal `json:"weight"`
	Dimensions    domain.Dimensions   `json:"dimensions"`
}

// ProductPatch carries the fields to change; nil fields are left alone.
type ProductPatch struct {
	Name        *string             `json:"name" validate:"omitempty,max=200"`
	Description *string             `json:"description" validate:"omitempty,max=2000"`
	Price       decimal.NullDecimal `json:"price"`
	CostPrice   decimal.NullDecimal `json:"costPrice"`
	CategoryID  *string             `json:"categoryId"`
	Weight      decimal.NullDecimal `json:"weight"`
	Dimensions  domain.Dimensions   `json:"dimensions"`
}

type ProductSearch struct {
	Term       string
	CategoryID string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

// CreateProduct persists the product; a non-zero opening stock is booked as a
// PURCHASE ledger entry in the same transaction.
func (s *CatalogService) CreateProduct(req ProductRequest, actor string) (domain.Product, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Product{}, err
	}
	if fields := moneyErrors(map[string]decimal.NullDecimal{
		"price":     {Decimal: req.Price, Valid: true},
		"costPrice": req.CostPrice,
		"weight":    req.Weight,
	}); fields != nil {
		return domain.Product{}, apperr.Validation(fields)
	}
	if !req.Price.IsPositive() {
		return domain.Product{}, apperr.Validation(map[string]string{"price": "must be greater than 0"})
	}

	p := domain.Product{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       domain.Round(req.Price),
		CostPrice:   req.CostPrice,
		SKU:         strings.TrimSpace(req.SKU),
		CategoryID:  req.CategoryID,
		Active:      true,
		Weight:      req.Weight,
		Dimensions:  req.Dimensions,
	}
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		if _, err := repos.NewCategoryRepo(tx).Get(p.CategoryID); err != nil {
			return err
		}
		if err := s.Prods.WithTx(tx).Create(&p); err != nil {
			return err
		}
		if req.StockQuantity > 0 {
			ref := "product"
			if _, err := s.Inv.WithTx(tx).Apply(domain.InventoryTransaction{
				ProductID: p.ID, Type: domain.TxPurchase, QuantityChange: req.StockQuantity,
				ReferenceID: &p.ID, ReferenceType: &ref, Notes: "opening stock", CreatedBy: actor,
			}); err != nil {
				return err
			}
			p.StockQuantity = req.StockQuantity
		}
		return nil
	})
	return p, err
}

// GetProduct returns a product; inactive products are visible only when includeInactive is set.
func (s *CatalogService) GetProduct(id string, includeInactive bool) (domain.Product, error) {
	p, err := s.Prods.Get(id)
	if err != nil {
		return p, err
	}
	if !p.Active && !includeInactive {
		return domain.Product{}, apperr.NotFound("product %s not found", id)
	}
	return p, nil
}

func (s *CatalogService) GetProductBySKU(sku string) (domain.Product, error) {
	return s.Prods.GetBySKU(strings.TrimSpace(sku))
}

func (s *CatalogService) ListProducts(categoryID string, page, size int) (Page[domain.Product], error) {
	f := repos.ProductFilter{CategoryID: categoryID}
	total, err := s.Prods.Count(f)
	if err != nil {
		return Page[domain.Product]{}, err
	}
	f.Limit, f.Offset = size, page*size
	items, err := s.Prods.List(f)
	if err != nil {
		return Page[domain.Product]{}, err
	}
	return newPage(items, page, size, total), nil
}

func (s *CatalogService) SearchProducts(q ProductSearch) ([]domain.Product, error) {
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, apperr.BadRequest("minPrice must not exceed maxPrice")
	}
	return s.Prods.List(repos.ProductFilter{
		Term:       q.Term,
		CategoryID: q.CategoryID,
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
	})
}

func (s *CatalogService) LatestProducts(n int) ([]domain.Product, error) {
	return s.Prods.List(repos.ProductFilter{Limit: n})
}

func (s *CatalogService) LowStockProducts(threshold int) ([]domain.Product, error) {
	if threshold < 0 {
		threshold = 0
	}
	return s.Prods.LowStock(threshold)
}

// UpdateProduct applies the patch. Stock is not part of it: stock only moves
// through the inventory ledger.
func (s *CatalogService) UpdateProduct(id string, patch ProductPatch) (domain.Product, error) {
	if err := validate.Struct(patch); err != nil {
		return domain.Product{}, err
	}
	if fields := moneyErrors(map[string]decimal.NullDecimal{
		"price": patch.Price, "costPrice": patch.CostPrice, "weight": patch.Weight,
	}); fields != nil {
		return domain.Product{}, apperr.Validation(fields)
	}
	if patch.Price.Valid && !patch.Price.Decimal.IsPositive() {
		return domain.Product{}, apperr.Validation(map[string]string{"price": "must be greater than 0"})
	}

	var p domain.Product
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		prods := s.Prods.WithTx(tx)
		var err error
		if p, err = prods.Get(id); err != nil {
			return err
		}
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Price.Valid {
			p.Price = domain.Round(patch.Price.Decimal)
		}
		if patch.CostPrice.Valid {
			p.CostPrice = patch.CostPrice
		}
		if patch.Weight.Valid {
			p.Weight = patch.Weight
		}
		if patch.Dimensions != nil {
			p.Dimensions = patch.Dimensions
		}
		if patch.CategoryID != nil && *patch.CategoryID != p.CategoryID {
			if _, err := repos.NewCategoryRepo(tx).Get(*patch.CategoryID); err != nil {
				return err
			}
			p.CategoryID = *patch.CategoryID
		}
		return prods.Update(&p)
	})
	return p, err
}

// DeleteProduct soft-deletes: the row stays for order history but leaves the catalog.
func (s *CatalogService) DeleteProduct(id string) error {
	return s.Prods.SetActive(id, false)
}

func (s *CatalogService) RestoreProduct(id string) error {
	return s.Prods.SetActive(id, true)
}

func moneyErrors(vals map[string]decimal.NullDecimal) map[string]string {
	var fields map[string]string
	for name, v := range vals {
		if v.Valid && v.Decimal.IsNegative() {
			if fields == nil {
				fields = map[string]string{}
			}
			fields[name] = "must not be negative"
		}
	}
	return fields
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
