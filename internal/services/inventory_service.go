package services

import (
	"context"

	"github.com/jmoiron/sqlx"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/repos"
)

const refAdjustment = "adjustment"

type InventoryService struct {
	DB     *sqlx.DB
	Inv    *repos.InventoryRepo
	Events events.Publisher
}

func NewInventoryService(db *sqlx.DB, inv *repos.InventoryRepo, pub events.Publisher) *InventoryService {
	return &InventoryService{DB: db, Inv: inv, Events: pub}
}

// Reconciliation compares the cached stock column with the ledger sum.
type Reconciliation struct {
	ProductID   string `json:"productId"`
	CachedStock int    `json:"cachedStock"`
	LedgerStock int    `json:"ledgerStock"`
	InSync      bool   `json:"inSync"`
}

// UpdateProductStock sets the stock to newStock by booking the difference as
// an ADJUSTMENT. The current value is read inside the transaction, so
// concurrent adjustments serialise instead of losing updates.
func (s *InventoryService) UpdateProductStock(ctx context.Context, productID string, newStock int, reason, actor string) (domain.InventoryTransaction, error) {
	if newStock < 0 {
		return domain.InventoryTransaction{}, apperr.Validation(map[string]string{"stockQuantity": "must not be negative"})
	}
	var entry domain.InventoryTransaction
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		var err error
		entry, err = adjustStock(s.Inv.WithTx(tx), productID, newStock, reason, actor)
		return err
	})
	if err != nil {
		return entry, err
	}
	events.Emit(ctx, s.Events, events.New(events.StockAdjusted, productID, map[string]any{
		"new_stock": newStock,
		"delta":     entry.QuantityChange,
		"reason":    reason,
	}))
	return entry, nil
}

// adjustStock books newStock - current as an ADJUSTMENT on a tx-bound repo.
// An unchanged stock still writes a zero entry so the reason is recorded.
func adjustStock(inv *repos.InventoryRepo, productID string, newStock int, reason, actor string) (domain.InventoryTransaction, error) {
	current, err := inv.CachedStock(productID)
	if err != nil {
		return domain.InventoryTransaction{}, err
	}
	ref := refAdjustment
	return inv.Apply(domain.InventoryTransaction{
		ProductID:      productID,
		Type:           domain.TxAdjustment,
		QuantityChange: newStock - current,
		ReferenceType:  &ref,
		Notes:          reason,
		CreatedBy:      actor,
	})
}

// RecordPurchase books received stock.
func (s *InventoryService) RecordPurchase(productID string, qty int, notes, actor string) (domain.InventoryTransaction, error) {
	return s.record(productID, domain.TxPurchase, qty, notes, actor)
}

// RecordReturn books stock coming back from a customer.
func (s *InventoryService) RecordReturn(productID string, qty int, notes, actor string) (domain.InventoryTransaction, error) {
	return s.record(productID, domain.TxReturn, qty, notes, actor)
}

func (s *InventoryService) record(productID string, typ domain.TransactionType, qty int, notes, actor string) (domain.InventoryTransaction, error) {
	if qty < 1 {
		return domain.InventoryTransaction{}, apperr.Validation(map[string]string{"quantity": "must be at least 1"})
	}
	var entry domain.InventoryTransaction
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		var err error
		entry, err = s.Inv.WithTx(tx).Apply(domain.InventoryTransaction{
			ProductID: productID, Type: typ, QuantityChange: qty, Notes: notes, CreatedBy: actor,
		})
		return err
	})
	return entry, err
}

func (s *InventoryService) History(productID string) ([]domain.InventoryTransaction, error) {
	if _, err := s.Inv.CachedStock(productID); err != nil {
		return nil, err
	}
	return s.Inv.History(productID)
}

func (s *InventoryService) Reconcile(productID string) (Reconciliation, error) {
	cached, err := s.Inv.CachedStock(productID)
	if err != nil {
		return Reconciliation{}, err
	}
	ledger, err := s.Inv.LedgerStock(productID)
	if err != nil {
		return Reconciliation{}, err
	}
	return Reconciliation{ProductID: productID, CachedStock: cached, LedgerStock: ledger, InSync: cached == ledger}, nil
}
