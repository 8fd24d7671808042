package services_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/events"
)

func TestUpdateProductStock_BooksDeltaAsAdjustment(t *testing.T) {
	f := newFixture(t)

	e, err := f.inv.UpdateProductStock(context.Background(), "p-laptop", 4, "cycle count", "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.TxAdjustment, e.Type)
	assert.Equal(t, -6, e.QuantityChange)
	require.NotNil(t, e.ReferenceType)
	assert.Equal(t, "adjustment", *e.ReferenceType)

	cached, ledger := f.stock(t, "p-laptop")
	assert.Equal(t, 4, cached)
	assert.Equal(t, 4, ledger)
	assert.Equal(t, []string{events.StockAdjusted}, f.events.Types())
}

func TestUpdateProductStock_Rejects(t *testing.T) {
	f := newFixture(t)

	_, err := f.inv.UpdateProductStock(context.Background(), "p-laptop", -1, "", "")
	assert.Equal(t, http.StatusBadRequest, apperr.CodeOf(err))

	_, err = f.inv.UpdateProductStock(context.Background(), "missing", 3, "", "")
	assert.True(t, apperr.IsNotFound(err))
	assert.Empty(t, f.events.Types())
}

func TestLedger_MixedSequenceKeepsCacheInSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.inv.RecordPurchase("p-novel", 20, "restock", "admin")
	require.NoError(t, err)
	_, err = f.inv.UpdateProductStock(ctx, "p-novel", 50, "damaged", "admin")
	require.NoError(t, err)
	_, err = f.inv.RecordReturn("p-novel", 2, "customer return", "admin")
	require.NoError(t, err)
	_, err = f.inv.RecordPurchase("p-novel", 0, "", "admin")
	assert.Equal(t, http.StatusBadRequest, apperr.CodeOf(err))

	r, err := f.inv.Reconcile("p-novel")
	require.NoError(t, err)
	assert.Equal(t, 52, r.CachedStock)
	assert.True(t, r.InSync)

	h, err := f.inv.History("p-novel")
	require.NoError(t, err)
	require.Len(t, h, 4)
	assert.Equal(t, domain.TxReturn, h[0].Type, "newest first")
	assert.Equal(t, domain.TxPurchase, h[3].Type)
}

func TestUpdateProductStock_ConcurrentAdjustmentsMatchLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := f.inv.UpdateProductStock(ctx, "p-phone", n, "recount", "admin")
			assert.NoError(t, err)
		}(i * 3)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.inv.RecordPurchase("p-phone", 1, "delivery", "admin")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cached, ledger := f.stock(t, "p-phone")
	assert.Equal(t, cached, ledger)
}

func TestHistory_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.inv.History("missing")
	assert.True(t, apperr.IsNotFound(err))
}
