package repos_test

import (
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var (
	updateStock  = regexp.QuoteMeta(`UPDATE products`)
	insertLedger = regexp.QuoteMeta(`INSERT INTO inventory_transactions`)
	countProduct = regexp.QuoteMeta(`SELECT COUNT(*) FROM products WHERE id = ?`)
)

func TestApply_LedgerFailureRollsBackStockUpdate(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(updateStock).
		WithArgs(-2, sqlmock.AnyArg(), "p-1", -2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertLedger).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := repos.InTx(db, func(tx *sqlx.Tx) error {
		_, err := repos.NewInventoryRepo(tx).Apply(domain.InventoryTransaction{
			ProductID: "p-1", Type: domain.TxSale, QuantityChange: -2,
		})
		return err
	})
	assert.EqualError(t, err, "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_CommitsBothWrites(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(updateStock).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertLedger).
		WithArgs(sqlmock.AnyArg(), "p-1", domain.TxPurchase, 5, nil, nil, "restock", "admin", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	var got domain.InventoryTransaction
	err := repos.InTx(db, func(tx *sqlx.Tx) error {
		var err error
		got, err = repos.NewInventoryRepo(tx).Apply(domain.InventoryTransaction{
			ProductID: "p-1", Type: domain.TxPurchase, QuantityChange: 5, Notes: "restock", CreatedBy: "admin",
		})
		return err
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_NoRowUpdated(t *testing.T) {
	cases := []struct {
		name   string
		exists int
		code   int
	}{
		{"insufficient stock", 1, http.StatusBadRequest},
		{"unknown product", 0, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			mock.ExpectExec(updateStock).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(countProduct).
				WithArgs("p-1").
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tc.exists))

			_, err := repos.NewInventoryRepo(db).Apply(domain.InventoryTransaction{
				ProductID: "p-1", Type: domain.TxSale, QuantityChange: -100,
			})
			assert.Equal(t, tc.code, apperr.CodeOf(err))
			assert.NoError(t, mock.ExpectationsWereMet(), "no ledger row is written")
		})
	}
}

func TestRedeem_ReportsExhaustedCoupon(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE coupons`)).
		WithArgs("c-1", now, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repos.NewCouponRepo(db).Redeem("c-1", now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
