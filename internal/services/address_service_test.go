package services_test

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/services"
)

func defaults(t *testing.T, f *fixture, typ domain.AddressType) []domain.Address {
	t.Helper()
	all, err := f.addrs.ByType(user, typ)
	require.NoError(t, err)
	var out []domain.Address
	for _, a := range all {
		if a.Default {
			out = append(out, a)
		}
	}
	return out
}

func TestAddress_FirstOfTypeBecomesDefault(t *testing.T) {
	f := newFixture(t)

	first, err := f.addrs.Create(user, shippingReq())
	require.NoError(t, err)
	assert.True(t, first.Default)

	second, err := f.addrs.Create(user, shippingReq())
	require.NoError(t, err)
	assert.False(t, second.Default)

	bill := shippingReq()
	bill.Type = "billing"
	b, err := f.addrs.Create(user, bill)
	require.NoError(t, err)
	assert.True(t, b.Default, "defaults are tracked per type")
}

func TestAddress_MovedToEmptyTypeBecomesDefault(t *testing.T) {
	f := newFixture(t)
	first, err := f.addrs.Create(user, shippingReq())
	require.NoError(t, err)
	second, err := f.addrs.Create(user, shippingReq())
	require.NoError(t, err)
	require.False(t, second.Default)

	billing := "billing"
	moved, err := f.addrs.Update(user, second.ID, services.AddressPatch{Type: &billing})
	require.NoError(t, err)
	assert.Equal(t, domain.AddressBilling, moved.Type)
	assert.True(t, moved.Default, "first address of its new type")

	d := defaults(t, f, domain.AddressBilling)
	require.Len(t, d, 1)
	assert.Equal(t, second.ID, d[0].ID)
	d = defaults(t, f, domain.AddressShipping)
	require.Len(t, d, 1)
	assert.Equal(t, first.ID, d[0].ID)
}

func TestAddress_NewDefaultDemotesOld(t *testing.T) {
	f := newFixture(t)
	first, err := f.addrs.Create(user, shippingReq())
	require.NoError(t, err)

	req := shippingReq()
	req.Default = true
	second, err := f.addrs.Create(user, req)
	require.NoError(t, err)

	d := defaults(t, f, domain.AddressShipping)
	require.Len(t, d, 1)
	assert.Equal(t, second.ID, d[0].ID)

	_, err = f.addrs.SetDefault(user, first.ID)
	require.NoError(t, err)
	d = defaults(t, f, domain.AddressShipping)
	require.Len(t, d, 1)
	assert.Equal(t, first.ID, d[0].ID)
}

func TestAddress_ConcurrentSetDefaultLeavesOne(t *testing.T) {
	f := newFixture(t)
	var ids []string
	for i := 0; i < 6; i++ {
		a, err := f.addrs.Create(user, shippingReq())
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.addrs.SetDefault(user, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Len(t, defaults(t, f, domain.AddressShipping), 1)
}

func TestAddress_DeleteDefaultPromotesAnother(t *testing.T) {
	f := newFixture(t)
	first, err := f.addrs.Create(user, shippingReq())
	require.NoError(t, err)
	second, err := f.addrs.Create(user, shippingReq())
	require.NoError(t, err)

	require.NoError(t, f.addrs.Delete(user, first.ID))

	d, err := f.addrs.Default(user, domain.AddressShipping)
	require.NoError(t, err)
	assert.Equal(t, second.ID, d.ID)

	n, err := f.addrs.Count(user)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAddress_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	a, err := f.addrs.Create(user, shippingReq())
	require.NoError(t, err)

	_, err = f.addrs.Get("u-admin", a.ID)
	assert.True(t, apperr.IsNotFound(err))
	city := "Elsewhere"
	_, err = f.addrs.Update("u-admin", a.ID, services.AddressPatch{City: &city})
	assert.True(t, apperr.IsNotFound(err))
	assert.True(t, apperr.IsNotFound(f.addrs.Delete("u-admin", a.ID)))

	got, err := f.addrs.Update(user, a.ID, services.AddressPatch{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Elsewhere", got.City)
	assert.Equal(t, "1 Main St", got.AddressLine1)
}

func TestAddress_Validation(t *testing.T) {
	f := newFixture(t)
	req := shippingReq()
	req.City = ""
	_, err := f.addrs.Create(user, req)
	assert.Equal(t, http.StatusBadRequest, apperr.CodeOf(err))

	a, err := f.addrs.Create(user, shippingReq())
	require.NoError(t, err)
	blank := "   "
	_, err = f.addrs.Update(user, a.ID, services.AddressPatch{PostalCode: &blank})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Fields, "postalCode")

	assert.Error(t, services.ValidateAddress(domain.Address{Type: "office"}))
}
