package services_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
)

func TestWishlist_AddIsUnique(t *testing.T) {
	f := newFixture(t)

	_, err := f.wish.Add(user, "p-phone")
	require.NoError(t, err)
	_, err = f.wish.Add(user, "p-phone")
	assert.Equal(t, http.StatusConflict, apperr.CodeOf(err))
	_, err = f.wish.Add(user, "missing")
	assert.True(t, apperr.IsNotFound(err))

	n, err := f.wish.Count(user)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := f.wish.Contains(user, "p-phone")
	require.NoError(t, err)
	assert.True(t, ok)

	prods, err := f.wish.Products(user)
	require.NoError(t, err)
	require.Len(t, prods, 1)
	assert.Equal(t, "Phone X", prods[0].Name)
}

func TestWishlist_MoveToCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.wish.Add(user, "p-novel")
	require.NoError(t, err)
	require.NoError(t, f.cart.AddToCart(user, "p-novel", 2))

	require.NoError(t, f.wish.MoveToCart(user, "p-novel"))

	ok, err := f.wish.Contains(user, "p-novel")
	require.NoError(t, err)
	assert.False(t, ok)
	lines, err := f.cart.Items(user)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)

	assert.True(t, apperr.IsNotFound(f.wish.MoveToCart(user, "p-novel")), "no longer wishlisted")
}

func TestWishlist_MoveInactiveProductKeepsLine(t *testing.T) {
	f := newFixture(t)
	_, err := f.wish.Add(user, "p-laptop")
	require.NoError(t, err)
	require.NoError(t, f.catalog.DeleteProduct("p-laptop"))

	err = f.wish.MoveToCart(user, "p-laptop")
	assert.Equal(t, http.StatusBadRequest, apperr.CodeOf(err))

	ok, err := f.wish.Contains(user, "p-laptop")
	require.NoError(t, err)
	assert.True(t, ok)
	n, err := f.cart.Count(user)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWishlist_RemoveAndClear(t *testing.T) {
	f := newFixture(t)
	it, err := f.wish.Add(user, "p-phone")
	require.NoError(t, err)
	_, err = f.wish.Add(user, "p-novel")
	require.NoError(t, err)

	assert.True(t, apperr.IsNotFound(f.wish.RemoveByID("u-admin", it.ID)))
	require.NoError(t, f.wish.RemoveByID(user, it.ID))
	assert.True(t, apperr.IsNotFound(f.wish.Remove(user, "p-phone")))

	who, err := f.wish.ItemsByProduct("p-novel")
	require.NoError(t, err)
	assert.Len(t, who, 1)

	require.NoError(t, f.wish.Clear(user))
	items, err := f.wish.Items(user)
	require.NoError(t, err)
	assert.Empty(t, items)
}
