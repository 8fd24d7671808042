package services_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/repos"
	"storefront/internal/services"
)

func TestReview_OnePerUserPerProduct(t *testing.T) {
	f := newFixture(t)

	rv, err := f.reviews.Create(user, "p-phone", services.ReviewRequest{Rating: 4, Title: " Solid "})
	require.NoError(t, err)
	assert.True(t, rv.Approved)
	assert.False(t, rv.VerifiedPurchase)
	assert.Equal(t, "Solid", rv.Title)

	_, err = f.reviews.Create(user, "p-phone", services.ReviewRequest{Rating: 5})
	assert.Equal(t, http.StatusConflict, apperr.CodeOf(err))

	ok, err := f.reviews.HasReviewed(user, "p-phone")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReview_VerifiedPurchase(t *testing.T) {
	f := newFixture(t)
	o := placeOrder(t, f)

	rv, err := f.reviews.Create(user, "p-novel", services.ReviewRequest{Rating: 5, OrderID: &o.ID})
	require.NoError(t, err)
	assert.True(t, rv.VerifiedPurchase)

	_, err = f.reviews.Create(user, "p-laptop", services.ReviewRequest{Rating: 5, OrderID: &o.ID})
	assert.Equal(t, http.StatusBadRequest, apperr.CodeOf(err), "order does not contain the laptop")

	_, err = f.reviews.Create(repos.SeedAdminID, "p-novel", services.ReviewRequest{Rating: 1, OrderID: &o.ID})
	assert.Equal(t, http.StatusBadRequest, apperr.CodeOf(err), "someone else's order")
}

func TestReview_Rejects(t *testing.T) {
	f := newFixture(t)

	_, err := f.reviews.Create(user, "p-phone", services.ReviewRequest{Rating: 6})
	assert.Equal(t, http.StatusBadRequest, apperr.CodeOf(err))
	_, err = f.reviews.Create(user, "missing", services.ReviewRequest{Rating: 3})
	assert.True(t, apperr.IsNotFound(err))
	_, err = f.reviews.ByRating("p-phone", 0)
	assert.Equal(t, http.StatusBadRequest, apperr.CodeOf(err))
}

func TestReview_OwnerOnlyEdits(t *testing.T) {
	f := newFixture(t)
	rv, err := f.reviews.Create(user, "p-phone", services.ReviewRequest{Rating: 2, Comment: "meh"})
	require.NoError(t, err)

	five := 5
	_, err = f.reviews.Update(repos.SeedAdminID, rv.ID, services.ReviewPatch{Rating: &five})
	assert.True(t, apperr.IsNotFound(err))
	assert.True(t, apperr.IsNotFound(f.reviews.Delete(repos.SeedAdminID, rv.ID)))

	got, err := f.reviews.Update(user, rv.ID, services.ReviewPatch{Rating: &five})
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)
	assert.Equal(t, "meh", got.Comment)

	require.NoError(t, f.reviews.Delete(user, rv.ID))
	_, err = f.reviews.Get(rv.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestReview_Summary(t *testing.T) {
	f := newFixture(t)

	s, err := f.reviews.Summary("p-phone")
	require.NoError(t, err)
	assert.Zero(t, s.Count)
	assert.Zero(t, s.Average)

	_, err = f.reviews.Create(user, "p-phone", services.ReviewRequest{Rating: 5})
	require.NoError(t, err)
	_, err = f.reviews.Create(repos.SeedAdminID, "p-phone", services.ReviewRequest{Rating: 4})
	require.NoError(t, err)

	s, err = f.reviews.Summary("p-phone")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 4.5, s.Average)

	fives, err := f.reviews.ByRating("p-phone", 5)
	require.NoError(t, err)
	assert.Len(t, fives, 1)

	recent, err := f.reviews.Recent()
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	mine, err := f.reviews.UserReviews(user)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
