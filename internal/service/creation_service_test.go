package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/QuickAI/internal/apperr"
	"github.com/digkill/QuickAI/internal/models"
)

func seed(t *testing.T, store *memCreations, c models.Creation) int64 {
	t.Helper()
	require.NoError(t, store.Insert(context.Background(), &c))
	return c.ID
}

func TestToggleLike(t *testing.T) {
	store := newMemCreations()
	svc := NewCreationService(store, quietLogger())
	id := seed(t, store, models.Creation{UserID: "owner", Type: models.KindImage, Publish: true, Likes: []string{}})

	liked, err := svc.ToggleLike(context.Background(), "fan", id)
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = svc.ToggleLike(context.Background(), "fan", id)
	require.NoError(t, err)
	assert.False(t, liked)

	c, _ := store.GetByID(context.Background(), id)
	assert.Empty(t, c.Likes)
}

func TestToggleLikeMissing(t *testing.T) {
	svc := NewCreationService(newMemCreations(), quietLogger())

	_, err := svc.ToggleLike(context.Background(), "fan", 0)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.ToggleLike(context.Background(), "fan", 42)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDeleteIsOwnerOnly(t *testing.T) {
	store := newMemCreations()
	svc := NewCreationService(store, quietLogger())
	id := seed(t, store, models.Creation{UserID: "owner", Type: models.KindArticle})

	err := svc.Delete(context.Background(), "intruder", id)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	require.NoError(t, svc.Delete(context.Background(), "owner", id))
	c, _ := store.GetByID(context.Background(), id)
	assert.Nil(t, c)
}

func TestListPublishedFiltersByKind(t *testing.T) {
	store := newMemCreations()
	svc := NewCreationService(store, quietLogger())
	seed(t, store, models.Creation{UserID: "a", Type: models.KindImage, Publish: true})
	seed(t, store, models.Creation{UserID: "a", Type: models.KindArticle, Publish: true})
	seed(t, store, models.Creation{UserID: "a", Type: models.KindImage})

	all, err := svc.ListPublished(context.Background(), "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	images, err := svc.ListPublished(context.Background(), "image", 0, 0)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, models.KindImage, images[0].Type)

	_, err = svc.ListPublished(context.Background(), "poem", 0, 0)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestListForUserNewestFirst(t *testing.T) {
	store := newMemCreations()
	svc := NewCreationService(store, quietLogger())
	first := seed(t, store, models.Creation{UserID: "me", Type: models.KindArticle})
	second := seed(t, store, models.Creation{UserID: "me", Type: models.KindBlogTitle})
	seed(t, store, models.Creation{UserID: "someone-else", Type: models.KindArticle})

	items, err := svc.ListForUser(context.Background(), "me", 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second, items[0].ID)
	assert.Equal(t, first, items[1].ID)

	empty, err := svc.ListForUser(context.Background(), "nobody", 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestPage(t *testing.T) {
	l, o := page(0, -5)
	assert.Equal(t, DefaultPageSize, l)
	assert.Equal(t, 0, o)

	l, _ = page(500, 0)
	assert.Equal(t, MaxPageSize, l)
}
