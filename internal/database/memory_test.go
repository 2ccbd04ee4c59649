package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"fritter/internal/models"
	"fritter/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSaveFreetCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	freet := models.NewFreet(uuid.New(), "hello")
	require.NoError(t, store.CreateFreet(ctx, freet))

	first, err := store.GetFreet(ctx, freet.ID)
	require.NoError(t, err)
	second, err := store.GetFreet(ctx, freet.ID)
	require.NoError(t, err)

	first.AddReactor(models.Approve, uuid.New())
	require.NoError(t, store.SaveFreet(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second.AddReactor(models.Disapprove, uuid.New())
	err = store.SaveFreet(ctx, second)
	assert.ErrorIs(t, err, utils.Conflict)

	stored, err := store.GetFreet(ctx, freet.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Approves)
	assert.Equal(t, 0, stored.Disapproves)
}

func TestMemoryStoreLikesBumpVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	freet := models.NewFreet(uuid.New(), "hello")
	require.NoError(t, store.CreateFreet(ctx, freet))

	stale, err := store.GetFreet(ctx, freet.ID)
	require.NoError(t, err)

	updated, err := store.UpdateFreetLikes(ctx, freet.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Likes)

	// an aggregate read before the like must not overwrite it
	assert.ErrorIs(t, store.SaveFreet(ctx, stale), utils.Conflict)

	_, err = store.UpdateFreetLikes(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, utils.PostNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	freet := models.NewFreet(uuid.New(), "hello")
	require.NoError(t, store.CreateFreet(ctx, freet))

	got, err := store.GetFreet(ctx, freet.ID)
	require.NoError(t, err)
	got.ApproveLinks["https://example.com"] = 7

	again, err := store.GetFreet(ctx, freet.ID)
	require.NoError(t, err)
	assert.Empty(t, again.ApproveLinks)
}

func TestMemoryStoreReactionUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	user, freetID := uuid.New(), uuid.New()

	_, err := store.AddReaction(ctx, models.ApproveReaction, user, freetID)
	require.NoError(t, err)

	_, err = store.AddReaction(ctx, models.ApproveReaction, user, freetID)
	assert.ErrorIs(t, err, utils.AlreadyReacted)

	// other kinds are independent
	_, err = store.AddReaction(ctx, models.LikeReaction, user, freetID)
	assert.NoError(t, err)

	found, err := store.FindReaction(ctx, models.DisapproveReaction, user, freetID)
	require.NoError(t, err)
	assert.Nil(t, found)

	removed, err := store.DeleteReaction(ctx, models.ApproveReaction, user, freetID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.DeleteReaction(ctx, models.ApproveReaction, user, freetID)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, store.DeleteReactionsForFreet(ctx, freetID))
	likes, err := store.ListReactionsByUser(ctx, models.LikeReaction, user)
	require.NoError(t, err)
	assert.Empty(t, likes)
}

func TestMemoryStoreListReactionsForFreet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	freetID, other := uuid.New(), uuid.New()
	first, second := uuid.New(), uuid.New()

	_, err := store.AddReaction(ctx, models.ApproveReaction, first, freetID)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = store.AddReaction(ctx, models.ApproveReaction, second, freetID)
	require.NoError(t, err)
	_, err = store.AddReaction(ctx, models.DisapproveReaction, first, freetID)
	require.NoError(t, err)
	_, err = store.AddReaction(ctx, models.ApproveReaction, first, other)
	require.NoError(t, err)

	approvals, err := store.ListReactionsForFreet(ctx, models.ApproveReaction, freetID)
	require.NoError(t, err)
	require.Len(t, approvals, 2)
	assert.Equal(t, first, approvals[0].UserID)
	assert.Equal(t, second, approvals[1].UserID)

	none, err := store.ListReactionsForFreet(ctx, models.LikeReaction, freetID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStoreLedgerContributions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	freetID := uuid.New()
	alice, bob := uuid.New(), uuid.New()
	url := "https://example.com/a"

	link, err := store.AddContribution(ctx, freetID, models.Approve, url, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, link.Count)

	// idempotent per user
	link, err = store.AddContribution(ctx, freetID, models.Approve, url, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, link.Count)

	link, err = store.AddContribution(ctx, freetID, models.Approve, url, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, link.Count)
	assert.Equal(t, []uuid.UUID{alice, bob}, link.Users)

	// polarities are separate entries
	other, err := store.GetLink(ctx, freetID, models.Disapprove, url)
	require.NoError(t, err)
	assert.Nil(t, other)

	link, err = store.RemoveContribution(ctx, freetID, models.Approve, url, alice)
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, 1, link.Count)

	link, err = store.RemoveContribution(ctx, freetID, models.Approve, url, alice)
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, 1, link.Count)

	link, err = store.RemoveContribution(ctx, freetID, models.Approve, url, bob)
	require.NoError(t, err)
	assert.Nil(t, link)

	got, err := store.GetLink(ctx, freetID, models.Approve, url)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreListLinksOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	freetID := uuid.New()

	add := func(url string, users int) {
		for i := 0; i < users; i++ {
			_, err := store.AddContribution(ctx, freetID, models.Approve, url, uuid.New())
			require.NoError(t, err)
		}
	}
	add("https://c.example", 2)
	add("https://a.example", 2)
	add("https://b.example", 3)
	add("https://d.example", 1)

	links, err := store.ListLinks(ctx, freetID, models.Approve)
	require.NoError(t, err)

	urls := make([]string, 0, len(links))
	for _, l := range links {
		urls = append(urls, l.URL)
	}
	assert.Equal(t, []string{"https://b.example", "https://a.example", "https://c.example", "https://d.example"}, urls)
}

func TestMemoryStoreConcurrentContributions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	freetID := uuid.New()
	url := "https://example.com"

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AddContribution(ctx, freetID, models.Disapprove, url, uuid.New())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	link, err := store.GetLink(ctx, freetID, models.Disapprove, url)
	require.NoError(t, err)
	assert.Equal(t, 50, link.Count)
	assert.Len(t, link.Users, 50)
}

func TestMemoryStoreListFreetsSorting(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	author := uuid.New()

	base := time.Now().UTC()
	quiet := models.NewFreet(author, "quiet")
	quiet.DateModified = base.Add(2 * time.Minute)
	popular := models.NewFreet(author, "popular")
	popular.DateModified = base
	popular.Likes = 5
	credible := models.NewFreet(uuid.New(), "credible")
	credible.DateModified = base.Add(time.Minute)
	credible.Approves = 3

	for _, f := range []*models.Freet{quiet, popular, credible} {
		require.NoError(t, store.CreateFreet(ctx, f))
	}

	recent, err := store.ListFreets(ctx, SortRecent, 0)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{quiet.ID, credible.ID, popular.ID}, freetIDs(recent))

	byLikes, err := store.ListFreets(ctx, SortPopular, 1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{popular.ID}, freetIDs(byLikes))

	byApproves, err := store.ListFreets(ctx, SortCredible, 1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{credible.ID}, freetIDs(byApproves))

	mine, err := store.ListFreetsByAuthor(ctx, author, 0)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{quiet.ID, popular.ID}, freetIDs(mine))
}

func freetIDs(freets []*models.Freet) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(freets))
	for _, f := range freets {
		ids = append(ids, f.ID)
	}
	return ids
}
