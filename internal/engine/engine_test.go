package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"fritter/internal/database"
	"fritter/internal/models"
	"fritter/internal/reputation"
	"fritter/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.ReputationEvent
}

func (p *recordingPublisher) Publish(event *models.ReputationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *database.MemoryStore, *recordingPublisher) {
	t.Helper()
	store := database.NewMemoryStore()
	metrics := utils.NewMetricsCollector()
	coord, err := reputation.NewCoordinator(store, reputation.Options{Metrics: metrics})
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	system := actor.NewActorSystem()
	t.Cleanup(func() { system.Shutdown() })

	return NewEngine(system, coord, publisher, metrics, 5*time.Second), store, publisher
}

func TestConcurrentApprovalsAreCountedExactly(t *testing.T) {
	ctx := context.Background()
	eng, store, _ := newTestEngine(t)

	freet, err := eng.CreateFreet(ctx, uuid.New(), "count me")
	require.NoError(t, err)

	const voters = 40
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actorID := uuid.New()
			var err error
			if i%2 == 0 {
				_, err = eng.Approve(ctx, actorID, freet.ID)
			} else {
				_, err = eng.Disapprove(ctx, actorID, freet.ID)
			}
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := store.GetFreet(ctx, freet.ID)
	require.NoError(t, err)
	assert.Equal(t, voters/2, stored.Approves)
	assert.Equal(t, voters/2, stored.Disapproves)
	assert.Len(t, stored.Approvers, voters/2)
	assert.Len(t, stored.Disapprovers, voters/2)
}

func TestConcurrentEvidenceKeepsTallyEqualToLedger(t *testing.T) {
	ctx := context.Background()
	eng, store, _ := newTestEngine(t)

	freet, err := eng.CreateFreet(ctx, uuid.New(), "sources please")
	require.NoError(t, err)

	approvers := make([]uuid.UUID, 20)
	for i := range approvers {
		approvers[i] = uuid.New()
		_, err := eng.Approve(ctx, approvers[i], freet.ID)
		require.NoError(t, err)
	}

	urls := []string{"https://a.example", "https://b.example"}
	var wg sync.WaitGroup
	for _, approver := range approvers {
		for _, url := range urls {
			wg.Add(1)
			go func(approver uuid.UUID, url string) {
				defer wg.Done()
				_, err := eng.AttachLink(ctx, approver, freet.ID, models.Approve, url)
				assert.NoError(t, err)
			}(approver, url)
		}
	}
	wg.Wait()

	stored, err := store.GetFreet(ctx, freet.ID)
	require.NoError(t, err)
	for _, url := range urls {
		link, err := store.GetLink(ctx, freet.ID, models.Approve, url)
		require.NoError(t, err)
		require.NotNil(t, link)
		assert.Equal(t, len(approvers), link.Count)
		assert.Equal(t, link.Count, stored.ApproveLinks[url])
	}

	ranked, err := eng.MostPopularLinks(ctx, freet.ID, models.Approve)
	require.NoError(t, err)
	assert.Equal(t, urls, ranked)
}

func TestEngineReturnsPreconditionErrors(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	actorID := uuid.New()

	freet, err := eng.CreateFreet(ctx, uuid.New(), "errors travel back")
	require.NoError(t, err)

	_, err = eng.Approve(ctx, actorID, freet.ID)
	require.NoError(t, err)

	_, err = eng.Disapprove(ctx, actorID, freet.ID)
	assert.ErrorIs(t, err, utils.AlreadyReacted)

	_, err = eng.AttachLink(ctx, actorID, freet.ID, models.Disapprove, "https://x.example")
	assert.ErrorIs(t, err, utils.WrongPolarity)

	_, err = eng.DetachLink(ctx, actorID, freet.ID, models.Approve, "https://x.example")
	assert.ErrorIs(t, err, utils.LinkNotFound)

	_, err = eng.Approve(ctx, actorID, uuid.New())
	assert.ErrorIs(t, err, utils.PostNotFound)
}

func TestEnginePublishesEventsForMutations(t *testing.T) {
	ctx := context.Background()
	eng, _, publisher := newTestEngine(t)
	actorID := uuid.New()

	freet, err := eng.CreateFreet(ctx, uuid.New(), "watch this")
	require.NoError(t, err)

	_, err = eng.Like(ctx, actorID, freet.ID)
	require.NoError(t, err)
	_, err = eng.Approve(ctx, actorID, freet.ID)
	require.NoError(t, err)
	_, err = eng.AttachLink(ctx, actorID, freet.ID, models.Approve, "https://a.example")
	require.NoError(t, err)
	_, err = eng.Retract(ctx, actorID, freet.ID, models.Approve)
	require.NoError(t, err)

	// failures publish nothing
	_, err = eng.Unlike(ctx, uuid.New(), freet.ID)
	require.Error(t, err)

	assert.Equal(t, []string{"liked", "approved", "link_attached", "retracted"}, publisher.types())

	count, err := eng.ActiveFreets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEngineFreetLifecycle(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	author := uuid.New()

	freet, err := eng.CreateFreet(ctx, author, "first draft")
	require.NoError(t, err)

	updated, err := eng.UpdateFreet(ctx, author, freet.ID, "second draft")
	require.NoError(t, err)
	assert.Equal(t, "second draft", updated.Content)

	err = eng.DeleteFreet(ctx, uuid.New(), freet.ID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrForbidden))

	require.NoError(t, eng.DeleteFreet(ctx, author, freet.ID))

	_, err = eng.GetFreet(ctx, freet.ID)
	assert.ErrorIs(t, err, utils.PostNotFound)

	_, err = eng.Like(ctx, uuid.New(), freet.ID)
	assert.ErrorIs(t, err, utils.PostNotFound)
}

func TestEngineRespectsCancelledContext(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Approve(ctx, uuid.New(), uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrActorTimeout))
}

func TestActorsForMissingFreetsArePassivated(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)

	freet, err := eng.CreateFreet(ctx, uuid.New(), "the only real freet")
	require.NoError(t, err)
	_, err = eng.Approve(ctx, uuid.New(), freet.ID)
	require.NoError(t, err)

	baseline, err := eng.ActiveFreets(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, baseline)

	for i := 0; i < 200; i++ {
		_, err := eng.Approve(ctx, uuid.New(), uuid.New())
		require.ErrorIs(t, err, utils.PostNotFound)
	}

	assert.Eventually(t, func() bool {
		count, err := eng.ActiveFreets(ctx)
		return err == nil && count == baseline
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRequestsDuringPassivationAreAnswered(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	missing := uuid.New()

	// every request lands on the same missing freet while its actor retires
	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Like(ctx, uuid.New(), missing)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, utils.PostNotFound)
	}
	assert.Eventually(t, func() bool {
		count, err := eng.ActiveFreets(ctx)
		return err == nil && count == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDeletedFreetActorIsPassivated(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	author := uuid.New()

	freet, err := eng.CreateFreet(ctx, author, "short lived")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Approve(ctx, uuid.New(), freet.ID)
			if err != nil {
				assert.ErrorIs(t, err, utils.PostNotFound)
			}
		}()
	}
	require.NoError(t, eng.DeleteFreet(ctx, author, freet.ID))
	wg.Wait()

	assert.Eventually(t, func() bool {
		count, err := eng.ActiveFreets(ctx)
		return err == nil && count == 0
	}, 2*time.Second, 10*time.Millisecond)

	_, err = eng.Approve(ctx, uuid.New(), freet.ID)
	assert.ErrorIs(t, err, utils.PostNotFound)
}
