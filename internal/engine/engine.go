package engine

import (
	"context"
	"fritter/internal/database"
	"fritter/internal/engine/actors"
	"fritter/internal/models"
	"fritter/internal/reputation"
	"fritter/internal/utils"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Engine is the entry point for the HTTP layer. Mutations travel through the
// reputation supervisor so that each freet's writes are serialized by its
// actor; reads go straight to the coordinator.
type Engine struct {
	system      *actor.ActorSystem
	supervisor  *actor.PID
	coordinator *reputation.Coordinator
	timeout     time.Duration
}

func NewEngine(system *actor.ActorSystem, coordinator *reputation.Coordinator, publisher actors.EventPublisher,
	metrics *utils.MetricsCollector, timeout time.Duration) *Engine {
	props := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewReputationSupervisor(coordinator, publisher, metrics, timeout)
	})
	supervisorPID := system.Root.Spawn(props)

	return &Engine{
		system:      system,
		supervisor:  supervisorPID,
		coordinator: coordinator,
		timeout:     timeout,
	}
}

// GetSupervisor returns the PID of the reputation supervisor
func (e *Engine) GetSupervisor() *actor.PID {
	return e.supervisor
}

// request sends msg to the supervisor and waits for the freet actor's reply,
// turning an *utils.AppError reply into an error.
func request[T any](ctx context.Context, e *Engine, msg interface{}) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, utils.NewAppError(utils.ErrActorTimeout, "request cancelled", err)
	}

	timeout := e.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	result, err := e.system.Root.RequestFuture(e.supervisor, msg, timeout).Result()
	if err != nil {
		return zero, utils.NewAppError(utils.ErrActorTimeout, "Actor communication timeout: reputation supervisor", err)
	}
	if appErr, ok := result.(*utils.AppError); ok {
		return zero, appErr
	}

	typed, ok := result.(T)
	if !ok {
		return zero, utils.NewAppError(utils.ErrMessageRejected, "unexpected reply from freet actor", nil)
	}
	return typed, nil
}

func (e *Engine) Approve(ctx context.Context, actorID, freetID uuid.UUID) (*models.ReputationSummary, error) {
	return request[*models.ReputationSummary](ctx, e, &actors.ApproveMsg{FreetID: freetID, ActorID: actorID})
}

func (e *Engine) Disapprove(ctx context.Context, actorID, freetID uuid.UUID) (*models.ReputationSummary, error) {
	return request[*models.ReputationSummary](ctx, e, &actors.DisapproveMsg{FreetID: freetID, ActorID: actorID})
}

// React dispatches to Approve or Disapprove.
func (e *Engine) React(ctx context.Context, actorID, freetID uuid.UUID, p models.Polarity) (*models.ReputationSummary, error) {
	if p == models.Approve {
		return e.Approve(ctx, actorID, freetID)
	}
	return e.Disapprove(ctx, actorID, freetID)
}

func (e *Engine) Retract(ctx context.Context, actorID, freetID uuid.UUID, p models.Polarity) (*models.ReputationSummary, error) {
	return request[*models.ReputationSummary](ctx, e, &actors.RetractMsg{FreetID: freetID, ActorID: actorID, Polarity: p})
}

func (e *Engine) AttachLink(ctx context.Context, actorID, freetID uuid.UUID, p models.Polarity, url string) (*models.LinkResult, error) {
	return request[*models.LinkResult](ctx, e, &actors.AttachLinkMsg{FreetID: freetID, ActorID: actorID, Polarity: p, URL: url})
}

func (e *Engine) DetachLink(ctx context.Context, actorID, freetID uuid.UUID, p models.Polarity, url string) (*models.LinkResult, error) {
	return request[*models.LinkResult](ctx, e, &actors.DetachLinkMsg{FreetID: freetID, ActorID: actorID, Polarity: p, URL: url})
}

func (e *Engine) Like(ctx context.Context, actorID, freetID uuid.UUID) (*models.ReputationSummary, error) {
	return request[*models.ReputationSummary](ctx, e, &actors.LikeMsg{FreetID: freetID, ActorID: actorID})
}

func (e *Engine) Unlike(ctx context.Context, actorID, freetID uuid.UUID) (*models.ReputationSummary, error) {
	return request[*models.ReputationSummary](ctx, e, &actors.UnlikeMsg{FreetID: freetID, ActorID: actorID})
}

func (e *Engine) Reconcile(ctx context.Context, freetID uuid.UUID) (*models.Freet, error) {
	return request[*models.Freet](ctx, e, &actors.ReconcileMsg{FreetID: freetID})
}

func (e *Engine) UpdateFreet(ctx context.Context, actorID, freetID uuid.UUID, content string) (*models.Freet, error) {
	return request[*models.Freet](ctx, e, &actors.UpdateFreetMsg{FreetID: freetID, ActorID: actorID, Content: content})
}

func (e *Engine) DeleteFreet(ctx context.Context, actorID, freetID uuid.UUID) error {
	_, err := request[*models.StatusResponse](ctx, e, &actors.DeleteFreetMsg{FreetID: freetID, ActorID: actorID})
	return err
}

// ActiveFreets is the number of freet actors currently alive.
func (e *Engine) ActiveFreets(ctx context.Context) (int, error) {
	return request[int](ctx, e, &actors.GetCountsMsg{})
}

// A new freet has no actor yet, so creation needs no serialization.
func (e *Engine) CreateFreet(ctx context.Context, authorID uuid.UUID, content string) (*models.Freet, error) {
	return e.coordinator.CreateFreet(ctx, authorID, content)
}

func (e *Engine) GetFreet(ctx context.Context, freetID uuid.UUID) (*models.Freet, error) {
	return e.coordinator.GetFreet(ctx, freetID)
}

func (e *Engine) ListFreets(ctx context.Context, order database.FreetSort, limit int) ([]*models.Freet, error) {
	return e.coordinator.ListFreets(ctx, order, limit)
}

func (e *Engine) ListFreetsByAuthor(ctx context.Context, authorID uuid.UUID, limit int) ([]*models.Freet, error) {
	return e.coordinator.ListFreetsByAuthor(ctx, authorID, limit)
}

func (e *Engine) MostPopularLinks(ctx context.Context, freetID uuid.UUID, p models.Polarity) ([]string, error) {
	return e.coordinator.MostPopularLinks(ctx, freetID, p)
}

func (e *Engine) RankedLinks(ctx context.Context, freetID uuid.UUID, p models.Polarity) ([]models.LinkResult, error) {
	return e.coordinator.RankedLinks(ctx, freetID, p)
}

func (e *Engine) ReactionState(ctx context.Context, actorID, freetID uuid.UUID) (*models.ReactionState, error) {
	return e.coordinator.ReactionState(ctx, actorID, freetID)
}

func (e *Engine) LikedFreets(ctx context.Context, actorID uuid.UUID) ([]*models.Freet, error) {
	return e.coordinator.LikedFreets(ctx, actorID)
}
