package actors

import (
	stdcontext "context"
	"fritter/internal/models"
	"fritter/internal/reputation"
	"fritter/internal/utils"
	"log"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// DefaultIdleTimeout is how long a freet actor lives without traffic.
const DefaultIdleTimeout = 2 * time.Minute

// FreetActor owns every mutation of a single freet. Its mailbox is the
// per-freet lock: two approvals of the same freet never interleave, while
// different freets proceed in parallel.
type FreetActor struct {
	freetID     uuid.UUID
	coordinator *reputation.Coordinator
	publisher   EventPublisher
	metrics     *utils.MetricsCollector
	opTimeout   time.Duration
	idleTimeout time.Duration
	passivating bool
}

func NewFreetActor(freetID uuid.UUID, coordinator *reputation.Coordinator, publisher EventPublisher,
	metrics *utils.MetricsCollector, opTimeout, idleTimeout time.Duration) actor.Actor {
	return &FreetActor{
		freetID:     freetID,
		coordinator: coordinator,
		publisher:   publisher,
		metrics:     metrics,
		opTimeout:   opTimeout,
		idleTimeout: idleTimeout,
	}
}

func (a *FreetActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("FreetActor: started for freet %s", a.freetID)
		if a.idleTimeout > 0 {
			context.SetReceiveTimeout(a.idleTimeout)
		}

	case *actor.ReceiveTimeout:
		a.passivate(context)

	case *actor.Stopping:
		log.Printf("FreetActor: stopping for freet %s", a.freetID)

	case *ApproveMsg:
		a.handle(context, "approve", func(ctx stdcontext.Context) (interface{}, error) {
			return a.coordinator.Approve(ctx, msg.ActorID, msg.FreetID)
		}, func(result interface{}) *models.ReputationEvent {
			return a.event("approved", msg.ActorID, models.Approve, "", 0, result.(*models.ReputationSummary))
		})

	case *DisapproveMsg:
		a.handle(context, "disapprove", func(ctx stdcontext.Context) (interface{}, error) {
			return a.coordinator.Disapprove(ctx, msg.ActorID, msg.FreetID)
		}, func(result interface{}) *models.ReputationEvent {
			return a.event("disapproved", msg.ActorID, models.Disapprove, "", 0, result.(*models.ReputationSummary))
		})

	case *RetractMsg:
		a.handle(context, "retract", func(ctx stdcontext.Context) (interface{}, error) {
			return a.coordinator.Retract(ctx, msg.ActorID, msg.FreetID, msg.Polarity)
		}, func(result interface{}) *models.ReputationEvent {
			return a.event("retracted", msg.ActorID, msg.Polarity, "", 0, result.(*models.ReputationSummary))
		})

	case *AttachLinkMsg:
		a.handle(context, "attach_link", func(ctx stdcontext.Context) (interface{}, error) {
			return a.coordinator.AttachLink(ctx, msg.ActorID, msg.FreetID, msg.Polarity, msg.URL)
		}, func(result interface{}) *models.ReputationEvent {
			link := result.(*models.LinkResult)
			return a.event("link_attached", msg.ActorID, link.Polarity, link.URL, link.Count, nil)
		})

	case *DetachLinkMsg:
		a.handle(context, "detach_link", func(ctx stdcontext.Context) (interface{}, error) {
			return a.coordinator.DetachLink(ctx, msg.ActorID, msg.FreetID, msg.Polarity, msg.URL)
		}, func(result interface{}) *models.ReputationEvent {
			link := result.(*models.LinkResult)
			return a.event("link_detached", msg.ActorID, link.Polarity, link.URL, link.Count, nil)
		})

	case *LikeMsg:
		a.handle(context, "like", func(ctx stdcontext.Context) (interface{}, error) {
			return a.coordinator.Like(ctx, msg.ActorID, msg.FreetID)
		}, func(result interface{}) *models.ReputationEvent {
			return a.event("liked", msg.ActorID, models.NoPolarity, "", 0, result.(*models.ReputationSummary))
		})

	case *UnlikeMsg:
		a.handle(context, "unlike", func(ctx stdcontext.Context) (interface{}, error) {
			return a.coordinator.Unlike(ctx, msg.ActorID, msg.FreetID)
		}, func(result interface{}) *models.ReputationEvent {
			return a.event("unliked", msg.ActorID, models.NoPolarity, "", 0, result.(*models.ReputationSummary))
		})

	case *ReconcileMsg:
		a.handle(context, "reconcile", func(ctx stdcontext.Context) (interface{}, error) {
			return a.coordinator.Reconcile(ctx, msg.FreetID)
		}, nil)

	case *UpdateFreetMsg:
		a.handle(context, "update_freet", func(ctx stdcontext.Context) (interface{}, error) {
			return a.coordinator.UpdateFreet(ctx, msg.ActorID, msg.FreetID, msg.Content)
		}, func(result interface{}) *models.ReputationEvent {
			return a.event("freet_updated", msg.ActorID, models.NoPolarity, "", 0, result.(*models.Freet).Summary(uuid.Nil))
		})

	case *DeleteFreetMsg:
		err := a.handle(context, "delete_freet", func(ctx stdcontext.Context) (interface{}, error) {
			if err := a.coordinator.DeleteFreet(ctx, msg.ActorID, msg.FreetID); err != nil {
				return nil, err
			}
			return &models.StatusResponse{Success: true, Message: "freet deleted"}, nil
		}, func(result interface{}) *models.ReputationEvent {
			return a.event("freet_deleted", msg.ActorID, models.NoPolarity, "", 0, nil)
		})
		if err == nil {
			a.passivate(context)
		}

	default:
		log.Printf("FreetActor: Unknown message type: %T", msg)
	}
}

// handle runs one operation to completion, records its latency and outcome,
// publishes the event on success and responds with the result or an
// *utils.AppError.
func (a *FreetActor) handle(context actor.Context, op string,
	exec func(stdcontext.Context) (interface{}, error),
	event func(result interface{}) *models.ReputationEvent) error {
	startTime := time.Now()

	ctx, cancel := stdcontext.WithTimeout(stdcontext.Background(), a.opTimeout)
	defer cancel()

	result, err := exec(ctx)
	a.metrics.AddOperationLatency(op, time.Since(startTime))
	if err != nil {
		a.metrics.RecordOperationError(op, err)
		if !utils.IsPrecondition(err) {
			log.Printf("FreetActor: %s on freet %s failed: %v", op, a.freetID, err)
		}
		context.Respond(utils.AsAppError(err))
		if utils.IsErrorCode(err, utils.ErrPostNotFound) {
			a.passivate(context)
		}
		return err
	}

	if a.publisher != nil && event != nil {
		a.publisher.Publish(event(result))
	}
	context.Respond(result)
	return nil
}

func (a *FreetActor) event(eventType string, actorID uuid.UUID, polarity models.Polarity, url string, count int,
	summary *models.ReputationSummary) *models.ReputationEvent {
	return &models.ReputationEvent{
		Type:      eventType,
		FreetID:   a.freetID,
		ActorID:   actorID,
		Polarity:  polarity,
		URL:       url,
		Count:     count,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	}
}

// passivate asks the supervisor to retire this actor. The supervisor poisons
// it, so messages already queued are still answered.
func (a *FreetActor) passivate(context actor.Context) {
	if a.passivating {
		return
	}
	a.passivating = true
	context.CancelReceiveTimeout()
	context.Send(context.Parent(), &PassivateMsg{FreetID: a.freetID, PID: context.Self()})
}
