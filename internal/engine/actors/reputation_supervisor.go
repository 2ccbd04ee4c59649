package actors

import (
	"fritter/internal/reputation"
	"fritter/internal/utils"
	"log"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// pendingMsg is a request held back while its freet's actor drains.
type pendingMsg struct {
	message interface{}
	sender  *actor.PID
}

// ReputationSupervisor spawns one FreetActor per freet on first use and
// forwards every FreetScoped message to it, keeping the original sender so
// the freet actor answers the caller directly.
//
// A freet actor that asks to passivate is poisoned, so it still answers
// everything already in its mailbox. Until it terminates, new messages for
// that freet are buffered and then replayed to a fresh actor; a freet never
// has two live actors.
type ReputationSupervisor struct {
	children    map[uuid.UUID]*actor.PID
	freetOf     map[string]uuid.UUID // child PID id -> freet
	draining    map[uuid.UUID][]pendingMsg
	coordinator *reputation.Coordinator
	publisher   EventPublisher
	metrics     *utils.MetricsCollector
	opTimeout   time.Duration
	idleTimeout time.Duration
}

func NewReputationSupervisor(coordinator *reputation.Coordinator, publisher EventPublisher,
	metrics *utils.MetricsCollector, opTimeout time.Duration) actor.Actor {
	return &ReputationSupervisor{
		children:    make(map[uuid.UUID]*actor.PID),
		freetOf:     make(map[string]uuid.UUID),
		draining:    make(map[uuid.UUID][]pendingMsg),
		coordinator: coordinator,
		publisher:   publisher,
		metrics:     metrics,
		opTimeout:   opTimeout,
		idleTimeout: DefaultIdleTimeout,
	}
}

func (s *ReputationSupervisor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("ReputationSupervisor started")

	case *actor.Stopping:
		log.Printf("ReputationSupervisor stopping with %d freet actor(s)", len(s.children))

	case *actor.Terminated:
		s.terminated(context, msg.Who)

	case *GetCountsMsg:
		context.Respond(len(s.children))

	case *PassivateMsg:
		pid, ok := s.children[msg.FreetID]
		if !ok || pid.Id != msg.PID.Id {
			return
		}
		if _, already := s.draining[msg.FreetID]; already {
			return
		}
		s.draining[msg.FreetID] = nil
		context.Poison(pid)

	case FreetScoped:
		freetID := msg.GetFreetID()
		if pending, ok := s.draining[freetID]; ok {
			s.draining[freetID] = append(pending, pendingMsg{message: msg, sender: context.Sender()})
			return
		}
		context.Forward(s.child(context, freetID))

	default:
		log.Printf("ReputationSupervisor: Unknown message type: %T", msg)
	}
}

func (s *ReputationSupervisor) terminated(context actor.Context, who *actor.PID) {
	freetID, ok := s.freetOf[who.Id]
	if !ok {
		return
	}
	delete(s.freetOf, who.Id)
	if pid, ok := s.children[freetID]; ok && pid.Id == who.Id {
		delete(s.children, freetID)
	}

	pending, wasDraining := s.draining[freetID]
	delete(s.draining, freetID)
	if !wasDraining || len(pending) == 0 {
		return
	}

	pid := s.child(context, freetID)
	for _, p := range pending {
		if p.sender == nil {
			context.Send(pid, p.message)
			continue
		}
		context.RequestWithCustomSender(pid, p.message, p.sender)
	}
}

func (s *ReputationSupervisor) child(context actor.Context, freetID uuid.UUID) *actor.PID {
	if pid, ok := s.children[freetID]; ok {
		return pid
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewFreetActor(freetID, s.coordinator, s.publisher, s.metrics, s.opTimeout, s.idleTimeout)
	})
	pid := context.Spawn(props)
	s.children[freetID] = pid
	s.freetOf[pid.Id] = freetID
	return pid
}
