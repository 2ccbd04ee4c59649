package handlers

import (
	"fritter/internal/models"
	"net/http"

	"github.com/google/uuid"
)

// reputationTarget resolves the caller and the freet named in the path.
func reputationTarget(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := currentUser(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	freetID, err := freetIDFromPath(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, freetID, nil
}

func (s *Server) handleReact(p models.Polarity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, freetID, err := reputationTarget(r)
		if err != nil {
			writeError(w, err)
			return
		}

		summary, err := s.Engine.React(r.Context(), userID, freetID, p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// HandleApprove records the caller's approval of a freet
func (s *Server) HandleApprove() http.HandlerFunc {
	return s.handleReact(models.Approve)
}

// HandleDisapprove records the caller's disapproval of a freet
func (s *Server) HandleDisapprove() http.HandlerFunc {
	return s.handleReact(models.Disapprove)
}

// HandleRetract withdraws the caller's reaction of the polarity in the path,
// along with every evidence link they attached under it.
func (s *Server) HandleRetract() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, freetID, err := reputationTarget(r)
		if err != nil {
			writeError(w, err)
			return
		}
		p, err := models.ParsePolarity(r.PathValue("polarity"))
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		summary, err := s.Engine.Retract(r.Context(), userID, freetID, p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func (s *Server) HandleReactionState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, freetID, err := reputationTarget(r)
		if err != nil {
			writeError(w, err)
			return
		}

		state, err := s.Engine.ReactionState(r.Context(), userID, freetID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func (s *Server) HandleLike() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, freetID, err := reputationTarget(r)
		if err != nil {
			writeError(w, err)
			return
		}

		summary, err := s.Engine.Like(r.Context(), userID, freetID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func (s *Server) HandleUnlike() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, freetID, err := reputationTarget(r)
		if err != nil {
			writeError(w, err)
			return
		}

		summary, err := s.Engine.Unlike(r.Context(), userID, freetID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// HandleReconcile rebuilds a freet's reactors and counters from its reaction
// records, and its evidence and tallies from the ledger.
func (s *Server) HandleReconcile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		freetID, err := freetIDFromPath(r)
		if err != nil {
			writeError(w, err)
			return
		}

		freet, err := s.Engine.Reconcile(r.Context(), freetID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, freet)
	}
}
