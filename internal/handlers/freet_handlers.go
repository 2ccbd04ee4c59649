package handlers

import (
	"encoding/json"
	"fritter/internal/database"
	"fritter/internal/models"
	"net/http"

	"github.com/google/uuid"
)

// FreetRequest is the body of create and update requests
type FreetRequest struct {
	Content string `json:"content"`
}

// HandleCreateFreet creates a freet authored by the caller
func (s *Server) HandleCreateFreet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUser(r)
		if err != nil {
			writeError(w, err)
			return
		}

		var req FreetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "Invalid request format")
			return
		}

		freet, err := s.Engine.CreateFreet(r.Context(), userID, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, freet)
	}
}

// HandleListFreets lists freets by ?sort=recent|popular|credible, or one
// author's freets with ?author=
func (s *Server) HandleListFreets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := listLimit(r)
		if err != nil {
			writeError(w, err)
			return
		}

		var freets []*models.Freet
		if author := r.URL.Query().Get("author"); author != "" {
			authorID, parseErr := uuid.Parse(author)
			if parseErr != nil {
				badRequest(w, "Invalid author ID format")
				return
			}
			freets, err = s.Engine.ListFreetsByAuthor(r.Context(), authorID, limit)
		} else {
			order := database.ParseFreetSort(r.URL.Query().Get("sort"))
			freets, err = s.Engine.ListFreets(r.Context(), order, limit)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, freets)
	}
}

func (s *Server) HandleGetFreet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		freetID, err := freetIDFromPath(r)
		if err != nil {
			writeError(w, err)
			return
		}

		freet, err := s.Engine.GetFreet(r.Context(), freetID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, freet)
	}
}

// HandleUpdateFreet replaces the content; author only
func (s *Server) HandleUpdateFreet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUser(r)
		if err != nil {
			writeError(w, err)
			return
		}
		freetID, err := freetIDFromPath(r)
		if err != nil {
			writeError(w, err)
			return
		}

		var req FreetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "Invalid request format")
			return
		}

		freet, err := s.Engine.UpdateFreet(r.Context(), userID, freetID, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, freet)
	}
}

// HandleDeleteFreet deletes a freet with its reactions and links; author only
func (s *Server) HandleDeleteFreet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUser(r)
		if err != nil {
			writeError(w, err)
			return
		}
		freetID, err := freetIDFromPath(r)
		if err != nil {
			writeError(w, err)
			return
		}

		if err := s.Engine.DeleteFreet(r.Context(), userID, freetID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.StatusResponse{Success: true, Message: "freet deleted"})
	}
}

// HandleLikedFreets lists the freets the caller has liked
func (s *Server) HandleLikedFreets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUser(r)
		if err != nil {
			writeError(w, err)
			return
		}

		freets, err := s.Engine.LikedFreets(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, freets)
	}
}
