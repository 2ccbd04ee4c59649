package handlers

import (
	"encoding/json"
	"fritter/internal/models"
	"net/http"

	"github.com/google/uuid"
)

// LinkRequest is the body of an attach request
type LinkRequest struct {
	URL string `json:"url"`
}

// RankedLinksResponse lists a freet's evidence for one polarity, most
// supported first.
type RankedLinksResponse struct {
	FreetID  uuid.UUID           `json:"freetId"`
	Polarity models.Polarity     `json:"polarity"`
	URLs     []string            `json:"urls"`
	Links    []models.LinkResult `json:"links"`
}

func pathPolarity(r *http.Request) (models.Polarity, error) {
	p, err := models.ParsePolarity(r.PathValue("polarity"))
	if err != nil {
		return models.NoPolarity, err
	}
	return p, nil
}

func (s *Server) HandleAttachLink() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, freetID, err := reputationTarget(r)
		if err != nil {
			writeError(w, err)
			return
		}
		p, err := pathPolarity(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		var req LinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "Invalid request format")
			return
		}

		result, err := s.Engine.AttachLink(r.Context(), userID, freetID, p, req.URL)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

// HandleDetachLink removes the caller's evidence link named by ?url=
func (s *Server) HandleDetachLink() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, freetID, err := reputationTarget(r)
		if err != nil {
			writeError(w, err)
			return
		}
		p, err := pathPolarity(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		url := r.URL.Query().Get("url")
		if url == "" {
			badRequest(w, "url query parameter is required")
			return
		}

		result, err := s.Engine.DetachLink(r.Context(), userID, freetID, p, url)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// HandleMostPopularLinks returns the ranked evidence for one polarity
func (s *Server) HandleMostPopularLinks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		freetID, err := freetIDFromPath(r)
		if err != nil {
			writeError(w, err)
			return
		}
		p, err := pathPolarity(r)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		links, err := s.Engine.RankedLinks(r.Context(), freetID, p)
		if err != nil {
			writeError(w, err)
			return
		}
		urls := make([]string, len(links))
		for i, l := range links {
			urls[i] = l.URL
		}
		writeJSON(w, http.StatusOK, RankedLinksResponse{
			FreetID:  freetID,
			Polarity: p,
			URLs:     urls,
			Links:    links,
		})
	}
}
