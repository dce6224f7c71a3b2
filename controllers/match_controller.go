package controllers

import (
	"net/http"

	"spark_server/apperrors"
	"spark_server/services"

	"github.com/gorilla/mux"
)

// MatchController serves the match read model and unmatch.
type MatchController struct {
	MatchService *services.MatchService
}

// NewMatchController initializes the controller
func NewMatchController(service *services.MatchService) *MatchController {
	return &MatchController{MatchService: service}
}

// HandleGetCurrentMatches - live matches with counterpart profiles
func (c *MatchController) HandleGetCurrentMatches(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	matches, err := c.MatchService.GetCurrentMatches(r.Context(), userID)
	if err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

// HandleUnmatch - either participant dissolves the match and its chat
func (c *MatchController) HandleUnmatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]
	userID := r.URL.Query().Get("userId")

	if err := c.MatchService.Unmatch(r.Context(), userID, matchID); err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Match deleted"})
}
