package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	"spark_server/apperrors"
	"spark_server/services"

	"github.com/gorilla/mux"
)

// InteractionController exposes the seen tracker, the formation engine and
// the request lifecycle actions.
type InteractionController struct {
	InteractionService *services.InteractionService
}

// NewInteractionController initializes the controller
func NewInteractionController(service *services.InteractionService) *InteractionController {
	return &InteractionController{InteractionService: service}
}

// HandleMarkSeen - record a judgment, possibly forming a match
func (c *InteractionController) HandleMarkSeen(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID     string `json:"userId"`
		SeenUserID string `json:"seenUserId"`
		Action     string `json:"action"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apperrors.Write(w, apperrors.InvalidArgument("invalid request body"))
		return
	}

	log.Printf("markSeen: %s -> %s (%s)", request.UserID, request.SeenUserID, request.Action)

	result, err := c.InteractionService.MarkSeen(r.Context(), request.UserID, request.SeenUserID, request.Action)
	if err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleListOutgoing - the user's live outgoing requests
func (c *InteractionController) HandleListOutgoing(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	outgoing, err := c.InteractionService.ListOutgoing(r.Context(), userID)
	if err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"outgoingMatches": outgoing})
}

// HandleListIncoming - the user's live incoming requests
func (c *InteractionController) HandleListIncoming(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	incoming, err := c.InteractionService.ListIncoming(r.Context(), userID)
	if err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"incomingMatches": incoming})
}

// HandleCountIncoming - cache-first incoming request count
func (c *InteractionController) HandleCountIncoming(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	count, err := c.InteractionService.CountIncoming(r.Context(), userID)
	if err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// HandleCancelOutgoing - creator withdraws their own request
func (c *InteractionController) HandleCancelOutgoing(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["requestId"]
	userID := r.URL.Query().Get("userId")

	if err := c.InteractionService.CancelOutgoing(r.Context(), userID, requestID); err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Match request canceled"})
}

// HandleDenyIncoming - recipient declines a request without touching the
// other direction
func (c *InteractionController) HandleDenyIncoming(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["requestId"]

	var request struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apperrors.Write(w, apperrors.InvalidArgument("invalid request body"))
		return
	}

	if err := c.InteractionService.DenyIncoming(r.Context(), request.UserID, requestID); err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Match request denied"})
}
