package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"spark_server/apperrors"
	"spark_server/models"
	"spark_server/services"

	"github.com/gorilla/mux"
)

// UserProfileController exposes profile upsert/read and candidate discovery.
type UserProfileController struct {
	UserProfileService *services.UserProfileService
}

// NewUserProfileController initializes the controller
func NewUserProfileController(service *services.UserProfileService) *UserProfileController {
	return &UserProfileController{UserProfileService: service}
}

// HandleUpsertProfile - create or replace a profile
func (c *UserProfileController) HandleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	var profile models.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		apperrors.Write(w, apperrors.InvalidArgument("invalid request body"))
		return
	}

	stored, err := c.UserProfileService.AddUserProfile(r.Context(), profile)
	if err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stored)
}

// HandleGetProfile - public projection of a profile
func (c *UserProfileController) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	profile, err := c.UserProfileService.GetPublicProfile(r.Context(), userID)
	if err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// HandleGetCandidates - paginated discovery feed excluding seen users
func (c *UserProfileController) HandleGetCandidates(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	cursor := r.URL.Query().Get("cursor")

	pageSize := 10
	if sizeStr := r.URL.Query().Get("pageSize"); sizeStr != "" {
		if n, err := strconv.Atoi(sizeStr); err == nil && n > 0 {
			pageSize = n
		}
	}

	profiles, nextCursor, err := c.UserProfileService.GetCandidateProfiles(r.Context(), userID, pageSize, cursor)
	if err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profiles":   profiles,
		"nextCursor": nextCursor,
	})
}
