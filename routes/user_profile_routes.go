package routes

import (
	"net/http"

	"spark_server/controllers"
	"spark_server/services"

	"github.com/gorilla/mux"
)

// RegisterUserProfileRoutes wires profile management and candidate discovery.
func RegisterUserProfileRoutes(r *mux.Router, service *services.UserProfileService) {
	controller := controllers.NewUserProfileController(service)

	profileRouter := r.PathPrefix("/api/profiles").Subrouter()
	profileRouter.HandleFunc("/candidates", controller.HandleGetCandidates).Methods(http.MethodGet)
	profileRouter.HandleFunc("", controller.HandleUpsertProfile).Methods(http.MethodPut, http.MethodPost)
	profileRouter.HandleFunc("/{userId}", controller.HandleGetProfile).Methods(http.MethodGet)
}
