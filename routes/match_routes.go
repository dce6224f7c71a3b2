package routes

import (
	"net/http"

	"spark_server/controllers"
	"spark_server/services"

	"github.com/gorilla/mux"
)

// RegisterMatchRoutes wires the match read model and unmatch endpoints.
func RegisterMatchRoutes(r *mux.Router, service *services.MatchService) {
	controller := controllers.NewMatchController(service)

	matchRouter := r.PathPrefix("/api/matches").Subrouter()
	matchRouter.HandleFunc("/current/{userId}", controller.HandleGetCurrentMatches).Methods(http.MethodGet)
	matchRouter.HandleFunc("/{matchId}", controller.HandleUnmatch).Methods(http.MethodDelete)
}
