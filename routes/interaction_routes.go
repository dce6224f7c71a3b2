package routes

import (
	"net/http"

	"spark_server/controllers"
	"spark_server/services"

	"github.com/gorilla/mux"
)

// RegisterInteractionRoutes wires the seen/judgment and request lifecycle
// endpoints.
func RegisterInteractionRoutes(r *mux.Router, service *services.InteractionService) {
	controller := controllers.NewInteractionController(service)

	interactionRouter := r.PathPrefix("/api/interactions").Subrouter()
	interactionRouter.HandleFunc("/markSeen", controller.HandleMarkSeen).Methods(http.MethodPost)
	interactionRouter.HandleFunc("/outgoing/{userId}", controller.HandleListOutgoing).Methods(http.MethodGet)
	interactionRouter.HandleFunc("/incoming/{userId}", controller.HandleListIncoming).Methods(http.MethodGet)
	interactionRouter.HandleFunc("/incoming/{userId}/count", controller.HandleCountIncoming).Methods(http.MethodGet)
	interactionRouter.HandleFunc("/requests/{requestId}", controller.HandleCancelOutgoing).Methods(http.MethodDelete)
	interactionRouter.HandleFunc("/requests/{requestId}/deny", controller.HandleDenyIncoming).Methods(http.MethodPost)
}
