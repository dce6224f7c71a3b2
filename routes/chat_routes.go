package routes

import (
	"net/http"

	"spark_server/controllers"
	"spark_server/services"

	"github.com/gorilla/mux"
)

// RegisterChatRoutes wires the chat listing and message endpoints.
func RegisterChatRoutes(r *mux.Router, chatService *services.ChatService, matchService *services.MatchService) {
	controller := controllers.NewChatController(chatService, matchService)

	chatRouter := r.PathPrefix("/api/chats").Subrouter()
	chatRouter.HandleFunc("/{chatId}/messages", controller.HandleGetMessages).Methods(http.MethodGet)
	chatRouter.HandleFunc("/{chatId}/messages", controller.HandleSendMessage).Methods(http.MethodPost)
	chatRouter.HandleFunc("/{userId}", controller.HandleListChats).Methods(http.MethodGet)
}
