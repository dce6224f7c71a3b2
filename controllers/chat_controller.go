package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"spark_server/apperrors"
	"spark_server/services"

	"github.com/gorilla/mux"
)

// ChatController exposes the chat listing and the append/read message
// surface. The listing is derived from matches, so it needs both services.
type ChatController struct {
	ChatService  *services.ChatService
	MatchService *services.MatchService
}

// NewChatController initializes the controller
func NewChatController(chatService *services.ChatService, matchService *services.MatchService) *ChatController {
	return &ChatController{ChatService: chatService, MatchService: matchService}
}

// HandleListChats - the user's chats with counterpart name and match type
func (c *ChatController) HandleListChats(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	chats, err := c.MatchService.GetChatSummaries(r.Context(), userID)
	if err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"chats": chats})
}

// HandleGetMessages - messages for a chat, timestamp ascending
func (c *ChatController) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatId"]
	userID := r.URL.Query().Get("userId")

	limit := int32(0)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = int32(n)
		}
	}

	messages, err := c.ChatService.GetMessages(r.Context(), userID, chatID, limit)
	if err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// HandleSendMessage - append a message to a chat
func (c *ChatController) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatId"]

	var request struct {
		UserID string `json:"userId"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		apperrors.Write(w, apperrors.InvalidArgument("invalid request body"))
		return
	}

	message, err := c.ChatService.SendMessage(r.Context(), request.UserID, chatID, request.Text)
	if err != nil {
		apperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, message)
}
