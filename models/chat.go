package models

// Chat is the message channel bound 1:1 to a match. It is created in the
// same transaction as its match and deleted with it on unmatch.
type Chat struct {
	ChatID    string   `dynamodbav:"chatId" json:"chatId"` // Partition Key
	MatchID   string   `dynamodbav:"matchId" json:"matchId"`
	Users     []string `dynamodbav:"users" json:"users"`
	CreatedAt string   `dynamodbav:"createdAt" json:"createdAt"`
}

// Contains reports whether uid participates in the chat.
func (c Chat) Contains(uid string) bool {
	for _, u := range c.Users {
		if u == uid {
			return true
		}
	}
	return false
}

// Message is a single chat entry. Messages are append-only: nothing in the
// system mutates one after it is written.
type Message struct {
	ChatID    string `dynamodbav:"chatId" json:"chatId"`       // Partition Key
	CreatedAt string `dynamodbav:"createdAt" json:"createdAt"` // Sort Key (RFC3339Nano)
	MessageID string `dynamodbav:"messageId" json:"messageId"`
	SenderID  string `dynamodbav:"senderId" json:"senderId"`
	Text      string `dynamodbav:"text" json:"text"`
}

// ChatSummary is the entry shape for a user's chat listing.
type ChatSummary struct {
	ChatID string      `json:"chatId"`
	Name   string      `json:"name"`
	Type   RequestType `json:"type"`
}

// Table names for chats and their messages
const (
	ChatsTable    = "Chats"
	MessagesTable = "Messages"
)
