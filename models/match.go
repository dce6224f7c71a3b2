package models

import "sort"

// Match is a confirmed mutual interest between two users. The partition key
// is the sorted user pair, which makes "at most one live match per pair" a
// property of the table rather than of application bookkeeping.
type Match struct {
	PairKey   string      `dynamodbav:"pairKey" json:"-"` // Partition Key: sorted "<a>_<b>"
	MatchID   string      `dynamodbav:"matchId" json:"matchId"`
	User1     string      `dynamodbav:"user1" json:"-"` // lexicographically smaller id
	User2     string      `dynamodbav:"user2" json:"-"`
	Users     []string    `dynamodbav:"users" json:"users"`
	Type      RequestType `dynamodbav:"type" json:"type"`
	ChatID    string      `dynamodbav:"chatId" json:"chatId"`
	CreatedAt string      `dynamodbav:"createdAt" json:"createdAt"`
}

// PairKey builds the deterministic key for the unordered pair {a, b}.
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0] + "_" + ids[1]
}

// SortedPair returns the pair in key order.
func SortedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Counterpart returns the other participant of the match.
func (m Match) Counterpart(uid string) string {
	for _, u := range m.Users {
		if u != uid {
			return u
		}
	}
	return ""
}

// Contains reports whether uid participates in the match.
func (m Match) Contains(uid string) bool {
	for _, u := range m.Users {
		if u == uid {
			return true
		}
	}
	return false
}

// MatchWithProfile combines a match with the counterpart's profile data
type MatchWithProfile struct {
	MatchID   string        `json:"matchId"`
	Type      RequestType   `json:"type"`
	CreatedAt string        `json:"createdAt"`
	ChatID    *string       `json:"chatId"` // null when the chat lookup degrades
	User      PublicProfile `json:"user"`
}

// MatchesTable is the DynamoDB table name for confirmed matches
const MatchesTable = "Matches"

// GSIs over the sorted pair members and the public match id.
const (
	MatchUser1Index = "user1-index"   // PK: user1
	MatchUser2Index = "user2-index"   // PK: user2
	MatchIDIndex    = "matchId-index" // PK: matchId
)
