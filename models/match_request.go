package models

// MatchRequest is one user's directional interest in another. The table key
// is the ordered pair itself, so re-judging the same user overwrites the
// previous request instead of stacking a second one.
type MatchRequest struct {
	RequestID string      `dynamodbav:"requestId" json:"requestId"` // Partition Key: "<from>_<to>"
	From      string      `dynamodbav:"from" json:"from"`
	To        string      `dynamodbav:"to" json:"to"`
	Type      RequestType `dynamodbav:"type" json:"type"`
	CreatedAt string      `dynamodbav:"createdAt" json:"createdAt"`
}

// RequestKey builds the deterministic id for the ordered pair (from, to).
func RequestKey(from, to string) string {
	return from + "_" + to
}

// RequestWithProfile joins a request with the counterpart's public profile
// for the incoming/outgoing listings.
type RequestWithProfile struct {
	RequestID string        `json:"requestId"`
	Type      RequestType   `json:"type"`
	CreatedAt string        `json:"createdAt"`
	User      PublicProfile `json:"user"`
}

// MatchRequestsTable is the DynamoDB table name for directional requests
const MatchRequestsTable = "MatchRequests"

// GSIs over the request directions, used by the listing read models.
const (
	RequestFromIndex = "from-index" // PK: from
	RequestToIndex   = "to-index"   // PK: to
)
