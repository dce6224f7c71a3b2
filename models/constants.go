package models

// Judgment is the decision a user records about a candidate profile.
type Judgment string

const (
	JudgmentPass     Judgment = "pass"
	JudgmentFriend   Judgment = "friend"
	JudgmentRomantic Judgment = "romantic"
)

// ParseJudgment validates a raw action string from the client.
func ParseJudgment(s string) (Judgment, bool) {
	switch Judgment(s) {
	case JudgmentPass, JudgmentFriend, JudgmentRomantic:
		return Judgment(s), true
	}
	return "", false
}

// RequestType is the flavour of a directional match request. Pass never
// produces a request, so only friend and romantic appear here.
type RequestType string

const (
	RequestTypeFriend   RequestType = "friend"
	RequestTypeRomantic RequestType = "romantic"
)

// Match submission outcomes returned to the client.
const (
	StatusRecorded = "recorded"
	StatusPending  = "pending"
	StatusMatched  = "matched"
)
