package domain

// ConversationTurn is one exchange in a multi-turn notebook query session.
// Turns live only in the executor's memory; continuity does not survive a
// process restart.
type ConversationTurn struct {
	Question   string
	Answer     string
	TurnNumber int
}

// Answer is the outcome of a notebook query, including the conversation
// handle the caller passes back for follow-ups.
type Answer struct {
	Text           string
	ConversationID string
	TurnNumber     int
	IsFollowUp     bool
}
