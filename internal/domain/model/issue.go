package model

// Issue is one item in the session's estimation queue. Estimate stays nil
// until a reveal populates it with a card label.
type Issue struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Estimate    *string `json:"estimate"`
}
