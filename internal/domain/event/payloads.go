package event

import "github.com/voterlab/poker-session-service/internal/domain/model"

// GameCreatedPayload acknowledges a create to the creator alone.
type GameCreatedPayload struct {
	GameID string         `json:"gameId"`
	Game   *model.Session `json:"game"`
}

// GameJoinedPayload acknowledges a join to the joiner alone.
type GameJoinedPayload struct {
	Game *model.Session `json:"game"`
}

// EmojiPayload is a private reaction delivered to one connection. It never
// appears in session snapshots and is never persisted.
type EmojiPayload struct {
	Emoji    string `json:"emoji"`
	FromName string `json:"fromName"`
}
