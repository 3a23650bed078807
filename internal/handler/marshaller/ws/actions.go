package wsmarshaller

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Inbound action names.
const (
	ActionCreateGame     = "create-game"
	ActionJoinGame       = "join-game"
	ActionVote           = "vote"
	ActionRevealVotes    = "reveal-votes"
	ActionNextIssue      = "next-issue"
	ActionPreviousIssue  = "previous-issue"
	ActionGoToIssue      = "go-to-issue"
	ActionResetVotes     = "reset-votes"
	ActionStartVoteTimer = "start-vote-timer"
	ActionSetAutoReveal  = "set-auto-reveal"
	ActionAddIssue       = "add-issue"
	ActionEditIssue      = "edit-issue"
	ActionDeleteIssue    = "delete-issue"
	ActionSendEmoji      = "send-emoji"
)

// LooseString accepts strings and numbers, coercing numbers to their
// decimal form. Browser clients are sloppy about vote values and issue
// ids; the original runtime coerced them the same way.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = LooseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = LooseString(num.String())
		return nil
	}
	*s = ""
	return nil
}

// LooseInt accepts numbers and numeric strings; anything else decodes to
// zero so downstream clamping and defaulting apply.
type LooseInt int

func (i *LooseInt) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*i = LooseInt(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			*i = LooseInt(n)
			return nil
		}
	}
	*i = 0
	return nil
}

type IssuePayload struct {
	Title       LooseString `json:"title"`
	Description LooseString `json:"description"`
}

type CreateGamePayload struct {
	GameName        string         `json:"gameName"`
	FacilitatorName string         `json:"facilitatorName"`
	Issues          []IssuePayload `json:"issues"`
	CardPreset      string         `json:"cardPreset"`
}

type JoinGamePayload struct {
	GameID      string `json:"gameId"`
	PlayerName  string `json:"playerName"`
	AsSpectator bool   `json:"asSpectator"`
}

type VotePayload struct {
	Value LooseString `json:"value"`
}

type GoToIssuePayload struct {
	Index LooseInt `json:"index"`
}

type StartVoteTimerPayload struct {
	Seconds LooseInt `json:"seconds"`
}

type SetAutoRevealPayload struct {
	Enabled bool `json:"enabled"`
}

type AddIssuePayload struct {
	Title       LooseString `json:"title"`
	Description LooseString `json:"description"`
}

type EditIssuePayload struct {
	IssueID     LooseString  `json:"issueId"`
	Title       *LooseString `json:"title"`
	Description *LooseString `json:"description"`
}

type DeleteIssuePayload struct {
	IssueID LooseString `json:"issueId"`
}

type SendEmojiPayload struct {
	TargetSocketID string `json:"targetSocketId"`
	Emoji          string `json:"emoji"`
}
