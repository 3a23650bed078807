package model

// Display name and title limits, matching what the web clients enforce.
const (
	MaxGameNameLen    = 100
	MaxPlayerNameLen  = 50
	MaxIssueTitleLen  = 200
	MaxIssueDescLen   = 500
	AnonymousName     = "Anonyme"
	SpectatorFallback = "Spectateur"
)

// Participant is a voting member of a session. Exactly one participant
// holds the facilitator role while the session has any participants.
type Participant struct {
	ConnID        string `json:"id"`
	Name          string `json:"name"`
	IsFacilitator bool   `json:"isFacilitator"`
}

// Spectator observes a session without voting rights.
type Spectator struct {
	ConnID string `json:"id"`
	Name   string `json:"name"`
}

// Vote is one participant's current pick for the active issue.
type Vote struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

// Session is the aggregate root of one planning-poker room. It is owned by
// the storage.Store and mutated only through poker.Machine transitions,
// which the gateway serializes. JSON tags are the wire format the web
// clients consume and the shape persisted to the data file.
type Session struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Facilitator string `json:"facilitator"`

	// FacilitatorConnID references the connection currently holding the
	// facilitator role. Reassigned on disconnect, empty only when the
	// session has no participants.
	FacilitatorConnID string `json:"facilitatorSocketId"`

	Cards             []string         `json:"cards"`
	Issues            []*Issue         `json:"issues"`
	CurrentIssueIndex int              `json:"currentIssueIndex"`
	Votes             map[string]*Vote `json:"votes"`

	// VoteOrder tracks connection ids in first-vote order. Go maps do not
	// keep insertion order, and the reveal estimate picks the first
	// non-"?" vote cast. Re-voting keeps the original position.
	VoteOrder []string `json:"-"`

	Revealed bool `json:"revealed"`

	// VoteTimerEnd is an advisory countdown deadline in unix milliseconds,
	// surfaced for client display only. Nil when no countdown is active.
	VoteTimerEnd *int64 `json:"voteTimerEnd"`

	AutoRevealOnTimerEnd bool `json:"autoRevealOnTimerEnd"`

	Participants []*Participant `json:"participants"`
	Spectators   []*Spectator   `json:"spectators"`
}

// Occupancy counts every connection currently in the session.
func (s *Session) Occupancy() int {
	return len(s.Participants) + len(s.Spectators)
}

// ParticipantByConn returns the participant entry for a connection id.
func (s *Session) ParticipantByConn(connID string) *Participant {
	for _, p := range s.Participants {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// SpectatorByConn returns the spectator entry for a connection id.
func (s *Session) SpectatorByConn(connID string) *Spectator {
	for _, sp := range s.Spectators {
		if sp.ConnID == connID {
			return sp
		}
	}
	return nil
}

// MemberName resolves the display name of any session member, participant
// or spectator. Returns "" when the connection is not in the session.
func (s *Session) MemberName(connID string) (string, bool) {
	if p := s.ParticipantByConn(connID); p != nil {
		return p.Name, true
	}
	if sp := s.SpectatorByConn(connID); sp != nil {
		return sp.Name, true
	}
	return "", false
}

// CurrentIssue returns the issue at the navigation cursor, or nil when the
// cursor sits past the end of the queue ("no issue selected").
func (s *Session) CurrentIssue() *Issue {
	if s.CurrentIssueIndex >= 0 && s.CurrentIssueIndex < len(s.Issues) {
		return s.Issues[s.CurrentIssueIndex]
	}
	return nil
}

// ClearVolatile resets every field tied to live connections. Called when
// sessions are loaded from the data file at startup, since connections do
// not survive a restart.
func (s *Session) ClearVolatile() {
	s.Participants = []*Participant{}
	s.Spectators = []*Spectator{}
	s.Votes = map[string]*Vote{}
	s.VoteOrder = nil
	s.FacilitatorConnID = ""
	s.Revealed = false
	s.VoteTimerEnd = nil
	if len(s.Cards) == 0 {
		s.Cards = Preset(DefaultPreset)
	}
}
