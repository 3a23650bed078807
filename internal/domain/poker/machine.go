// Package poker holds the session state machine: one pure transition per
// client action. Transitions mutate a Session and report either success, a
// validation error the gateway surfaces to the acting connection, or a
// silent rejection (see model errors). They never touch I/O, timers or
// connections; the gateway serializes calls and owns every side effect.
package poker

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/voterlab/poker-session-service/internal/domain/model"
)

// Machine applies session transitions. Safe for use from a single
// goroutine at a time, which the gateway guarantees.
type Machine struct {
	now        func() time.Time
	newIssueID func() string
}

func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		now:        time.Now,
		newIssueID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IssueSeed is an issue supplied with a create request, before validation.
type IssueSeed struct {
	Title       string
	Description string
}

// Create builds a new session with the creator as sole participant and
// facilitator. Supplied issues with a blank or oversized title are dropped;
// descriptions are truncated. The session id is assigned by the store.
func (m *Machine) Create(connID, gameName, facilitatorName string, seeds []IssueSeed, cardPreset string) (*model.Session, error) {
	if !validName(gameName, model.MaxGameNameLen) || !validName(facilitatorName, model.MaxPlayerNameLen) {
		return nil, model.ErrCreateInvalid
	}

	issues := make([]*model.Issue, 0, len(seeds))
	for _, seed := range seeds {
		if !validIssueTitle(seed.Title) {
			continue
		}
		issues = append(issues, &model.Issue{
			ID:          m.newIssueID(),
			Title:       truncate(strings.TrimSpace(seed.Title), model.MaxIssueTitleLen),
			Description: truncate(strings.TrimSpace(seed.Description), model.MaxIssueDescLen),
		})
	}

	facilitator := truncate(strings.TrimSpace(facilitatorName), model.MaxPlayerNameLen)
	return &model.Session{
		Name:              truncate(strings.TrimSpace(gameName), model.MaxGameNameLen),
		Facilitator:       facilitator,
		FacilitatorConnID: connID,
		Cards:             model.Preset(cardPreset),
		Issues:            issues,
		Votes:             map[string]*model.Vote{},
		Participants: []*model.Participant{
			{ConnID: connID, Name: facilitator, IsFacilitator: true},
		},
		Spectators: []*model.Spectator{},
	}, nil
}

// Join adds a connection to the session as participant or spectator. The
// first participant to ever join an empty session receives the facilitator
// role. A connection already in the session is moved, not duplicated.
func (m *Machine) Join(s *model.Session, connID, playerName string, asSpectator bool) error {
	if !asSpectator && !validName(playerName, model.MaxPlayerNameLen) {
		return model.ErrNameRequired
	}
	name := truncate(strings.TrimSpace(playerName), model.MaxPlayerNameLen)

	if !asSpectator && name != "" {
		for _, p := range s.Participants {
			if p.ConnID != connID && strings.EqualFold(p.Name, name) {
				return model.ErrNameTaken
			}
		}
	}

	// Re-joining from a live connection replaces its previous membership,
	// keeping participants unique by connection id. The facilitator role
	// must survive the move when the rejoiner holds it; leave transfers it
	// away, so it is restored below.
	wasFacilitator := s.FacilitatorConnID == connID
	m.leave(s, connID)

	if asSpectator {
		if name == "" {
			name = model.SpectatorFallback
		}
		s.Spectators = append(s.Spectators, &model.Spectator{ConnID: connID, Name: name})
		return nil
	}

	if name == "" {
		name = model.AnonymousName
	}
	wasEmpty := len(s.Participants) == 0
	p := &model.Participant{ConnID: connID, Name: name}
	s.Participants = append(s.Participants, p)
	if wasEmpty || wasFacilitator {
		if prev := s.ParticipantByConn(s.FacilitatorConnID); prev != nil {
			prev.IsFacilitator = false
		}
		s.FacilitatorConnID = connID
		p.IsFacilitator = true
	}
	return nil
}

// Vote records or replaces the acting participant's vote for the active
// issue. Last vote wins; the first-vote position in the insertion order is
// kept so the reveal heuristic stays stable under re-votes.
func (m *Machine) Vote(s *model.Session, connID, value string) error {
	if s.SpectatorByConn(connID) != nil {
		return model.ErrSpectator
	}
	if s.Revealed {
		return model.ErrAlreadyRevealed
	}
	p := s.ParticipantByConn(connID)
	if p == nil {
		return model.ErrNotParticipant
	}
	if !contains(s.Cards, value) {
		return model.ErrUnknownCard
	}
	if _, voted := s.Votes[connID]; !voted {
		s.VoteOrder = append(s.VoteOrder, connID)
	}
	s.Votes[connID] = &model.Vote{Value: value, Name: p.Name}
	return nil
}

// Reveal makes all votes visible and locks voting for the active issue.
// When the current issue exists and has votes, its estimate becomes the
// first non-"?" vote in insertion order, or "?" if every vote is "?".
// This is deliberately not a consensus computation.
func (m *Machine) Reveal(s *model.Session, connID string) error {
	if err := m.requireFacilitator(s, connID); err != nil {
		return err
	}
	s.Revealed = true
	s.VoteTimerEnd = nil

	issue := s.CurrentIssue()
	if issue == nil || len(s.Votes) == 0 {
		return nil
	}
	estimate := "?"
	for _, id := range s.VoteOrder {
		if v, ok := s.Votes[id]; ok && v.Value != "?" {
			estimate = v.Value
			break
		}
	}
	issue.Estimate = &estimate
	return nil
}

// NextIssue advances the navigation cursor, saturating at one past the
// last issue ("no issue selected").
func (m *Machine) NextIssue(s *model.Session, connID string) error {
	if err := m.requireFacilitator(s, connID); err != nil {
		return err
	}
	return m.goTo(s, s.CurrentIssueIndex+1)
}

// PreviousIssue moves the navigation cursor back, saturating at zero.
func (m *Machine) PreviousIssue(s *model.Session, connID string) error {
	if err := m.requireFacilitator(s, connID); err != nil {
		return err
	}
	return m.goTo(s, s.CurrentIssueIndex-1)
}

// GoToIssue jumps to an arbitrary index, clamped into [0, len(issues)].
func (m *Machine) GoToIssue(s *model.Session, connID string, index int) error {
	if err := m.requireFacilitator(s, connID); err != nil {
		return err
	}
	return m.goTo(s, index)
}

// goTo applies any navigation: votes, revealed and the countdown are
// cleared unconditionally, even when the index does not change.
func (m *Machine) goTo(s *model.Session, index int) error {
	s.CurrentIssueIndex = clamp(index, 0, len(s.Issues))
	s.Votes = map[string]*model.Vote{}
	s.VoteOrder = nil
	s.Revealed = false
	s.VoteTimerEnd = nil
	return nil
}

// ResetVotes clears votes, the revealed flag and the countdown without
// moving the cursor or touching estimates.
func (m *Machine) ResetVotes(s *model.Session, connID string) error {
	if err := m.requireFacilitator(s, connID); err != nil {
		return err
	}
	s.Votes = map[string]*model.Vote{}
	s.VoteOrder = nil
	s.Revealed = false
	s.VoteTimerEnd = nil
	return nil
}

// Timer bounds in seconds. A non-numeric duration falls back to the
// default before clamping.
const (
	MinTimerSeconds     = 5
	MaxTimerSeconds     = 300
	DefaultTimerSeconds = 60
)

// StartVoteTimer arms the advisory countdown. The server never acts on its
// expiry; clients render it.
func (m *Machine) StartVoteTimer(s *model.Session, connID string, seconds int) error {
	if err := m.requireFacilitator(s, connID); err != nil {
		return err
	}
	if seconds == 0 {
		seconds = DefaultTimerSeconds
	}
	seconds = clamp(seconds, MinTimerSeconds, MaxTimerSeconds)
	end := m.now().UnixMilli() + int64(seconds)*1000
	s.VoteTimerEnd = &end
	return nil
}

// SetAutoReveal stores the advisory auto-reveal flag. No code path reveals
// on timer expiry; the flag only round-trips through snapshots so clients
// can render the toggle.
func (m *Machine) SetAutoReveal(s *model.Session, connID string, enabled bool) error {
	if err := m.requireFacilitator(s, connID); err != nil {
		return err
	}
	s.AutoRevealOnTimerEnd = enabled
	return nil
}

// AddIssue appends a new issue with no estimate.
func (m *Machine) AddIssue(s *model.Session, connID, title, description string) error {
	if err := m.requireFacilitator(s, connID); err != nil {
		return err
	}
	if !validIssueTitle(title) {
		return model.ErrInvalidIssue
	}
	s.Issues = append(s.Issues, &model.Issue{
		ID:          m.newIssueID(),
		Title:       truncate(strings.TrimSpace(title), model.MaxIssueTitleLen),
		Description: truncate(strings.TrimSpace(description), model.MaxIssueDescLen),
	})
	return nil
}

// EditIssue updates only the supplied fields of an issue, applying the
// same trim and truncation rules as creation.
func (m *Machine) EditIssue(s *model.Session, connID, issueID string, title, description *string) error {
	if err := m.requireFacilitator(s, connID); err != nil {
		return err
	}
	issue := findIssue(s, issueID)
	if issue == nil {
		return model.ErrIssueNotFound
	}
	if title != nil {
		issue.Title = truncate(strings.TrimSpace(*title), model.MaxIssueTitleLen)
	}
	if description != nil {
		issue.Description = truncate(strings.TrimSpace(*description), model.MaxIssueDescLen)
	}
	return nil
}

// DeleteIssue removes an issue and clamps the cursor back into range.
// Votes and the revealed flag are cleared; the countdown deliberately is
// not, preserving the behavior clients were built against.
func (m *Machine) DeleteIssue(s *model.Session, connID, issueID string) error {
	if err := m.requireFacilitator(s, connID); err != nil {
		return err
	}
	idx := -1
	for i, issue := range s.Issues {
		if issue.ID == issueID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.ErrIssueNotFound
	}
	s.Issues = append(s.Issues[:idx], s.Issues[idx+1:]...)
	if s.CurrentIssueIndex >= len(s.Issues) {
		s.CurrentIssueIndex = max(0, len(s.Issues)-1)
	}
	s.Votes = map[string]*model.Vote{}
	s.VoteOrder = nil
	s.Revealed = false
	return nil
}

// Reaction validates a private emoji reaction without mutating the
// session. Sender and target must both be in the session and distinct.
// Returns the sender's display name and the allow-listed emoji to deliver.
func (m *Machine) Reaction(s *model.Session, senderID, targetID, emoji string) (fromName, safeEmoji string, err error) {
	if targetID == "" || emoji == "" || targetID == senderID {
		return "", "", model.ErrBadReaction
	}
	fromName, ok := s.MemberName(senderID)
	if !ok {
		return "", "", model.ErrBadReaction
	}
	if _, ok := s.MemberName(targetID); !ok {
		return "", "", model.ErrBadReaction
	}
	return fromName, model.SafeEmoji(emoji), nil
}

// Disconnect removes a connection from the session, drops its vote and
// transfers the facilitator role to the earliest-joined remaining
// participant when needed. Reports whether the session changed.
func (m *Machine) Disconnect(s *model.Session, connID string) bool {
	return m.leave(s, connID)
}

func (m *Machine) leave(s *model.Session, connID string) bool {
	changed := false

	kept := s.Participants[:0]
	for _, p := range s.Participants {
		if p.ConnID == connID {
			changed = true
			continue
		}
		kept = append(kept, p)
	}
	s.Participants = kept

	spectators := s.Spectators[:0]
	for _, sp := range s.Spectators {
		if sp.ConnID == connID {
			changed = true
			continue
		}
		spectators = append(spectators, sp)
	}
	s.Spectators = spectators

	if _, ok := s.Votes[connID]; ok {
		delete(s.Votes, connID)
		order := s.VoteOrder[:0]
		for _, id := range s.VoteOrder {
			if id != connID {
				order = append(order, id)
			}
		}
		s.VoteOrder = order
	}

	if s.FacilitatorConnID == connID {
		s.FacilitatorConnID = ""
		if len(s.Participants) > 0 {
			next := s.Participants[0]
			s.FacilitatorConnID = next.ConnID
			next.IsFacilitator = true
		}
	}
	return changed
}

func (m *Machine) requireFacilitator(s *model.Session, connID string) error {
	if s.FacilitatorConnID != connID {
		return model.ErrNotFacilitator
	}
	return nil
}

// ValidPlayerName reports whether a display name passes the trim and
// length rules participants are held to. The gateway checks it before any
// store lookup so a bad name cannot probe session existence.
func ValidPlayerName(name string) bool {
	return validName(name, model.MaxPlayerNameLen)
}

func validName(name string, maxLen int) bool {
	trimmed := strings.TrimSpace(name)
	n := len([]rune(trimmed))
	return n > 0 && n <= maxLen
}

func validIssueTitle(title string) bool {
	return strings.TrimSpace(title) != "" && len([]rune(title)) <= model.MaxIssueTitleLen
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

func findIssue(s *model.Session, issueID string) *model.Issue {
	for _, issue := range s.Issues {
		if issue.ID == issueID {
			return issue
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
