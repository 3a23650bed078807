package model

import "errors"

// ValidationError is a rejection of the acting connection's own request.
// It is surfaced to that connection as an `error` event; Message is the
// client-facing text, Code lets the client react programmatically (the
// session_not_found and session_expired codes signal it to navigate away).
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string { return e.Message }

// Validation-tier rejections. Messages match the original product copy.
var (
	ErrSessionNotFound = &ValidationError{Code: "session_not_found", Message: "Partie introuvable"}
	ErrSessionExpired  = &ValidationError{Code: "session_expired", Message: "Cette partie a expiré"}
	ErrNameRequired    = &ValidationError{Code: "name_required", Message: "Nom requis"}
	ErrNameTaken       = &ValidationError{Code: "name_taken", Message: "Ce nom est déjà utilisé dans cette partie"}
	ErrCreateInvalid   = &ValidationError{Code: "create_invalid", Message: "Nom de partie et facilitateur requis (max 100 et 50 car.)"}
)

// Silent-tier rejections: authorization and consistency failures that
// produce no error event, no state change and no broadcast. They exist so
// transitions can report why nothing happened without the gateway ever
// forwarding the reason to a client.
var (
	ErrNotFacilitator  = errors.New("acting connection is not the facilitator")
	ErrNotParticipant  = errors.New("acting connection is not a participant")
	ErrSpectator       = errors.New("spectators cannot vote")
	ErrAlreadyRevealed = errors.New("votes already revealed")
	ErrUnknownCard     = errors.New("vote value not in card set")
	ErrIssueNotFound   = errors.New("issue not found")
	ErrInvalidIssue    = errors.New("issue title blank or too long")
	ErrBadReaction     = errors.New("reaction sender or target not in session")
)

// AsValidation reports whether err should be surfaced to the acting
// connection, and returns the client-facing error when it should.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
