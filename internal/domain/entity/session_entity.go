package entity

import "time"

// Flash types, rendered by the next view.
const (
	FlashError   = "error"
	FlashWarning = "warning"
	FlashSuccess = "success"
)

type Flash struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Session is the server-held state referenced by the session cookie.
// UserID is zero for anonymous sessions.
type Session struct {
	ID                string    `json:"id"`
	UserID            int64     `json:"user_id,omitempty"`
	TwoFactorVerified bool      `json:"two_factor_verified"`
	Flashes           []Flash   `json:"flashes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`

	dirty      bool
	destroyed  bool
	replacedID string
}

func NewSession(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now}
}

func (s *Session) Authenticated() bool { return s != nil && s.UserID != 0 }

// SignIn binds the session to a user under a fresh id. The previous id is
// remembered so the store can drop it.
func (s *Session) SignIn(newID string, userID int64, twoFactorVerified bool) {
	if s.replacedID == "" && s.ID != newID {
		s.replacedID = s.ID
	}
	s.ID = newID
	s.UserID = userID
	s.TwoFactorVerified = twoFactorVerified
	s.dirty = true
}

// SignOut forgets the user but keeps the session usable for flashes.
func (s *Session) SignOut() {
	s.UserID = 0
	s.TwoFactorVerified = false
	s.dirty = true
}

func (s *Session) MarkTwoFactorVerified() {
	s.TwoFactorVerified = true
	s.dirty = true
}

// Destroy marks the session for removal at the end of the request.
func (s *Session) Destroy() {
	s.UserID = 0
	s.TwoFactorVerified = false
	s.Flashes = nil
	s.destroyed = true
}

func (s *Session) AddFlash(kind, message string) {
	s.Flashes = append(s.Flashes, Flash{Type: kind, Message: message})
	s.dirty = true
}

// TakeFlashes returns and clears pending flashes.
func (s *Session) TakeFlashes() []Flash {
	out := s.Flashes
	if len(out) > 0 {
		s.Flashes = nil
		s.dirty = true
	}
	return out
}

func (s *Session) Dirty() bool       { return s.dirty }
func (s *Session) Destroyed() bool   { return s.destroyed }
func (s *Session) ReplacedID() string { return s.replacedID }

// Persisted clears the change markers after a successful save.
func (s *Session) Persisted() {
	s.dirty = false
	s.replacedID = ""
}
