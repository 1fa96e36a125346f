package domain

// Session carries the signed-in user's identity. It is passed explicitly to
// every component that needs to know who owns the records being written.
type Session struct {
	UserID   string
	SignedIn bool
}

// NewSession returns a signed-in session for userID. An empty userID yields a
// signed-out session.
func NewSession(userID string) Session {
	return Session{UserID: userID, SignedIn: userID != ""}
}

// Require returns ErrNotSignedIn unless the session has a user.
func (s Session) Require() error {
	if !s.SignedIn || s.UserID == "" {
		return ErrNotSignedIn
	}
	return nil
}
