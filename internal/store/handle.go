package store

// Handle scopes a Store to a single request's credential. It is created by
// the session middleware and must never outlive or be shared across requests.
type Handle struct {
	Store Store
	Token string
	// User is nil for anonymous requests.
	User *User
}

// Authenticated reports whether the handle carries an established identity.
func (h Handle) Authenticated() bool {
	return h.User != nil && h.Token != ""
}
