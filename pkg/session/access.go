package session

import "context"

// Access is the narrow, triple-bound view of the session store handed to
// action modules and menu handlers. It exists so a handler never has to
// thread (msisdn, sessionId, shortcode) through every call of its own.
type Access struct {
	store     *Store
	msisdn    string
	sessionID string
	shortcode string
}

// NewAccess binds store to one session triple.
func NewAccess(store *Store, msisdn, sessionID, shortcode string) *Access {
	return &Access{store: store, msisdn: msisdn, sessionID: sessionID, shortcode: shortcode}
}

// Store writes a slot value for the bound triple.
func (a *Access) Store(ctx context.Context, slot string, value any) error {
	return a.store.StoreSlot(ctx, a.msisdn, a.sessionID, a.shortcode, slot, value)
}

// Grab reads a slot value for the bound triple.
func (a *Access) Grab(ctx context.Context, slot string, out any) (bool, error) {
	return a.store.GrabSlot(ctx, a.msisdn, a.sessionID, a.shortcode, slot, out)
}

// Possess reports whether a slot exists for the bound triple.
func (a *Access) Possess(ctx context.Context, slot string) (bool, error) {
	return a.store.PossessSlot(ctx, a.msisdn, a.sessionID, a.shortcode, slot)
}

// Blank deletes one or more slots for the bound triple.
func (a *Access) Blank(ctx context.Context, slots ...string) error {
	return a.store.BlankSlots(ctx, a.msisdn, a.sessionID, a.shortcode, slots...)
}

// UpdateSession deep-merges patch into the bound session.
func (a *Access) UpdateSession(ctx context.Context, patch map[string]any) (*Session, error) {
	return a.store.Update(ctx, a.msisdn, a.sessionID, a.shortcode, patch)
}

// Get returns the bound session.
func (a *Access) Get(ctx context.Context) (*Session, bool, error) {
	return a.store.Get(ctx, a.msisdn, a.sessionID, a.shortcode)
}

// MSISDN returns the bound MSISDN.
func (a *Access) MSISDN() string { return a.msisdn }

// SessionID returns the bound session id.
func (a *Access) SessionID() string { return a.sessionID }

// Shortcode returns the bound shortcode.
func (a *Access) Shortcode() string { return a.shortcode }
