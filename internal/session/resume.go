package session

import "github.com/1ureka/sigcore/internal/util"

// Options configure a Resumption.
type Options struct {
	Token           string
	ProfileID       string
	DisableReattach bool
	Storage         Storage
}

// Resumption persists the identifiers needed to reattach to a call after a
// transport reconnect. Writes are gated by CanReattach; Forget is not.
// Storage failures are logged (outside production) and otherwise ignored.
type Resumption struct {
	keys      KeySet
	tokenType TokenType
	reattach  bool
	store     Storage
}

// NewResumption derives the key set for opts.Token. A nil Storage disables
// persistence entirely.
func NewResumption(opts Options) *Resumption {
	tt := ClassifyToken(opts.Token)
	return &Resumption{
		keys:      DeriveKeys(opts.Token, opts.ProfileID),
		tokenType: tt,
		reattach:  !opts.DisableReattach && tt != TokenUnknown,
		store:     opts.Storage,
	}
}

// Keys returns the derived storage keys.
func (r *Resumption) Keys() KeySet { return r.keys }

// TokenType returns the classified token type.
func (r *Resumption) TokenType() TokenType { return r.tokenType }

// CanReattach reports whether prior session state may be persisted and reused.
func (r *Resumption) CanReattach() bool { return r.reattach }

// Protocol returns the persisted protocol id, if any.
func (r *Resumption) Protocol() string { return r.load(r.keys.ProtocolKey) }

// SetProtocol persists the protocol id returned by the connect handshake.
func (r *Resumption) SetProtocol(v string) { r.save(r.keys.ProtocolKey, v) }

// AuthState returns the persisted authorization state, if any.
func (r *Resumption) AuthState() string { return r.load(r.keys.AuthStateKey) }

// SetAuthState persists the authorization state.
func (r *Resumption) SetAuthState(v string) { r.save(r.keys.AuthStateKey, v) }

// PriorCallID returns the call id of the last joined call, if any.
func (r *Resumption) PriorCallID() string { return r.load(r.keys.CallIDKey) }

// SetPriorCallID persists the id of the call currently joined.
func (r *Resumption) SetPriorCallID(v string) { r.save(r.keys.CallIDKey, v) }

// ClearPriorCallID forgets the prior call id after a clean hangup.
func (r *Resumption) ClearPriorCallID() {
	if !r.reattach {
		return
	}
	r.remove(r.keys.CallIDKey)
}

// Forget removes every persisted key. It runs on terminal disconnects
// whatever the reattach setting, so stale state never outlives a session.
func (r *Resumption) Forget() {
	for _, key := range []string{r.keys.AuthStateKey, r.keys.ProtocolKey, r.keys.CallIDKey} {
		r.remove(key)
	}
}

func (r *Resumption) load(key string) string {
	if !r.reattach || key == "" || r.store == nil {
		return ""
	}
	v, ok, err := r.store.GetItem(key)
	if err != nil {
		util.LogDev("session: failed to read %s: %v", key, err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (r *Resumption) save(key, value string) {
	if !r.reattach || key == "" || r.store == nil || value == "" {
		return
	}
	if err := r.store.SetItem(key, value); err != nil {
		util.LogDev("session: failed to write %s: %v", key, err)
	}
}

func (r *Resumption) remove(key string) {
	if key == "" || r.store == nil {
		return
	}
	if err := r.store.RemoveItem(key); err != nil {
		util.LogDev("session: failed to remove %s: %v", key, err)
	}
}
