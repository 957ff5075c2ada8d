package notification

import "sync"

// StatusRegistry tracks process-wide channel health independently of any
// user's preferences. A channel must be initialized before it can be enabled;
// disabling or failing initialization clears the enabled flag.
type StatusRegistry struct {
	mu     sync.RWMutex
	status map[Channel]Status
}

// NewStatusRegistry seeds the registry with every supported channel. Email
// needs no credentials, so it starts initialized and enabled.
func NewStatusRegistry() *StatusRegistry {
	r := &StatusRegistry{status: make(map[Channel]Status, len(AllChannels()))}
	for _, ch := range AllChannels() {
		r.status[ch] = Status{}
	}
	r.status[ChannelEmail] = Status{Initialized: true, Enabled: true}
	return r
}

// Get returns the current status of a channel. Unknown channels report the
// zero status.
func (r *StatusRegistry) Get(ch Channel) Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status[ch]
}

// Snapshot returns a copy of all channel statuses.
func (r *StatusRegistry) Snapshot() map[Channel]Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Channel]Status, len(r.status))
	for ch, st := range r.status {
		out[ch] = st
	}
	return out
}

// SetInitialized records the outcome of an adapter initialization attempt.
// A nil err marks the channel initialized and enabled; a non-nil err resets
// both flags and stores the error text for status reporting.
func (r *StatusRegistry) SetInitialized(ch Channel, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.status[ch] = Status{Error: err.Error()}
		return
	}
	r.status[ch] = Status{Initialized: true, Enabled: true}
}

// SetEnabled toggles a channel. Enabling a channel that was never
// initialized is a no-op so the enabled-implies-initialized invariant holds.
func (r *StatusRegistry) SetEnabled(ch Channel, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.status[ch]
	if enabled && !st.Initialized {
		return
	}
	st.Enabled = enabled
	r.status[ch] = st
}
