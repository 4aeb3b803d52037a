package relay

import "sync"

// LanguageUnset marks a participant that has not announced a language yet.
const LanguageUnset = "unset"

// Participant is the per-connection state tracked by the registry.
// A participant id is connection-scoped and not reused across reconnects.
// An empty VoiceID means the shared default voice.
type Participant struct {
	ID       string
	Language string
	VoiceID  string
}

// Registry tracks connected participants and their language/voice selection.
// It exclusively owns the Participant records; accessors return copies.
// Operations against unknown ids are tolerated no-ops, since a participant
// may disconnect at any point.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]*Participant
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[string]*Participant),
	}
}

// Register adds a participant with default language and voice.
func (r *Registry) Register(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[id] = &Participant{ID: id, Language: LanguageUnset}
}

// Unregister removes a participant. Unknown ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.participants, id)
}

// SetLanguage updates a participant's language. Returns false for unknown ids.
func (r *Registry) SetLanguage(id, code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	if !ok {
		return false
	}
	p.Language = code
	return true
}

// SetVoice updates a participant's voice identity. Once set it persists for
// the remainder of the connection unless explicitly replaced.
// Returns false for unknown ids.
func (r *Registry) SetVoice(id, voiceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	if !ok {
		return false
	}
	p.VoiceID = voiceID
	return true
}

// Get returns a copy of the participant record.
func (r *Registry) Get(id string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// ForEachOther invokes fn for every registered participant except id.
// fn receives copies and is called without the registry lock held.
func (r *Registry) ForEachOther(id string, fn func(Participant)) {
	r.mu.RLock()
	others := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		if p.ID != id {
			others = append(others, *p)
		}
	}
	r.mu.RUnlock()

	for _, p := range others {
		fn(p)
	}
}

// Count returns the number of registered participants.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}
