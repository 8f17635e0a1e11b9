package session

import (
	"errors"
	"sync"
	"unicode/utf8"

	"github.com/ghostnet/ghostserver/protocol"
)

// MaxPseudonymLength caps pseudonyms, counted in runes.
const MaxPseudonymLength = 20

var (
	ErrPseudonymTaken   = errors.New("pseudonym already in use")
	ErrInvalidPseudonym = errors.New("pseudonym must be 1-20 characters")
	ErrAlreadyLoggedIn  = errors.New("already logged in")
)

// Registry is the global pseudonym-to-session map. Only authenticated
// sessions appear here; a pseudonym is held until its session logs out or
// tears down.
type Registry struct {
	mu          sync.RWMutex
	byPseudonym map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		byPseudonym: make(map[string]*Session),
	}
}

// Login validates and binds a pseudonym to the session. Rejection is a
// refusal, not a connection error: the session stays open and
// unauthenticated. Under concurrent attempts on the same pseudonym exactly
// one caller wins.
func (r *Registry) Login(s *Session, pseudonym string) error {
	if pseudonym == "" || utf8.RuneCountInString(pseudonym) > MaxPseudonymLength {
		return ErrInvalidPseudonym
	}
	if s.Pseudonym() != "" {
		return ErrAlreadyLoggedIn
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byPseudonym[pseudonym]; taken {
		return ErrPseudonymTaken
	}
	r.byPseudonym[pseudonym] = s
	s.setPseudonym(pseudonym)
	s.SetState(StateAuthenticated)
	return nil
}

// Logout releases the session's pseudonym. No-op for unauthenticated
// sessions; safe to call more than once.
func (r *Registry) Logout(s *Session) {
	pseudonym := s.Pseudonym()
	if pseudonym == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.byPseudonym[pseudonym]; ok && current == s {
		delete(r.byPseudonym, pseudonym)
	}
}

// Lookup resolves an active session by pseudonym. Exact, case-sensitive.
func (r *Registry) Lookup(pseudonym string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byPseudonym[pseudonym]
	return s, ok
}

// Sessions returns a snapshot of all authenticated sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.byPseudonym))
	for _, s := range r.byPseudonym {
		out = append(out, s)
	}
	return out
}

// Count returns the number of authenticated sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPseudonym)
}

// BroadcastAdmin fans an administrative DATA message out to every
// authenticated session, room membership notwithstanding. Best-effort: a
// failing recipient is skipped, its own lifecycle cleans it up. Returns the
// number of sessions written to.
func (r *Registry) BroadcastAdmin(text string) int {
	payload, err := protocol.EncodeData(protocol.BroadcastData{
		Sender:  "ADMIN",
		Message: text,
	})
	if err != nil {
		return 0
	}

	sent := 0
	for _, s := range r.Sessions() {
		if s.Send(protocol.Data, payload) == nil {
			sent++
		}
	}
	return sent
}
