package flight

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/hugr-lab/framebind/binding"
)

// ErrSessionNotFound is returned for session ids that were never opened, are
// already closed, or belong to another caller.
var ErrSessionNotFound = errors.New("session not found")

// sessionSet maps session ids to binding sessions. Every session is owned
// by the caller identity that opened it; other callers cannot see it.
// Requests without a session id use the caller's default session, created
// on first use. Without authentication every caller has the empty identity
// and so shares one default session.
type sessionSet struct {
	binding *binding.Binding

	mu       sync.Mutex
	defaults map[string]*binding.Session
	byID     map[string]ownedSession
}

type ownedSession struct {
	session *binding.Session
	owner   string
}

func newSessionSet(b *binding.Binding) *sessionSet {
	return &sessionSet{
		binding:  b,
		defaults: make(map[string]*binding.Session),
		byID:     make(map[string]ownedSession),
	}
}

// get resolves id for caller.
func (ss *sessionSet) get(id, caller string) (*binding.Session, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if id == "" {
		s, ok := ss.defaults[caller]
		if !ok {
			s = ss.binding.NewSession()
			ss.defaults[caller] = s
		}
		return s, nil
	}
	os, ok := ss.byID[id]
	if !ok || os.owner != caller {
		return nil, ErrSessionNotFound
	}
	return os.session, nil
}

// open starts a session owned by owner and returns its id.
func (ss *sessionSet) open(owner string) string {
	id := uuid.NewString()
	s := ss.binding.NewSession()

	ss.mu.Lock()
	ss.byID[id] = ownedSession{session: s, owner: owner}
	ss.mu.Unlock()

	return id
}

// close closes the session with the given id if caller owns it. It reports
// false when caller has no such session.
func (ss *sessionSet) close(id, caller string) bool {
	ss.mu.Lock()
	os, ok := ss.byID[id]
	if ok && os.owner == caller {
		delete(ss.byID, id)
	} else {
		ok = false
	}
	ss.mu.Unlock()

	if ok {
		os.session.Close()
	}
	return ok
}

func (ss *sessionSet) closeAll() {
	ss.mu.Lock()
	sessions := make([]*binding.Session, 0, len(ss.byID)+len(ss.defaults))
	for _, os := range ss.byID {
		sessions = append(sessions, os.session)
	}
	for _, s := range ss.defaults {
		sessions = append(sessions, s)
	}
	ss.byID = make(map[string]ownedSession)
	ss.defaults = make(map[string]*binding.Session)
	ss.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
