package web

import (
	"errors"
	"maps"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

const testCookieName = "test_session"

// testStore is a host session store kept in memory, keyed by a cookie.
type testStore struct {
	mu       sync.Mutex
	sessions map[string]map[string]string
}

func newTestStore() *testStore {
	return &testStore{sessions: make(map[string]map[string]string)}
}

func (m *testStore) Session(r *http.Request) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, err := r.Cookie(testCookieName); err == nil {
		if values, ok := m.sessions[c.Value]; ok {
			return &MapSession{ID: c.Value, Values: maps.Clone(values)}, nil
		}
	}
	return NewMapSession(uuid.NewString()), nil
}

func (m *testStore) Save(w http.ResponseWriter, _ *http.Request, s Session) error {
	ms, ok := s.(*MapSession)
	if !ok {
		return errors.New("test store can only save sessions it created")
	}

	m.mu.Lock()
	m.sessions[ms.ID] = maps.Clone(ms.Values)
	m.mu.Unlock()

	if ms.IsNew {
		http.SetCookie(w, &http.Cookie{Name: testCookieName, Value: ms.ID, Path: "/", HttpOnly: true})
		ms.IsNew = false
	}
	return nil
}
