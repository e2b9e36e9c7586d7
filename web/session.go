package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/appid-oss/go-appid-middleware/core"
)

// Session keys written by the strategy.
const (
	// AuthContextKey holds the JSON encoded core.AuthorizationContext.
	AuthContextKey = core.AuthContextKey
	// StateKey holds the login in progress between the redirect and the callback.
	StateKey = "APPID_STATE"
	// OriginalURLKey holds the URL RequireLogin interrupted.
	OriginalURLKey = "APPID_ORIGINAL_URL"
)

// Session is the per-browser storage the strategy reads and writes. Values
// are opaque strings so any store can persist them.
type Session interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// SessionStore loads the session of a request and persists it after the
// strategy changed it. The host application owns the store.
type SessionStore interface {
	Session(r *http.Request) (Session, error)
	Save(w http.ResponseWriter, r *http.Request, s Session) error
}

// MapSession is a Session backed by a map, for stores to build on.
type MapSession struct {
	ID     string
	Values map[string]string
	IsNew  bool
}

// NewMapSession returns an empty session with the given id.
func NewMapSession(id string) *MapSession {
	return &MapSession{ID: id, Values: make(map[string]string), IsNew: true}
}

func (s *MapSession) Get(key string) (string, bool) {
	v, ok := s.Values[key]
	return v, ok
}

func (s *MapSession) Set(key, value string) {
	s.Values[key] = value
}

func (s *MapSession) Delete(key string) {
	delete(s.Values, key)
}

// loginState is the transient context of one authorization redirect.
type loginState struct {
	State       string `json:"state"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// AuthorizationContext returns the authorization context stored in s by a
// completed login.
func AuthorizationContext(s Session) (*core.AuthorizationContext, error) {
	raw, ok := s.Get(AuthContextKey)
	if !ok || raw == "" {
		return nil, core.ErrAuthContextNotFound
	}
	var ac core.AuthorizationContext
	if err := json.Unmarshal([]byte(raw), &ac); err != nil {
		return nil, fmt.Errorf("could not decode the stored authorization context: %w", err)
	}
	return &ac, nil
}

func setAuthorizationContext(s Session, ac *core.AuthorizationContext) error {
	raw, err := json.Marshal(ac)
	if err != nil {
		return err
	}
	s.Set(AuthContextKey, string(raw))
	return nil
}

func getLoginState(s Session) (loginState, bool) {
	raw, ok := s.Get(StateKey)
	if !ok {
		return loginState{}, false
	}
	var st loginState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return loginState{}, false
	}
	return st, true
}

func setLoginState(s Session, st loginState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	s.Set(StateKey, string(raw))
	return nil
}
