package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/charismamove/apiserver/types"
)

const (
	RiderSessionFile = "token.json"
	AdminSessionFile = "adminToken.json"
)

// Session is the persisted login state of a front end.
type Session struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool {
	return s.Token != ""
}

// SessionStore keeps one session in a JSON file.
type SessionStore struct {
	path string
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// RiderSessionStore and AdminSessionStore keep the two front ends' sessions
// apart inside dir.
func RiderSessionStore(dir string) *SessionStore {
	return NewSessionStore(filepath.Join(dir, RiderSessionFile))
}

func AdminSessionStore(dir string) *SessionStore {
	return NewSessionStore(filepath.Join(dir, AdminSessionFile))
}

func (s *SessionStore) Path() string {
	return s.path
}

// Load returns the stored session. A missing file yields an empty session.
func (s *SessionStore) Load() (Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", s.path, err)
	}
	return session, nil
}

// Save writes session with owner-only permissions.
func (s *SessionStore) Save(session Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Clear removes the stored session.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
