// Package session persists the dashboard's authentication cookies between
// the interactive login and the headless collection runs.
//
// The file is a JSON array in the cookie format used by browser automation
// tools (name, value, domain, path, expires, httpOnly, secure, sameSite), so
// a cookies.json produced by an earlier login tool stays readable.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hazyhaar/vendas/collector/internal/atomicfile"
)

// ErrMissing is returned by Load when no session file exists.
var ErrMissing = errors.New("session: no saved session, run the interactive login first")

// Cookie is one entry of the saved cookie jar. Expires is seconds since the
// Unix epoch; -1 marks a session cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Session is the ordered cookie set. Order is kept as written.
type Session struct {
	Cookies []Cookie
}

// Store reads and writes a single session file.
type Store struct {
	path string
}

// NewStore returns a Store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the session file location.
func (s *Store) Path() string { return s.path }

// Load reads the saved session. A missing file is ErrMissing; a file that
// exists but is not a JSON cookie array is a decode error.
func (s *Store) Load() (Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, ErrMissing
	}
	if err != nil {
		return Session{}, fmt.Errorf("session: read %s: %w", s.path, err)
	}
	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return Session{}, fmt.Errorf("session: decode %s: %w", s.path, err)
	}
	return Session{Cookies: cookies}, nil
}

// Save replaces the session file atomically (temp file + rename).
func (s *Store) Save(sess Session) error {
	cookies := sess.Cookies
	if cookies == nil {
		cookies = []Cookie{}
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := atomicfile.Write(s.path, data, 0o600); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}
