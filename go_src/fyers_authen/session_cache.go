package fyers_authen

import (
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	sessionFileName = "fyers_session.json.enc"
	saltFileName    = "fyers_session.salt"
)

// cachedSession is what gets encrypted to disk.
type cachedSession struct {
	ClientID    string    `json:"client_id"`
	AccessToken string    `json:"access_token"`
	IssuedAt    time.Time `json:"issued_at"`
}

// SessionCache keeps the day's access token encrypted on disk.
// A token is only reused on the calendar day its file was written.
type SessionCache struct {
	path string
	aead cipher.AEAD
	now  func() time.Time
}

// NewSessionCache prepares dir and the key derived from secret.
func NewSessionCache(dir, secret string) (*SessionCache, error) {
	if dir == "" {
		return nil, errors.New("session directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory '%s': %w", dir, err)
	}
	aead, err := newSessionCipher(secret, filepath.Join(dir, saltFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session cipher: %w", err)
	}
	return &SessionCache{path: filepath.Join(dir, sessionFileName), aead: aead, now: time.Now}, nil
}

// Load returns today's token for clientID. ok is false when there is none, it is stale,
// or it belongs to another client.
func (c *SessionCache) Load(clientID string) (token string, ok bool) {
	info, err := os.Stat(c.path)
	if err != nil {
		return "", false
	}
	if !sameDay(info.ModTime(), c.now()) {
		logrus.Debugf("Cached session %s is from %s, ignoring", c.path, info.ModTime().Format("2006-01-02"))
		return "", false
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		logrus.Warnf("Failed to read cached session: %v", err)
		return "", false
	}
	plain, err := open(c.aead, data)
	if err != nil {
		logrus.Warnf("Cached session unusable: %v", err)
		return "", false
	}
	var cached cachedSession
	if err := json.Unmarshal(plain, &cached); err != nil {
		logrus.Warnf("Cached session is malformed: %v", err)
		return "", false
	}
	if cached.ClientID != clientID || cached.AccessToken == "" {
		return "", false
	}
	return cached.AccessToken, true
}

// Save encrypts the session's token to disk.
func (c *SessionCache) Save(s *AuthSession) error {
	if !s.Valid() {
		return errors.New("refusing to cache a session without an access token")
	}
	plain, err := json.Marshal(cachedSession{ClientID: s.ClientID, AccessToken: s.AccessToken, IssuedAt: s.IssuedAt})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	data, err := seal(c.aead, plain)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear removes the cached token.
func (c *SessionCache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
