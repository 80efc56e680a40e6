// Package session persists browser cookies between runs as an encrypted
// blob. Key material and ciphertext live side by side in the bot's data
// directory; a load that fails decryption or decoding degrades to "no
// session" instead of failing the caller.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/avolkovs/applybot/internal/browser"
	"github.com/avolkovs/applybot/internal/common"
	"github.com/avolkovs/applybot/internal/cryptox"
	"github.com/avolkovs/applybot/internal/filex"
	"github.com/avolkovs/applybot/internal/logging"
)

const (
	sessionFile = "session.enc"
	keyFile     = "key.bin"
	saltFile    = "salt.bin"
)

// Store reads and writes one encrypted cookie blob.
//
// The key comes from one of two places: a passphrase (Argon2id-derived, salt
// persisted next to the ciphertext) or a random key file generated on first
// use. Both stay inside the store's directory.
type Store struct {
	dir        string
	passphrase string
	log        logging.Logger
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
// An empty passphrase selects the random-key-file scheme.
func NewStore(dir, passphrase string, log logging.Logger) (*Store, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("session dir: %w", err)
	}
	return &Store{dir: abs, passphrase: passphrase, log: log}, nil
}

func (s *Store) key() ([]byte, error) {
	if s.passphrase == "" {
		return cryptox.LoadOrCreateKey(filepath.Join(s.dir, keyFile))
	}

	salt, err := cryptox.LoadOrCreateKey(filepath.Join(s.dir, saltFile))
	if err != nil {
		return nil, err
	}
	return cryptox.DeriveKey([]byte(s.passphrase), salt), nil
}

// Save encrypts cookies and overwrites the session file.
func (s *Store) Save(ctx context.Context, cookies []browser.Cookie) error {
	key, err := s.key()
	if err != nil {
		return fmt.Errorf("session key: %w", err)
	}

	plaintext, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}

	envelope, err := cryptox.Seal(plaintext, key)
	if err != nil {
		return fmt.Errorf("encrypt session: %w", err)
	}

	path := filepath.Join(s.dir, sessionFile)
	if err := filex.WriteFileAtomic(path, envelope, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	s.log.Info(ctx, "session saved", "cookies", len(cookies))
	return nil
}

// Load returns the stored cookies, or nil when no usable session exists:
// missing file, missing or changed key, corrupted envelope. Corruption is
// logged and never propagated; the caller simply starts unauthenticated.
func (s *Store) Load(ctx context.Context) []browser.Cookie {
	path := filepath.Join(s.dir, sessionFile)
	envelope, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn(ctx, "session file unreadable", "err", err)
		}
		return nil
	}

	key, err := s.key()
	if err != nil {
		s.log.Warn(ctx, "session key unavailable, starting unauthenticated", "err", err)
		return nil
	}

	plaintext, err := cryptox.Open(envelope, key)
	if err != nil {
		// storage-level corruption or a rotated key; both mean "no session"
		s.log.Warn(ctx, "session corrupt, starting unauthenticated",
			"err", err, "corrupt", errors.Is(err, common.ErrSessionCorrupt))
		return nil
	}

	var cookies []browser.Cookie
	if err := json.Unmarshal(plaintext, &cookies); err != nil {
		s.log.Warn(ctx, "session payload malformed, starting unauthenticated", "err", err)
		return nil
	}

	s.log.Info(ctx, "session loaded", "cookies", len(cookies))
	return cookies
}
