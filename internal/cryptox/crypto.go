// Package cryptox implements the authenticated encryption used by the
// session store: AES-256-GCM with the nonce, ciphertext and authentication
// tag carried separately in a base64-encoded JSON envelope.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/avolkovs/applybot/internal/common"
	"github.com/avolkovs/applybot/internal/filex"
	"golang.org/x/crypto/argon2"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// gcmTagSize is the AES-GCM authentication tag length. Go's GCM appends the
// tag to the ciphertext; the envelope stores it as a separate field, so Seal
// output is split at this boundary and rejoined before Open.
const gcmTagSize = 16

// Envelope is the on-disk representation of one encrypted payload.
// Each field is standard base64.
type Envelope struct {
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	Tag        string `json:"tag"`
}

// DeriveKey derives a KeySize-byte key from a passphrase and salt using
// Argon2id. Same inputs always produce the same key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// LoadOrCreateKey returns the key stored at path, generating and persisting
// a fresh random key on first use. A single-process assumption makes the
// create path race-free enough in practice.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != KeySize {
			return nil, fmt.Errorf("key file %s: unexpected length %d", path, len(key))
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key = common.GenerateRandByteArray(KeySize)
	if err := filex.WriteFileAtomic(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext with AES-256-GCM under key and returns the JSON
// envelope bytes. A fresh 12-byte nonce is generated per call.
func Seal(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)

	// split ciphertext||tag into the envelope's two fields
	split := len(sealed) - gcmTagSize
	env := Envelope{
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:split]),
		Tag:        base64.StdEncoding.EncodeToString(sealed[split:]),
	}

	return json.Marshal(env)
}

// Open decodes an envelope produced by Seal and decrypts it. Any decoding,
// key or authentication failure is wrapped in common.ErrSessionCorrupt so
// callers can degrade to "no session" with a single errors.Is check.
func Open(envelope, key []byte) ([]byte, error) {
	var env Envelope
	if err := json.Unmarshal(envelope, &env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", common.ErrSessionCorrupt, err)
	}

	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: decode nonce: %v", common.ErrSessionCorrupt, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: decode ciphertext: %v", common.ErrSessionCorrupt, err)
	}
	tag, err := base64.StdEncoding.DecodeString(env.Tag)
	if err != nil {
		return nil, fmt.Errorf("%w: decode tag: %v", common.ErrSessionCorrupt, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSessionCorrupt, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSessionCorrupt, err)
	}

	plaintext, err := aesgcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", common.ErrSessionCorrupt)
	}

	return plaintext, nil
}
