package wallet

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"golang.org/x/crypto/sha3"
)

const (
	saltFile    = "salt"
	verifyFile  = "verify"
	walletsDir  = "wallets"
	verifyToken = "vaayu-wallet-store-ok"
)

// ErrWrongPassword is returned by Open when the password does not decrypt
// the store's verification token.
var ErrWrongPassword = errors.New("wrong password")

// Store keeps one AES-256-GCM encrypted wallet file per identity key.
// File names are hashes of the key so emails never hit the disk.
type Store struct {
	mu  sync.RWMutex
	fs  zfilesystem.ReadWriteFileFS
	key []byte
}

// Open opens or initializes an encrypted wallet store.
// On first run, it creates the salt and verification token.
// On subsequent runs, it verifies the password by decrypting the token.
func Open(fsys zfilesystem.ReadWriteFileFS, password string) (*Store, error) {
	salt, err := readOrCreateSalt(fsys)
	if err != nil {
		return nil, fmt.Errorf("open wallet store: %w", err)
	}

	key, _, err := zcrypto.DeriveKey([]byte(password), salt)
	if err != nil {
		return nil, fmt.Errorf("open wallet store: derive key: %w", err)
	}

	if err := verifyOrCreateToken(fsys, key); err != nil {
		zcrypto.Erase(key)
		return nil, fmt.Errorf("open wallet store: %w", err)
	}

	if err := fsys.MkdirAll(walletsDir, 0o700); err != nil {
		zcrypto.Erase(key)
		return nil, fmt.Errorf("open wallet store: create wallets dir: %w", err)
	}

	return &Store{fs: fsys, key: key}, nil
}

// Save validates, encrypts and writes the wallet for an identity key.
// It belongs to the registration and import flows; the dashboard never saves.
func (s *Store) Save(key string, r Record) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("save wallet: marshal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ct, err := zcrypto.Encrypt(s.key, data)
	if err != nil {
		return fmt.Errorf("save wallet: encrypt: %w", err)
	}

	if err := s.fs.WriteFile(walletPath(key), ct, 0o600); err != nil {
		return fmt.Errorf("save wallet: write: %w", err)
	}

	return nil
}

// Get decrypts and returns the wallet for an identity key.
// A stored entry that fails validation is reported as ErrCorrupt.
func (s *Store) Get(key string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read(key)
}

// Validate reports false only when the stored entry for key fails to decrypt
// or decode. An absent entry is valid, and so is one that could not be read:
// there is nothing known to be wrong with it.
func (s *Store) Validate(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := s.read(key)
	return !errors.Is(err, ErrCorrupt)
}

// Clear removes the entry for key. Clearing an absent entry is a no-op.
func (s *Store) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(walletPath(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("clear wallet: %w", err)
	}

	return nil
}

// Close erases the encryption key from memory.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	zcrypto.Erase(s.key)
	s.key = nil
	return nil
}

func (s *Store) read(key string) (Record, error) {
	ct, err := s.fs.ReadFile(walletPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get wallet: read: %w", err)
	}

	data, err := zcrypto.Decrypt(s.key, ct)
	if err != nil {
		return Record{}, fmt.Errorf("%w: decrypt: %v", ErrCorrupt, err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: unmarshal: %v", ErrCorrupt, err)
	}

	if err := r.Validate(); err != nil {
		return Record{}, err
	}

	return r, nil
}

func readOrCreateSalt(fsys zfilesystem.ReadWriteFileFS) ([]byte, error) {
	salt, err := fsys.ReadFile(saltFile)
	if err == nil {
		return salt, nil
	}

	salt, err = zcrypto.RandBytes(zcrypto.SaltSize)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	if err := fsys.WriteFile(saltFile, salt, 0o600); err != nil {
		return nil, fmt.Errorf("write salt: %w", err)
	}

	return salt, nil
}

func verifyOrCreateToken(fsys zfilesystem.ReadWriteFileFS, key []byte) error {
	ct, err := fsys.ReadFile(verifyFile)
	if err != nil {
		// first run, create the verification token
		ct, err = zcrypto.Encrypt(key, []byte(verifyToken))
		if err != nil {
			return fmt.Errorf("encrypt verify token: %w", err)
		}

		if err := fsys.WriteFile(verifyFile, ct, 0o600); err != nil {
			return fmt.Errorf("write verify token: %w", err)
		}

		return nil
	}

	plain, err := zcrypto.Decrypt(key, ct)
	if err != nil || string(plain) != verifyToken {
		return ErrWrongPassword
	}

	return nil
}

func walletPath(key string) string {
	sum := sha3.Sum256([]byte(key))
	return walletsDir + "/" + hex.EncodeToString(sum[:]) + ".enc"
}
