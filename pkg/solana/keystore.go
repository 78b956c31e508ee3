package solana

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/blocto/solana-go-sdk/types"
)

// KeystoreEntry is one stored treasury credential.
type KeystoreEntry struct {
	CommunityID  string `json:"community_id"`
	Address      string `json:"address"`
	EncryptedKey string `json:"encrypted_key"`
	Version      int    `json:"version"`
}

// Keystore persists treasury signing keys as AES-256-GCM encrypted JSON
// files, one per community.
type Keystore struct {
	dir      string
	password string
}

func NewKeystore(dir, password string) *Keystore {
	if dir == "" {
		dir = "configs/keystore"
	}
	return &Keystore{dir: dir, password: password}
}

// Generate creates a new treasury key pair and stores it encrypted. Returns
// the public address.
func (k *Keystore) Generate(communityID string) (string, error) {
	account := types.NewAccount()

	encrypted, err := k.encrypt(account.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt private key: %w", err)
	}

	entry := KeystoreEntry{
		CommunityID:  communityID,
		Address:      account.PublicKey.ToBase58(),
		EncryptedKey: encrypted,
		Version:      1,
	}
	jsonData, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal keystore entry: %w", err)
	}

	if err := os.MkdirAll(k.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create keystore directory: %w", err)
	}
	if err := os.WriteFile(k.entryPath(communityID), jsonData, 0600); err != nil {
		return "", fmt.Errorf("failed to write keystore entry: %w", err)
	}
	return entry.Address, nil
}

// Load returns the decrypted signing account for a community. A missing entry
// is reported as os.ErrNotExist.
func (k *Keystore) Load(communityID string) (*types.Account, error) {
	data, err := os.ReadFile(k.entryPath(communityID))
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore entry: %w", err)
	}

	var entry KeystoreEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keystore entry: %w", err)
	}
	if entry.CommunityID != communityID {
		return nil, fmt.Errorf("community mismatch: expected %s, got %s", communityID, entry.CommunityID)
	}

	privateKey, err := k.decrypt(entry.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt private key: %w", err)
	}

	account, err := types.AccountFromBytes(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create account from private key: %w", err)
	}
	return &account, nil
}

// Delete removes a community's stored credential. Missing entries are not an
// error.
func (k *Keystore) Delete(communityID string) error {
	err := os.Remove(k.entryPath(communityID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove keystore entry: %w", err)
	}
	return nil
}

func (k *Keystore) entryPath(communityID string) string {
	return filepath.Join(k.dir, communityID+".json")
}

func (k *Keystore) encrypt(privateKey []byte) (string, error) {
	key := deriveKey(k.password)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Nonce is stored as the ciphertext prefix.
	ciphertext := gcm.Seal(nonce, nonce, privateKey, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (k *Keystore) decrypt(encryptedKey string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	key := deriveKey(k.password)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertext = ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// deriveKey creates a 32-byte key from a password using SHA-256
func deriveKey(password string) []byte {
	hash := sha256.Sum256([]byte(password))
	return hash[:]
}
