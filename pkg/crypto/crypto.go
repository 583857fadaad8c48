package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
)

// prefix marks sealed values so rows written before a key was configured
// keep reading as plain text.
const prefix = "enc:v1:"

var (
	mu            sync.RWMutex
	encryptionKey []byte
)

// SetEncryptionKey derives the AES-256 key from secret. An empty secret
// turns encryption off.
func SetEncryptionKey(secret string) {
	mu.Lock()
	defer mu.Unlock()
	if secret == "" {
		encryptionKey = nil
		return
	}
	sum := sha256.Sum256([]byte(secret))
	encryptionKey = sum[:]
}

func key() []byte {
	mu.RLock()
	defer mu.RUnlock()
	return encryptionKey
}

// Encrypt seals plainText with AES-GCM. Without a key the value is returned
// unchanged.
func Encrypt(plainText string) (string, error) {
	k := key()
	if len(k) == 0 || plainText == "" {
		return plainText, nil
	}

	gcm, err := newGCM(k)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plainText), nil)
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Unprefixed values are returned
// as they are.
func Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, prefix) {
		return value, nil
	}
	k := key()
	if len(k) == 0 {
		return "", errors.New("value is encrypted but no encryption key is configured")
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", err
	}

	gcm, err := newGCM(k)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, cipherText := data[:nonceSize], data[nonceSize:]
	plain, err := gcm.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func newGCM(k []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
