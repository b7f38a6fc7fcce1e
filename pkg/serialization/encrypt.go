package serialization

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/espalier/pkg/domain"
)

// Encrypted wraps a codec with AES-256-GCM so flow payloads are opaque at
// rest. FallbackKeys let old keys keep decrypting during rotation; new
// payloads always use ActiveKey.
type Encrypted struct {
	Inner Codec

	// ActiveKey encrypts new payloads. Must be 32 bytes.
	ActiveKey []byte

	// FallbackKeys are tried in order when decryption with ActiveKey fails.
	FallbackKeys [][]byte
}

// NewEncrypted builds the encrypted codec, rejecting malformed keys up
// front instead of on the first save.
func NewEncrypted(inner Codec, activeKey []byte, fallbackKeys ...[]byte) (Encrypted, error) {
	if len(activeKey) != 32 {
		return Encrypted{}, errors.New("serialization: active key must be 32 bytes (AES-256)")
	}
	for i, key := range fallbackKeys {
		if len(key) != 32 {
			return Encrypted{}, fmt.Errorf("serialization: fallback key %d must be 32 bytes", i)
		}
	}
	return Encrypted{Inner: inner, ActiveKey: activeKey, FallbackKeys: fallbackKeys}, nil
}

func (e Encrypted) Marshal(flow *domain.Flow) ([]byte, error) {
	plain, err := e.Inner.Marshal(flow)
	if err != nil {
		return nil, err
	}
	return seal(plain, e.ActiveKey)
}

func (e Encrypted) Unmarshal(data []byte, flow *domain.Flow) error {
	plain, err := open(data, e.ActiveKey)
	if err != nil {
		for _, key := range e.FallbackKeys {
			if plain, err = open(data, key); err == nil {
				break
			}
		}
	}
	if err != nil {
		return errors.New("serialization: decryption failed with all available keys")
	}
	return e.Inner.Unmarshal(plain, flow)
}

func (e Encrypted) Name() string { return e.Inner.Name() + "+aesgcm" }

func seal(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
