package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	keySize   = 32
	nonceSize = 12
	argonTime = 1
	argonMem  = 64 * 1024
	argonPar  = 4
)

// keySalt is fixed so the same secret derives the same keys across
// restarts and existing sessions stay readable.
var keySalt = []byte("roamstay session keys v1")

var (
	ErrInvalidCookie   = errors.New("session: invalid cookie signature")
	ErrPayloadTooShort = errors.New("session: payload too short")
)

// Codec encrypts session payloads and signs cookie values with keys derived
// from the application secret.
type Codec struct {
	aead    cipher.AEAD
	signKey []byte
}

// NewCodec derives a 32-byte AES-256-GCM key and a 32-byte HMAC key from
// secret using Argon2id.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session: empty secret")
	}
	material := argon2.IDKey([]byte(secret), keySalt, argonTime, argonMem, argonPar, 2*keySize)

	block, err := aes.NewCipher(material[:keySize])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Codec{aead: gcm, signKey: material[keySize:]}, nil
}

// Encrypt encodes p bound to the session key.
// Output format: [12-byte nonce][AES-256-GCM ciphertext]
func (c *Codec) Encrypt(key string, p payload) ([]byte, error) {
	plaintext, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, nonceSize+len(plaintext)+c.aead.Overhead())
	out = append(out, nonce...)
	return c.aead.Seal(out, nonce, plaintext, []byte(key)), nil
}

func (c *Codec) Decrypt(key string, data []byte) (payload, error) {
	if len(data) < nonceSize {
		return payload{}, ErrPayloadTooShort
	}
	plaintext, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(key))
	if err != nil {
		return payload{}, fmt.Errorf("decrypt: %w", err)
	}

	var p payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return payload{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}

// Sign returns the cookie value for key: "<key>.<mac>".
func (c *Codec) Sign(key string) string {
	return key + "." + c.mac(key)
}

// Verify checks a cookie value and returns the session key it carries.
func (c *Codec) Verify(value string) (string, error) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return "", ErrInvalidCookie
	}
	key, mac := value[:i], value[i+1:]
	if !hmac.Equal([]byte(mac), []byte(c.mac(key))) {
		return "", ErrInvalidCookie
	}
	return key, nil
}

func (c *Codec) mac(key string) string {
	h := hmac.New(sha256.New, c.signKey)
	h.Write([]byte(key))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// newKey returns 32 random bytes, base64url-encoded.
func newKey() (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("generate session key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
