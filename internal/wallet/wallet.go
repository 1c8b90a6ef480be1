package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// EnvKey is the environment variable holding a serialized secret key when no
// wallet file is configured.
const EnvKey = "WALLET_PRIVATE_KEY"

// ErrNoCredential indicates neither the wallet file nor the environment
// yielded a usable signing key.
var ErrNoCredential = errors.New("wallet: no signing credential configured")

// Keypair holds the engine's signing credential. It is loaded once at startup
// and never mutated afterwards.
type Keypair struct {
	priv ed25519.PrivateKey
}

// Load resolves the keypair from the configured file path, falling back to
// the WALLET_PRIVATE_KEY environment variable. Both sources carry the
// standard serialized form: a JSON array of 64 bytes (seed followed by the
// public key).
func Load(path string) (*Keypair, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read wallet file: %w", err)
		}
		return fromJSON(raw)
	}

	if env := os.Getenv(EnvKey); env != "" {
		return fromJSON([]byte(env))
	}

	return nil, ErrNoCredential
}

func fromJSON(raw []byte) (*Keypair, error) {
	var bytes []byte
	if err := json.Unmarshal(raw, &bytes); err != nil {
		return nil, fmt.Errorf("parse secret key array: %w", err)
	}
	if len(bytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(bytes))
	}
	return &Keypair{priv: ed25519.PrivateKey(bytes)}, nil
}

// PublicKey returns the base58-encoded public key.
func (k *Keypair) PublicKey() string {
	return encodeBase58(k.priv.Public().(ed25519.PublicKey))
}

// ShortPublicKey returns a truncated public key suitable for logs.
func (k *Keypair) ShortPublicKey() string {
	full := k.PublicKey()
	if len(full) <= 8 {
		return full
	}
	return full[:8] + "..."
}

// Sign signs a message with the secret key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

func encodeBase58(input []byte) string {
	zeros := 0
	for zeros < len(input) && input[zeros] == 0 {
		zeros++
	}

	digits := make([]byte, 0, len(input)*2)
	for _, b := range input {
		carry := int(b)
		for i := range digits {
			carry += int(digits[i]) << 8
			digits[i] = byte(carry % 58)
			carry /= 58
		}
		for carry > 0 {
			digits = append(digits, byte(carry%58))
			carry /= 58
		}
	}

	out := make([]byte, 0, zeros+len(digits))
	for i := 0; i < zeros; i++ {
		out = append(out, base58Alphabet[0])
	}
	for i := len(digits) - 1; i >= 0; i-- {
		out = append(out, base58Alphabet[digits[i]])
	}
	return string(out)
}
