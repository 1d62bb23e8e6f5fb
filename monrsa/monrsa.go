// Package monrsa implements the raw RSA codec the monitor protocol uses for
// credential confidentiality. Ciphertext travels as a base-10 integer string
// and plaintext is the big-endian byte expansion of the message. The scheme
// is deliberately unpadded to remain wire-compatible with existing clients;
// it protects short one-shot credential fields, nothing more.
package monrsa

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// DefaultKeyBits is the modulus size used when none is configured.
const DefaultKeyBits = 1024

var (
	// ErrNotCiphertext indicates input that is not a base-10 integer. Callers
	// use this to distinguish "wrong key format" from a real failure.
	ErrNotCiphertext = errors.New("input is not a base-10 ciphertext")

	// ErrMessageTooLong indicates plaintext longer than the modulus allows.
	ErrMessageTooLong = errors.New("message too long for key modulus")

	// ErrNoPrivateKey indicates a decrypt attempt on a public-only key.
	ErrNoPrivateKey = errors.New("key has no private exponent")
)

// Key holds an RSA keypair, or only the public half for encrypt-only use.
type Key struct {
	e *big.Int
	d *big.Int
	n *big.Int
}

// Generate creates a new keypair with a modulus of the given bit size.
func Generate(bits int) (*Key, error) {
	if bits <= 0 {
		bits = DefaultKeyBits
	}
	e := big.NewInt(65537)
	one := big.NewInt(1)

	for {
		p, err := rand.Prime(rand.Reader, bits/2)
		if err != nil {
			return nil, fmt.Errorf("generate prime: %w", err)
		}
		q, err := rand.Prime(rand.Reader, bits-bits/2)
		if err != nil {
			return nil, fmt.Errorf("generate prime: %w", err)
		}
		if p.Cmp(q) == 0 {
			continue
		}

		n := new(big.Int).Mul(p, q)
		phi := new(big.Int).Mul(new(big.Int).Sub(p, one), new(big.Int).Sub(q, one))

		d := new(big.Int)
		if d.ModInverse(e, phi) == nil {
			// e shares a factor with phi, try new primes
			continue
		}
		return &Key{e: e, d: d, n: n}, nil
	}
}

// NewPublic builds an encrypt-only key from public parameters, typically the
// exponent and modulus lines returned by the rsa or rsapersist commands.
func NewPublic(e, n *big.Int) *Key {
	return &Key{
		e: new(big.Int).Set(e),
		n: new(big.Int).Set(n),
	}
}

// E returns the public exponent.
func (k *Key) E() *big.Int {
	return new(big.Int).Set(k.e)
}

// N returns the modulus.
func (k *Key) N() *big.Int {
	return new(big.Int).Set(k.n)
}

// Encrypt encodes the plaintext as a big-endian integer and returns the
// base-10 wire form of its RSA encryption.
func (k *Key) Encrypt(plain string) (string, error) {
	m := new(big.Int).SetBytes([]byte(plain))
	if m.Cmp(k.n) >= 0 {
		return "", ErrMessageTooLong
	}
	return new(big.Int).Exp(m, k.e, k.n).String(), nil
}

// Decrypt parses a base-10 wire ciphertext and returns the recovered
// plaintext. Input that is not a decimal integer yields ErrNotCiphertext so
// callers can fall through to another credential strategy.
func (k *Key) Decrypt(cipher string) (string, error) {
	if k.d == nil {
		return "", ErrNoPrivateKey
	}
	c, ok := new(big.Int).SetString(cipher, 10)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotCiphertext, cipher)
	}
	m := new(big.Int).Exp(c, k.d, k.n)
	return string(m.Bytes()), nil
}
