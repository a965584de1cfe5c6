// Package ledger defines the call surface the archive uses to read from and
// write to the distributed ledger: identities, instructions, transaction
// assembly and the Gateway interfaces implemented by the rpc and memledger
// packages. Wire types come from solana-go.
package ledger

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PublicKeySize is the length of an account address in bytes.
const PublicKeySize = solana.PublicKeyLength

// PublicKey is a ledger account address. Its text form is base58.
type PublicKey = solana.PublicKey

// Hash is a 32-byte ledger hash such as a recent blockhash.
type Hash = solana.Hash

// SystemProgramID owns account creation.
var SystemProgramID = solana.SystemProgramID

// ParsePublicKey decodes a base58 account address.
func ParsePublicKey(s string) (PublicKey, error) {
	k, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("parsing public key %q: %w", s, err)
	}
	return k, nil
}

// MustPublicKey is ParsePublicKey for compile-time constants; it panics on error.
func MustPublicKey(s string) PublicKey {
	return solana.MustPublicKeyFromBase58(s)
}

// Signature identifies one ledger transaction. It is the base58 text of the
// fee payer's ed25519 signature.
type Signature string

func (s Signature) String() string {
	return string(s)
}

// Decode parses s into its 64-byte wire form.
func (s Signature) Decode() (solana.Signature, error) {
	sig, err := solana.SignatureFromBase58(string(s))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("parsing signature %q: %w", s, err)
	}
	return sig, nil
}

// SignatureOf converts a wire signature to its text form.
func SignatureOf(sig solana.Signature) Signature {
	return Signature(sig.String())
}

// Keypair is an ed25519 signing identity. The zero value holds no key.
type Keypair struct {
	key solana.PrivateKey
}

// NewKeypair generates a fresh random identity.
func NewKeypair() (Keypair, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return Keypair{}, fmt.Errorf("generating keypair: %w", err)
	}
	return Keypair{key: key}, nil
}

// KeypairFromSecret restores an identity from its 64-byte secret key
// (seed followed by public key, the layout wallets export).
func KeypairFromSecret(secret []byte) (Keypair, error) {
	if _, err := solana.ValidatePrivateKey(secret); err != nil {
		return Keypair{}, err
	}
	derived := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
	if !bytes.Equal(derived, secret) {
		return Keypair{}, fmt.Errorf("secret key public half does not match its seed")
	}
	return Keypair{key: solana.PrivateKey(bytes.Clone(secret))}, nil
}

// LoadKeypairFile reads a CLI key file holding the secret key as a JSON array
// of 64 byte values.
func LoadKeypairFile(path string) (Keypair, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return Keypair{}, fmt.Errorf("loading keypair file %s: %w", path, err)
	}
	return KeypairFromSecret(key)
}

// PublicKey returns the identity's account address, or the zero key for the
// zero Keypair.
func (k Keypair) PublicKey() PublicKey {
	if k.IsZero() {
		return PublicKey{}
	}
	return k.key.PublicKey()
}

// IsZero reports whether k holds no key material.
func (k Keypair) IsZero() bool {
	return len(k.key) == 0
}

// Secret returns a copy of the 64-byte secret key in the layout
// LoadKeypairFile reads.
func (k Keypair) Secret() []byte {
	return bytes.Clone(k.key)
}

// PrivateKey exposes the key to solana-go signing.
func (k Keypair) PrivateKey() solana.PrivateKey {
	return k.key
}
