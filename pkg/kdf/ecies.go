package kdf

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/stealthscan/threshold-wallet/pkg/curve"
)

// eciesInfo is the HKDF info parameter fixing key derivation to this
// protocol.
var eciesInfo = []byte("ecies-secp256k1-key")

var (
	ErrInvalidKeyLength = errors.New("kdf: key must be 16 or 32 bytes (AES-128 or AES-256)")
	ErrInvalidIVLength  = errors.New("kdf: IV must be 16 bytes")
)

// DeriveECIESKey derives a 32-byte symmetric key from the shared point S
// via HKDF-SHA256(ikm=X(S), salt=nil, info="ecies-secp256k1-key", L=32).
// The caller is responsible for zeroizing S after this call.
func DeriveECIESKey(s curve.Point) ([32]byte, error) {
	x := s.X32()
	reader := hkdf.New(sha256.New, x[:], nil, eciesInfo)
	var key [32]byte
	if _, err := io.ReadFull(reader, key[:]); err != nil {
		return [32]byte{}, err
	}
	return key, nil
}

// EncryptCTR encrypts plaintext with AES-CTR using the given key (16 or 32
// bytes selects AES-128 or AES-256) and IV. Unauthenticated: the caller's
// on-chain commitment serves as the integrity anchor for this mode.
func EncryptCTR(key, iv, plaintext []byte) ([]byte, error) {
	return ctrXOR(key, iv, plaintext)
}

// DecryptCTR decrypts AES-CTR ciphertext. CTR is its own inverse.
func DecryptCTR(key, iv, ciphertext []byte) ([]byte, error) {
	return ctrXOR(key, iv, ciphertext)
}

func ctrXOR(key, iv, data []byte) ([]byte, error) {
	if len(key) != 16 && len(key) != 32 {
		return nil, ErrInvalidKeyLength
	}
	if len(iv) != 16 {
		return nil, ErrInvalidIVLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	stream := cipher.NewCTR(block, iv)
	out := make([]byte, len(data))
	stream.XORKeyStream(out, data)
	return out, nil
}

// EncryptGCM encrypts plaintext with AES-GCM, the authenticated
// alternative to the unauthenticated CTR mode.
// nonce must be 12 bytes (the standard GCM nonce size).
func EncryptGCM(key, nonce, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, errors.New("kdf: GCM nonce must be 12 bytes")
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// DecryptGCM decrypts and authenticates AES-GCM ciphertext.
func DecryptGCM(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, errors.New("kdf: GCM nonce must be 12 bytes")
	}
	return aead.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 16 && len(key) != 32 {
		return nil, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
