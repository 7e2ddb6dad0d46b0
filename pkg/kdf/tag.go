// Package kdf implements the key-derivation and symmetric-cipher layer:
// tag derivation from the threshold ECDH point S, ECIES key derivation
// via HKDF-SHA256, and AES-CTR/AES-GCM encryption.
package kdf

import (
	"crypto/sha256"
	"errors"

	"github.com/stealthscan/threshold-wallet/pkg/curve"
)

// Codec selects which serialization of the shared point S feeds the tag
// hash. A fresh deployment should pick exactly one; auto exists only to
// support historical senders that used different encodings.
type Codec string

const (
	CodecX32    Codec = "x32"
	CodecComp33 Codec = "comp33"
	CodecAuto   Codec = "auto"
)

// ErrUnknownCodec is returned for any Codec value other than the three
// defined constants.
var ErrUnknownCodec = errors.New("kdf: unknown tag codec")

// Tag is the 32-byte on-chain linkability marker derived from the shared
// point S.
type Tag [32]byte

// DeriveTag computes the tag(s) for the shared point S under the given
// codec:
//
//	x32:    KECCAK256( SHA256( X(S) ) )
//	comp33: KECCAK256( SHA256( ENC_COMPRESSED(S) ) )
//	auto:   both; primary is x32, alternate is comp33
//
// The caller is responsible for zeroizing S after this call.
func DeriveTag(s curve.Point, codec Codec) (primary Tag, alternate *Tag, err error) {
	switch codec {
	case CodecX32:
		primary = tagFromX32(s)
		return primary, nil, nil
	case CodecComp33:
		primary = tagFromComp33(s)
		return primary, nil, nil
	case CodecAuto:
		primary = tagFromX32(s)
		alt := tagFromComp33(s)
		return primary, &alt, nil
	default:
		return Tag{}, nil, ErrUnknownCodec
	}
}

// Matches reports whether want equals primary or (when present) alternate.
// This implements the "auto" match-on-either-codec rule.
func Matches(want Tag, primary Tag, alternate *Tag) bool {
	if want == primary {
		return true
	}
	return alternate != nil && want == *alternate
}

func tagFromX32(s curve.Point) Tag {
	x := s.X32()
	sum := sha256.Sum256(x[:])
	return Tag(Keccak256(sum[:]))
}

func tagFromComp33(s curve.Point) Tag {
	c := s.EncodeCompressed()
	sum := sha256.Sum256(c[:])
	return Tag(Keccak256(sum[:]))
}
