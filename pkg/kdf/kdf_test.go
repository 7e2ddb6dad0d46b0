package kdf

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stealthscan/threshold-wallet/pkg/curve"
)

func testPoint(t *testing.T) curve.Point {
	t.Helper()
	k, err := curve.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	return curve.ScalarBaseMult(k)
}

func TestDeriveTagDeterministic(t *testing.T) {
	s := testPoint(t)

	p1, a1, err := DeriveTag(s, CodecX32)
	if err != nil {
		t.Fatal(err)
	}
	p2, a2, err := DeriveTag(s, CodecX32)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 || a1 != nil || a2 != nil {
		t.Error("DeriveTag(x32) is not deterministic")
	}
}

func TestDeriveTagAutoReturnsBoth(t *testing.T) {
	s := testPoint(t)

	x32Primary, _, _ := DeriveTag(s, CodecX32)
	comp33Primary, _, _ := DeriveTag(s, CodecComp33)
	autoPrimary, autoAlt, err := DeriveTag(s, CodecAuto)
	if err != nil {
		t.Fatal(err)
	}
	if autoPrimary != x32Primary {
		t.Error("auto primary should equal x32 tag")
	}
	if autoAlt == nil || *autoAlt != comp33Primary {
		t.Error("auto alternate should equal comp33 tag")
	}
}

func TestMatchesEitherCodec(t *testing.T) {
	s := testPoint(t)
	primary, alternate, _ := DeriveTag(s, CodecAuto)

	if !Matches(primary, primary, alternate) {
		t.Error("primary should match")
	}
	if !Matches(*alternate, primary, alternate) {
		t.Error("alternate should match")
	}
	var mismatch Tag
	if Matches(mismatch, primary, alternate) {
		t.Error("unrelated tag should not match")
	}
}

func TestUnknownCodec(t *testing.T) {
	s := testPoint(t)
	if _, _, err := DeriveTag(s, Codec("bogus")); err != ErrUnknownCodec {
		t.Errorf("got %v, want ErrUnknownCodec", err)
	}
}

func TestDeriveECIESKeyDeterministic(t *testing.T) {
	s := testPoint(t)
	k1, err := DeriveECIESKey(s)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := DeriveECIESKey(s)
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Error("DeriveECIESKey is not deterministic")
	}
}

func TestCTRRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	rand.Read(key)
	iv := make([]byte, 16)
	rand.Read(iv)
	plaintext := []byte("1000")

	ct, err := EncryptCTR(key, iv, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	pt, err := DecryptCTR(key, iv, ct)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Errorf("got %q, want %q", pt, plaintext)
	}
}

func TestGCMRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	rand.Read(key)
	nonce := make([]byte, 12)
	rand.Read(nonce)
	plaintext := []byte("1000")

	ct, err := EncryptGCM(key, nonce, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	pt, err := DecryptGCM(key, nonce, ct)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Errorf("got %q, want %q", pt, plaintext)
	}

	ct[0] ^= 0xff
	if _, err := DecryptGCM(key, nonce, ct); err == nil {
		t.Error("tampered GCM ciphertext should fail to decrypt")
	}
}

func TestInvalidKeyLength(t *testing.T) {
	if _, err := EncryptCTR(make([]byte, 10), make([]byte, 16), []byte("x")); err != ErrInvalidKeyLength {
		t.Errorf("got %v, want ErrInvalidKeyLength", err)
	}
}
