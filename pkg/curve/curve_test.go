package curve

import (
	"bytes"
	"testing"
)

func TestScalarArithmetic(t *testing.T) {
	a := ScalarFromInt(7)
	b := ScalarFromInt(3)

	if got := a.Add(b); got.big().Int64() != 10 {
		t.Errorf("Add: got %v, want 10", got.big())
	}
	if got := a.Sub(b); got.big().Int64() != 4 {
		t.Errorf("Sub: got %v, want 4", got.big())
	}
	if got := a.Mul(b); got.big().Int64() != 21 {
		t.Errorf("Mul: got %v, want 21", got.big())
	}
}

func TestScalarInverse(t *testing.T) {
	a := ScalarFromInt(12345)
	inv := a.Inverse()
	product := a.Mul(inv)
	if !product.big().IsInt64() || product.big().Int64() != 1 {
		t.Fatalf("a * a^-1 = %v, want 1", product.big())
	}
}

func TestScalarInverseZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic inverting zero scalar")
		}
	}()
	ScalarFromInt(0).Inverse()
}

func TestScalarValidateShareRange(t *testing.T) {
	if err := ScalarFromInt(0).ValidateShareRange(); err == nil {
		t.Error("0 should be rejected as a share value")
	}
	if err := ScalarFromInt(5).ValidateShareRange(); err != nil {
		t.Errorf("5 should be a valid share value: %v", err)
	}
}

func TestDecodeCompressedRejectsBadInput(t *testing.T) {
	cases := map[string][]byte{
		"too short":  bytes.Repeat([]byte{0x02}, 10),
		"too long":   bytes.Repeat([]byte{0x02}, 40),
		"bad prefix": append([]byte{0x04}, bytes.Repeat([]byte{0x01}, 32)...),
		"off curve":  append([]byte{0x02}, bytes.Repeat([]byte{0xff}, 32)...),
	}
	for name, b := range cases {
		if _, err := DecodeCompressed(b); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	k, err := RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	p := ScalarBaseMult(k)
	enc := p.EncodeCompressed()

	decoded, err := DecodeCompressed(enc[:])
	if err != nil {
		t.Fatalf("DecodeCompressed: %v", err)
	}
	if decoded.EncodeCompressed() != enc {
		t.Error("round trip did not preserve the point")
	}
}

func TestMulAddCombine(t *testing.T) {
	k1, _ := RandomScalar()
	k2, _ := RandomScalar()

	g := ScalarBaseMult(ScalarFromInt(1))
	p1 := Mul(g, k1)
	p2 := Mul(g, k2)

	sum := Add(p1, p2)
	expected := ScalarBaseMult(k1.Add(k2))

	if sum.EncodeCompressed() != expected.EncodeCompressed() {
		t.Error("Add(k1*G, k2*G) != (k1+k2)*G")
	}

	combined, err := Combine([]Point{p1, p2})
	if err != nil {
		t.Fatal(err)
	}
	if combined.EncodeCompressed() != expected.EncodeCompressed() {
		t.Error("Combine([k1*G, k2*G]) != (k1+k2)*G")
	}
}

func TestCombineEmptySet(t *testing.T) {
	if _, err := Combine(nil); err != ErrEmptyPointSet {
		t.Errorf("got %v, want ErrEmptyPointSet", err)
	}
}
