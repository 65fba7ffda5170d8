package domain

import (
	"errors"
	"testing"
)

func TestKindOf(t *testing.T) {
	if KindOf(ErrValidation("bad")) != KindValidation {
		t.Fatal("validation kind lost")
	}
	if KindOf(errors.New("plain")) != KindIO {
		t.Fatal("unknown errors classify as io")
	}
}

func TestIsKindThroughWrapping(t *testing.T) {
	err := ErrNotFound("payment x")
	wrapped := errors.Join(errors.New("outer"), err)
	if !IsKind(wrapped, KindNotFound) {
		t.Fatal("kind must survive wrapping")
	}
}

func TestAsBillingErrorPreservesKind(t *testing.T) {
	cases := []struct {
		in   ProcessorErrorKind
		want ErrorKind
	}{
		{ProcessorProviderUnavailable, KindProviderUnavailable},
		{ProcessorValidation, KindValidation},
		{ProcessorTransport, KindProviderUnavailable},
		{ProcessorUnexpected, KindProviderUnavailable},
	}
	for _, tc := range cases {
		err := AsBillingError(&ProcessorError{Kind: tc.in, Msg: "x"})
		if KindOf(err) != tc.want {
			t.Fatalf("%s mapped to %s, want %s", tc.in, KindOf(err), tc.want)
		}
	}
	if AsBillingError(nil) != nil {
		t.Fatal("nil passes through")
	}
}

func TestParseProviderKind(t *testing.T) {
	if kind, ok := ParseProviderKind(" Apple_Pay "); !ok || kind != ProviderApplePay {
		t.Fatalf("got %q ok=%v", kind, ok)
	}
	if _, ok := ParseProviderKind("cash_under_mattress"); ok {
		t.Fatal("unknown kind accepted")
	}
}

func TestParseTier(t *testing.T) {
	if tier, ok := ParseTier("ENTERPRISE"); !ok || tier != TierEnterprise {
		t.Fatalf("got %q ok=%v", tier, ok)
	}
	if _, ok := ParseTier("diamond"); ok {
		t.Fatal("unknown tier accepted")
	}
}
