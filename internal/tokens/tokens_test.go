package tokens

import (
	"strings"
	"testing"
	"time"
)

func TestMintAndValidate(t *testing.T) {
	t.Parallel()

	minter, err := NewMinter([]byte("test-signing-key"), time.Minute)
	if err != nil {
		t.Fatalf("NewMinter error: %v", err)
	}

	token, expires, err := minter.Mint("models/gemini-2.0-flash-live-001")
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}
	if time.Until(expires) > time.Minute || time.Until(expires) <= 0 {
		t.Fatalf("expires=%v, want within the ttl", expires)
	}

	claims, err := minter.Validate(token)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if claims.Model != "models/gemini-2.0-flash-live-001" {
		t.Fatalf("model=%q", claims.Model)
	}
	if claims.ID == "" {
		t.Fatal("missing jti")
	}
}

func TestMint_UniqueTokenIDs(t *testing.T) {
	t.Parallel()

	minter, err := NewMinter([]byte("test-signing-key"), time.Minute)
	if err != nil {
		t.Fatalf("NewMinter error: %v", err)
	}
	a, _, err := minter.Mint("models/m")
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}
	b, _, err := minter.Mint("models/m")
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}
	ca, _ := minter.Validate(a)
	cb, _ := minter.Validate(b)
	if ca == nil || cb == nil || ca.ID == cb.ID {
		t.Fatal("token ids must differ per mint")
	}
}

func TestValidate_RejectsWrongKey(t *testing.T) {
	t.Parallel()

	minter, _ := NewMinter([]byte("key-one"), time.Minute)
	other, _ := NewMinter([]byte("key-two"), time.Minute)

	token, _, err := minter.Mint("models/m")
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}
	if _, err := other.Validate(token); err == nil {
		t.Fatal("token signed with a different key validated")
	}
}

func TestValidate_RejectsExpired(t *testing.T) {
	t.Parallel()

	minter, _ := NewMinter([]byte("key"), time.Nanosecond)
	token, _, err := minter.Mint("models/m")
	if err != nil {
		t.Fatalf("Mint error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := minter.Validate(token); err == nil {
		t.Fatal("expired token validated")
	}
}

func TestValidate_RejectsGarbage(t *testing.T) {
	t.Parallel()

	minter, _ := NewMinter([]byte("key"), time.Minute)
	for _, token := range []string{"", "not.a.jwt", strings.Repeat("a", 64)} {
		if _, err := minter.Validate(token); err == nil {
			t.Fatalf("garbage token %q validated", token)
		}
	}
}

func TestNewMinter_EmptyKeyRejected(t *testing.T) {
	t.Parallel()

	if _, err := NewMinter(nil, time.Minute); err == nil {
		t.Fatal("expected error for empty key")
	}
}
