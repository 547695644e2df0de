package security

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret1")

	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if hash == "secret1" {
		t.Fatal("stored value equals the plaintext password")
	}

	if !IsHashed(hash) {
		t.Fatalf("hash %q does not carry the bcrypt prefix", hash)
	}

	if err := CheckPassword(hash, "secret1"); err != nil {
		t.Fatalf("CheckPassword rejected the correct password: %v", err)
	}

	if err := CheckPassword(hash, "wrong-password"); err == nil {
		t.Fatal("CheckPassword accepted a wrong password")
	}
}

func TestHashIfNeededIsIdempotent(t *testing.T) {
	first, err := HashIfNeeded("secret1")

	if err != nil {
		t.Fatalf("HashIfNeeded returned error: %v", err)
	}

	if !IsHashed(first) {
		t.Fatalf("plaintext was not hashed: %q", first)
	}

	// running the save path again with the stored value must not re-hash
	second, err := HashIfNeeded(first)

	if err != nil {
		t.Fatalf("HashIfNeeded returned error on hashed input: %v", err)
	}

	if second != first {
		t.Fatalf("already-hashed value was re-hashed: %q != %q", second, first)
	}
}
