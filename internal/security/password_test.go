package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")

	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if hash == "s3cret" {
		t.Fatal("password stored verbatim")
	}

	if err := CheckPassword(hash, "s3cret"); err != nil {
		t.Fatalf("check: %v", err)
	}

	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestDummyHashMatchesRealCost(t *testing.T) {
	// the burned compare is only a timing blind if it costs the same as a
	// compare against a real account's hash
	cost, err := bcrypt.Cost([]byte(dummyHash))

	if err != nil {
		t.Fatalf("dummy hash is not a valid bcrypt digest: %v", err)
	}

	if cost != bcrypt.DefaultCost {
		t.Fatalf("dummy hash cost %d, want %d", cost, bcrypt.DefaultCost)
	}

	CheckDummyPassword("anything")
}
