package storage

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyring_RoundTrip(t *testing.T) {
	keyring.MockInit()
	k := NewKeyring()

	if key, err := k.GetAPIKey(); err != nil || key != "" {
		t.Fatalf("Expected no key, got %q, %v", key, err)
	}
	if err := k.SaveAPIKey(""); err == nil {
		t.Error("Expected an error for an empty key")
	}
	if err := k.SaveAPIKey("sk-test"); err != nil {
		t.Fatal(err)
	}
	if key, _ := k.GetAPIKey(); key != "sk-test" {
		t.Errorf("Expected sk-test, got %q", key)
	}
	if err := k.DeleteAPIKey(); err != nil {
		t.Fatal(err)
	}
	if err := k.DeleteAPIKey(); err != nil {
		t.Errorf("Deleting a missing key should succeed: %v", err)
	}
}
