package token

import (
	"context"
	"os"
	"testing"
	"time"
)

// testValkey connects to a local Valkey instance, skipping the test when
// none is reachable.
func testValkey(t *testing.T) *RevocationList {
	t.Helper()

	host := os.Getenv("VALKEY_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("VALKEY_PORT")
	if port == "" {
		port = "6379"
	}

	client, err := ConnectValkey(host+":"+port, os.Getenv("VALKEY_PASSWORD"))
	if err != nil {
		t.Skipf("skipping integration test: valkey not reachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewRevocationList(client)
}

func TestRevocationList(t *testing.T) {
	revoked := testValkey(t)
	ctx := context.Background()

	is, err := revoked.IsRevoked(ctx, "test-token-unknown")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if is {
		t.Error("unknown token must not be revoked")
	}

	if err := revoked.Revoke(ctx, "test-token-a", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	is, err = revoked.IsRevoked(ctx, "test-token-a")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !is {
		t.Error("revoked token must report as revoked")
	}

	// Revoking an already-expired token is a no-op.
	if err := revoked.Revoke(ctx, "test-token-expired", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Revoke (expired): %v", err)
	}
	is, err = revoked.IsRevoked(ctx, "test-token-expired")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if is {
		t.Error("expired token must not be stored in the revocation list")
	}
}

func TestManagerRevokeRoundTrip(t *testing.T) {
	revoked := testValkey(t)
	m := NewManager("test-secret", time.Hour, revoked)
	ctx := context.Background()

	if !m.CanRevoke() {
		t.Fatal("CanRevoke should be true with a revocation list")
	}

	signed, err := m.Issue(9, "carol")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := m.Verify(ctx, signed)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if err := m.Revoke(ctx, claims); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := m.Verify(ctx, signed); err == nil {
		t.Error("expected verification to fail after revocation")
	}

	// Other tokens for the same user are unaffected.
	other, err := m.Issue(9, "carol")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m.Verify(ctx, other); err != nil {
		t.Errorf("unrevoked token should still verify: %v", err)
	}
}
