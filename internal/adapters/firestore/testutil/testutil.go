// Package testutil opens a Firestore emulator client for adapter contract tests.
package testutil

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

// OpenEmulatorClient returns a client bound to FIRESTORE_EMULATOR_HOST and a collection
// prefix unique to the test. The test is skipped when no emulator is configured.
func OpenEmulatorClient(t *testing.T) (*firestore.Client, string) {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set; skipping Firestore contract test")
	}
	client, err := firestore.NewClient(context.Background(), "demo-plan-sharing")
	if err != nil {
		t.Fatalf("firestore client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, "t" + uuid.NewString()[:8] + "_"
}
