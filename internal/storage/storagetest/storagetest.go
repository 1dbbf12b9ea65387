// Package storagetest opens session stores for tests.
package storagetest

import (
	"testing"

	"github.com/GriffinCanCode/appwatch/internal/storage"
)

// OpenMemory opens an in-memory store and closes it when t ends.
func OpenMemory(t testing.TB) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storagetest.OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
