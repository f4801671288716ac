package firestore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/mindhaven/internal/domain"
	"github.com/MrSnakeDoc/mindhaven/internal/store/storetest"
)

// Runs only against the Firestore emulator:
//
//	gcloud emulators firestore start --host-port=localhost:8681
//	FIRESTORE_EMULATOR_HOST=localhost:8681 go test ./internal/store/firestore/
func TestEntryStoreConformance(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	storetest.Run(t, func(t *testing.T) domain.EntryStore {
		s, err := New(context.Background(), Options{
			ProjectID:  "mindhaven-test",
			Collection: "journal-" + uuid.NewString(),
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(context.Background(), Options{Collection: "journal"})
	require.Error(t, err)
	_, err = New(context.Background(), Options{ProjectID: "p"})
	require.Error(t, err)
}
