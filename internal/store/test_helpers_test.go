package store

import (
	"context"
	"testing"

	"poker-club/internal/testutil"
)

func openStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	st, err := New(testutil.PostgresDSN(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.Close)
	return st, context.Background()
}

func mustCreateAccount(t *testing.T, st *Store, ctx context.Context, playerID string, initial int64) {
	t.Helper()
	if err := st.EnsureAccount(ctx, playerID, initial); err != nil {
		t.Fatalf("ensure account: %v", err)
	}
}
