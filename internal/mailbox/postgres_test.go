package mailbox_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciphergroup/internal/mailbox"
)

// Runs only against a real database, e.g.
// RELAY_TEST_DATABASE_URL=postgres://localhost/relay_test go test ./internal/mailbox
func TestPostgres_AppendSince(t *testing.T) {
	url := os.Getenv("RELAY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("RELAY_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pg, err := mailbox.NewPostgres(ctx, url, 0)
	require.NoError(t, err)
	defer pg.Close()
	require.NoError(t, pg.RunMigrations(ctx))

	recipient := "test-" + uuid.NewString()
	a, err := pg.Append(ctx, recipient, "one")
	require.NoError(t, err)
	b, err := pg.Append(ctx, recipient, "two")
	require.NoError(t, err)
	assert.Greater(t, b.TS, a.TS)

	items, err := pg.Since(ctx, recipient, a.TS)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b, items[0])

	empty, err := pg.Since(ctx, "missing-"+uuid.NewString(), 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
