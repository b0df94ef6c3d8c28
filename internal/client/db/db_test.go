package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "client.db")

	conn, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec(`INSERT INTO uploads
		(id, file_name, file_size_bytes, content_type, target_url, status, updated_at)
		VALUES ('f1', 'a.bin', 7, 'application/octet-stream', 'http://x', 'initiated', 0)`)
	require.NoError(t, err)

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM uploads`).Scan(&n))
	require.Equal(t, 1, n)
}

func TestOpen_Idempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "client.db")

	conn, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	conn, err = Open(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}
