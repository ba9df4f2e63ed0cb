package testutil

import (
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/systmms/dsvault/internal/keys"
)

// WriteDotenv writes vars as a .env style file named name inside dir and
// returns its path.
//
// Example usage:
//
//	path := testutil.WriteDotenv(t, dir, ".env", map[string]string{
//	    "DATABASE_URL": "postgres://localhost/app",
//	})
func WriteDotenv(t *testing.T, dir, name string, vars map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, godotenv.Write(vars, path))
	return path
}

// WriteMasterKey writes key to the default key file inside dir and returns
// the file path.
func WriteMasterKey(t *testing.T, dir, key string) string {
	t.Helper()

	path := filepath.Join(dir, keys.DefaultKeyFile)
	require.NoError(t, keys.WriteFile(path, key, true))
	return path
}
