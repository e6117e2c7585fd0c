package credstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, tenantID string) *Store {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, tenantID), 0o755))
	return NewStore(base)
}

func TestWriteReadRoundtrip(t *testing.T) {
	s := newTestStore(t, "abcd1234")

	require.NoError(t, s.Write("abcd1234", "T1", 111))

	cred, err := s.Read("abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "T1", cred.BotToken)
	assert.Equal(t, int64(111), cred.AdminID)
}

func TestWriteRequiresTenantDir(t *testing.T) {
	s := NewStore(t.TempDir())

	err := s.Write("missing", "token", 1)
	assert.Error(t, err)
}

func TestReadMissingFile(t *testing.T) {
	s := NewStore(t.TempDir())

	cred, err := s.Read("nobody")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
	assert.Zero(t, cred.BotToken)
	assert.Zero(t, cred.AdminID)
}

func TestReadMissingKeys(t *testing.T) {
	s := newTestStore(t, "abcd1234")
	require.NoError(t, os.WriteFile(s.EnvPath("abcd1234"), []byte("OTHER_KEY=x\n"), 0o644))

	_, err := s.Read("abcd1234")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestReadTakesFirstAdminID(t *testing.T) {
	s := newTestStore(t, "abcd1234")
	require.NoError(t, os.WriteFile(s.EnvPath("abcd1234"), []byte("BOT_TOKEN=tok\nADMIN_IDS=42,77,99\n"), 0o644))

	cred, err := s.Read("abcd1234")
	require.NoError(t, err)
	assert.Equal(t, int64(42), cred.AdminID)
}

func TestWriteOverwritesExisting(t *testing.T) {
	s := newTestStore(t, "abcd1234")

	require.NoError(t, s.Write("abcd1234", "old", 1))
	require.NoError(t, s.Write("abcd1234", "new", 2))

	cred, err := s.Read("abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "new", cred.BotToken)
	assert.Equal(t, int64(2), cred.AdminID)
}
