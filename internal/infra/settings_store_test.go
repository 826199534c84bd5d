package infra

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// newTestStore creates an encrypted settings store in a temp directory for testing.
func newTestStore(t *testing.T) (*EncryptedSettingsStore, string) {
	t.Helper()
	dataDir := t.TempDir()
	key, err := GenerateKey()
	require.NoError(t, err)

	store, err := NewEncryptedSettingsStore(dataDir, key)
	require.NoError(t, err)

	t.Cleanup(func() { store.Close() })
	return store, dataDir
}

func TestEncryptedSettingsStore_LoadEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, settings)

	updated, err := store.UpdatedAt()
	require.NoError(t, err)
	assert.True(t, updated.IsZero())
}

func TestEncryptedSettingsStore_SaveAndLoad(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.Settings
	}{
		{
			name:     "defaults",
			settings: domain.DefaultSettings("youtube\nreddit"),
		},
		{
			name: "active nuclear with baseline",
			settings: domain.Settings{
				IsEnabled:          true,
				BlocklistContent:   "a\nb",
				NuclearModeEnabled: true,
				NuclearStartTime:   "21:30",
				NuclearEndTime:     "06:15",
				NuclearActive:      true,
				Action:             domain.ActionLog,
				NuclearBaseline:    "a\nb",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)

			require.NoError(t, store.Save(tt.settings))
			got, err := store.Load()
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.settings, *got)

			updated, err := store.UpdatedAt()
			require.NoError(t, err)
			assert.False(t, updated.IsZero())
		})
	}
}

func TestEncryptedSettingsStore_SaveOverwrites(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Save(domain.Settings{IsEnabled: true}))
	require.NoError(t, store.Save(domain.Settings{IsEnabled: false, BlocklistContent: "x"}))

	got, err := store.Load()
	require.NoError(t, err)
	assert.False(t, got.IsEnabled)
	assert.Equal(t, "x", got.BlocklistContent)
}

func TestEncryptedSettingsStore_Persistence(t *testing.T) {
	dataDir := t.TempDir()
	key, err := GenerateKey()
	require.NoError(t, err)

	store, err := NewEncryptedSettingsStore(dataDir, key)
	require.NoError(t, err)
	require.NoError(t, store.Save(domain.Settings{BlocklistContent: "kept"}))
	require.NoError(t, store.Close())

	reopened, err := NewEncryptedSettingsStore(dataDir, key)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, "kept", got.BlocklistContent)

	version, err := reopened.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)
}

func TestEncryptedSettingsStore_WrongKeyFails(t *testing.T) {
	dataDir := t.TempDir()
	key, err := GenerateKey()
	require.NoError(t, err)

	store, err := NewEncryptedSettingsStore(dataDir, key)
	require.NoError(t, err)
	require.NoError(t, store.Save(domain.Settings{BlocklistContent: "secret"}))
	require.NoError(t, store.Close())

	wrong, err := GenerateKey()
	require.NoError(t, err)
	_, err = NewEncryptedSettingsStore(dataDir, wrong)
	assert.Error(t, err)
}

func TestEncryptedSettingsStore_FileIsEncrypted(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save(domain.Settings{BlocklistContent: "plaintext-marker"}))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "plaintext-marker")
	assert.NotContains(t, string(raw), "SQLite format 3")
}

func TestOpenSettingsStore_CreatesKey(t *testing.T) {
	dataDir := t.TempDir()

	store, err := OpenSettingsStore(dataDir)
	require.NoError(t, err)
	require.NoError(t, store.Save(domain.Settings{BlocklistContent: "a"}))
	require.NoError(t, store.Close())

	assert.True(t, NewFileKeyProvider(dataDir).KeyExists())

	again, err := OpenSettingsStore(dataDir)
	require.NoError(t, err)
	defer again.Close()
	got, err := again.Load()
	require.NoError(t, err)
	assert.Equal(t, "a", got.BlocklistContent)
}
