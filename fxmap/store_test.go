package fxmap_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwicat/oscremap/fxmap"
)

func TestStoreLoadMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist.yaml")

	s, err := fxmap.Load(path, nil)
	require.NoError(t, err)

	m := s.GetOrCreate("Reverb")
	assert.Empty(t, m.Pairs())
}

func TestStoreLoadEmptyFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	s, err := fxmap.Load(path, nil)
	require.NoError(t, err)
	assert.Empty(t, s.GetOrCreate("Reverb").Pairs())
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	// Property: persistence idempotence.
	dir := t.TempDir()
	path := filepath.Join(dir, "fxmaps.yaml")

	s := fxmap.NewStore(path, nil)
	reverb := s.GetOrCreate("Reverb")
	reverb.ForcePut(3, 7)
	reverb.ForcePut(5, 12)
	delay := s.GetOrCreate("Delay")
	delay.ForcePut(1, 1)

	require.NoError(t, s.Save())

	reloaded, err := fxmap.Load(path, nil)
	require.NoError(t, err)

	gotReverb := reloaded.GetOrCreate("Reverb").Pairs()
	gotDelay := reloaded.GetOrCreate("Delay").Pairs()

	assert.ElementsMatch(t, reverb.Pairs(), gotReverb)
	assert.ElementsMatch(t, delay.Pairs(), gotDelay)
}

func TestStoreLoadRejectsDuplicateSourceKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dup.yaml")
	// Two mapping entries under the same source key 3 within one FX.
	yamlDoc := "Reverb:\n  3: 7\n  3: 9\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	_, err := fxmap.Load(path, nil)
	assert.Error(t, err)
}

func TestStoreLoadRejectsDuplicateTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "duptarget.yaml")
	yamlDoc := "Reverb:\n  1: 7\n  2: 7\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	_, err := fxmap.Load(path, nil)
	assert.Error(t, err)
}

func TestStoreGetOrCreateInsertsFreshEmptyMap(t *testing.T) {
	dir := t.TempDir()
	s := fxmap.NewStore(filepath.Join(dir, "x.yaml"), nil)

	m1 := s.GetOrCreate("Chorus")
	m1.ForcePut(1, 2)

	m2 := s.GetOrCreate("Chorus")
	target, ok := m2.Get(1)
	require.True(t, ok)
	assert.Equal(t, 2, target)
}

func TestStoreSaveNeverLeavesTruncatedFile(t *testing.T) {
	// Atomic save: the destination path, once written once, always
	// contains a complete prior document or a complete new one -
	// never a half-written one, because Save writes to a temp file
	// and renames it into place.
	dir := t.TempDir()
	path := filepath.Join(dir, "atomic.yaml")
	s := fxmap.NewStore(path, nil)
	s.GetOrCreate("Reverb").ForcePut(1, 2)
	require.NoError(t, s.Save())

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp file leaked after Save")
	}

	s.GetOrCreate("Reverb").ForcePut(3, 4)
	require.NoError(t, s.Save())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}
