package wavy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bloeys/wavy/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRoundTrip(t *testing.T) {

	path := filepath.Join(t.TempDir(), wavy.DefaultSettingsPath)

	saved := wavy.Settings{SampleRate: 48000, BufferSize: 1024, DeviceID: 3, Version: 1}
	require.NoError(t, saved.Save(path))

	var loaded wavy.Settings
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, saved, loaded)
}

func TestSettingsLayout(t *testing.T) {

	s := wavy.DefaultSettings()
	b, err := s.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, 24)

	assert.Equal(t, []byte{0xBA, 0x55, 0xFA, 0xDE}, b[0:4])
	assert.Equal(t, []byte{0, 0, 0, 1}, b[4:8])
	assert.Equal(t, []byte{0, 0, 0xAC, 0x44}, b[12:16], "44100 big-endian")
	assert.Equal(t, []byte{0, 0, 2, 0}, b[16:20])
	assert.Equal(t, []byte{0, 0, 0, 0}, b[20:24])
}

func TestSettingsCorruption(t *testing.T) {

	s := wavy.Settings{SampleRate: 44100, BufferSize: 512, DeviceID: 2, Version: 1}
	b, err := s.MarshalBinary()
	require.NoError(t, err)

	for i := range b {
		corrupt := append([]byte{}, b...)
		corrupt[i] ^= 0x01

		var out wavy.Settings
		err := out.UnmarshalBinary(corrupt)
		if i < 4 {
			assert.ErrorIs(t, err, wavy.ErrSettingsMagic, "byte %d", i)
		} else {
			assert.ErrorIs(t, err, wavy.ErrSettingsChecksum, "byte %d", i)
		}
		assert.Equal(t, wavy.Settings{}, out, "failed load must not modify settings")
	}

	var out wavy.Settings
	assert.ErrorIs(t, out.UnmarshalBinary(b[:23]), wavy.ErrSettingsSize)
	assert.ErrorIs(t, out.UnmarshalBinary(append(b, 0)), wavy.ErrSettingsSize)
}

func TestSettingsLoadFailureKeepsValues(t *testing.T) {

	dir := t.TempDir()
	s := wavy.DefaultSettings()

	err := s.Load(filepath.Join(dir, "missing.dat"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, wavy.DefaultSettings(), s)

	bad := filepath.Join(dir, "bad.dat")
	require.NoError(t, os.WriteFile(bad, make([]byte, 24), 0o644))
	assert.ErrorIs(t, s.Load(bad), wavy.ErrSettingsMagic)
	assert.Equal(t, wavy.DefaultSettings(), s)
}

func TestSettingsSaveOverwrites(t *testing.T) {

	path := filepath.Join(t.TempDir(), "settings.dat")

	first := wavy.DefaultSettings()
	require.NoError(t, first.Save(path))

	second := wavy.DefaultSettings()
	second.DeviceID = 9
	require.NoError(t, second.Save(path))

	var loaded wavy.Settings
	require.NoError(t, loaded.Load(path))
	assert.EqualValues(t, 9, loaded.DeviceID)
}
