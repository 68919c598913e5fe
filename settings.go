package wavy

import (
	"fmt"
	"hash/crc32"
	"os"
)

const (
	DefaultSettingsPath = "audiosettings.dat"

	settingsMagic   uint32 = 0xBA55FADE
	settingsVersion uint32 = 1
	settingsSize           = 24
)

// Settings is the persisted device configuration.
//
// On disk it is a fixed 24 byte big-endian record:
//
//	[0..4)   magic 0xBA55FADE
//	[4..8)   version
//	[8..12)  CRC32 of every other field
//	[12..16) sample rate
//	[16..20) buffer size in frames
//	[20..24) device index
type Settings struct {
	SampleRate uint32
	BufferSize uint32
	DeviceID   uint32
	Version    uint32
}

func DefaultSettings() Settings {
	return Settings{
		SampleRate: uint32(SampleRate_44100),
		BufferSize: 512,
		DeviceID:   0,
		Version:    settingsVersion,
	}
}

// Load replaces s with the record stored at path.
// On any error s is left untouched.
func (s *Settings) Load(path string) error {

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return s.UnmarshalBinary(data)
}

// Save writes s to path, overwriting any existing file. The checksum is always recomputed.
func (s *Settings) Save(path string) error {

	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing audio settings: %w", err)
	}
	return nil
}

func (s *Settings) MarshalBinary() ([]byte, error) {

	version := s.Version
	if version == 0 {
		version = settingsVersion
	}

	b := make([]byte, settingsSize)
	putUint32BE(b[0:], settingsMagic)
	putUint32BE(b[4:], version)
	putUint32BE(b[12:], s.SampleRate)
	putUint32BE(b[16:], s.BufferSize)
	putUint32BE(b[20:], s.DeviceID)
	putUint32BE(b[8:], settingsChecksum(b))

	return b, nil
}

func (s *Settings) UnmarshalBinary(b []byte) error {

	if len(b) != settingsSize {
		return fmt.Errorf("%w: got %d bytes", ErrSettingsSize, len(b))
	}

	if getUint32BE(b[0:]) != settingsMagic {
		return ErrSettingsMagic
	}

	if getUint32BE(b[8:]) != settingsChecksum(b) {
		return ErrSettingsChecksum
	}

	s.Version = getUint32BE(b[4:])
	s.SampleRate = getUint32BE(b[12:])
	s.BufferSize = getUint32BE(b[16:])
	s.DeviceID = getUint32BE(b[20:])
	return nil
}

// settingsChecksum is the IEEE CRC32 (reflected 0xEDB88320) of the record with the
// checksum field skipped.
func settingsChecksum(b []byte) uint32 {
	crc := crc32.NewIEEE()
	crc.Write(b[0:8])
	crc.Write(b[12:settingsSize])
	return crc.Sum32()
}

func putUint32BE(b []byte, v uint32) {
	_ = b[3]
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getUint32BE(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
