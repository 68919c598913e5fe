package wavy

type SoundType int

const (
	SoundType_Unknown SoundType = iota
	SoundType_MP3
	SoundType_WAV
	SoundType_OGG
	SoundType_FLAC
)

func (t SoundType) String() string {
	switch t {
	case SoundType_MP3:
		return "mp3"
	case SoundType_WAV:
		return "wav"
	case SoundType_OGG:
		return "ogg"
	case SoundType_FLAC:
		return "flac"
	default:
		return "unknown"
	}
}

type SampleRate int

const (
	SampleRate_22050 SampleRate = 22050
	SampleRate_44100 SampleRate = 44100
	SampleRate_48000 SampleRate = 48000
)

type SoundChannelCount int

const (
	SoundChannelCount_1 SoundChannelCount = 1
	SoundChannelCount_2 SoundChannelCount = 2
)

type SoundMode int

const (
	SoundMode_Streaming SoundMode = iota
	SoundMode_Memory
)

// AttenuationModel selects the distance falloff curve the mixer applies to spatial sources.
type AttenuationModel int32

const (
	AttenuationModel_None AttenuationModel = iota
	AttenuationModel_Inverse
	AttenuationModel_Linear
	AttenuationModel_Exponential
)

// SourceState is the lifecycle state of an AudioSource.
type SourceState int

const (
	SourceState_Uninitialized SourceState = iota
	SourceState_Initialized
	SourceState_Playing
	SourceState_Stopped
	SourceState_Destroyed
)

func (s SourceState) String() string {
	switch s {
	case SourceState_Uninitialized:
		return "uninitialized"
	case SourceState_Initialized:
		return "initialized"
	case SourceState_Playing:
		return "playing"
	case SourceState_Stopped:
		return "stopped"
	case SourceState_Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}
