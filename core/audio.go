package core

type AudioEncodingFormat int

const (
	PCM  AudioEncodingFormat = iota // 16-bit little-endian pulse-code modulation.
	ULAW                            // μ-law encoding, 8 kHz telephony capture.
	MP3                             // MPEG audio as returned by the synthesis service.
)

type AudioChunk struct {
	Data       []byte              // Raw audio data.
	SampleRate int                 // Sample rate of the audio data.
	Channels   int                 // Number of audio channels.
	Format     AudioEncodingFormat // Encoding format of the audio data.
}

func (ac *AudioChunk) GetDurationInSeconds() float64 {
	if ac.SampleRate == 0 || ac.Channels == 0 || ac.Format != PCM {
		return 0.0
	}
	bytesPerSample := 2 // 16-bit audio
	totalSamples := len(ac.Data) / (bytesPerSample * ac.Channels)
	return float64(totalSamples) / float64(ac.SampleRate)
}
