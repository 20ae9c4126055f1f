package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"storykit/core"

	"github.com/zaf/g711"
)

// DecodeToPCM converts a captured audio chunk to 16-bit little-endian PCM.
// μ-law telephony capture is expanded via g711; PCM passes through unchanged.
func DecodeToPCM(chunk core.AudioChunk) (core.AudioChunk, error) {
	switch chunk.Format {
	case core.PCM:
		return chunk, nil
	case core.ULAW:
		pcm := g711.DecodeUlaw(chunk.Data)
		return core.AudioChunk{
			Data:       pcm,
			SampleRate: chunk.SampleRate,
			Channels:   chunk.Channels,
			Format:     core.PCM,
		}, nil
	default:
		return core.AudioChunk{}, fmt.Errorf("audio: cannot decode format %d to PCM", chunk.Format)
	}
}

// EncodeWAV wraps raw 16-bit PCM in a RIFF/WAVE container so it can be posted
// to the transcription service as a regular audio file.
func EncodeWAV(pcm []byte, sampleRate int, channels int) []byte {
	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
