// Package pcm decodes cloud audio payloads into 16-bit little-endian PCM
// in the format the audio player was opened with.
package pcm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// Format describes signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// BytesPerFrame returns the size of one frame across all channels.
func (f Format) BytesPerFrame() int {
	return 2 * f.Channels
}

// Validate checks the format is usable.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", f.Channels)
	}
	return nil
}

var (
	// ErrUnknownContainer is returned for payloads that are neither WAV nor MP3.
	ErrUnknownContainer = errors.New("unrecognized audio container")

	// ErrUnsupportedEncoding is returned for WAV files that are not PCM16.
	ErrUnsupportedEncoding = errors.New("unsupported audio encoding")

	// ErrEmpty is returned for payloads without samples.
	ErrEmpty = errors.New("audio payload is empty")
)

// Decode sniffs the container, decodes it and converts the samples to
// target.
func Decode(data []byte, target Format) ([]byte, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	var (
		samples []byte
		source  Format
		err     error
	)
	switch {
	case isWAV(data):
		samples, source, err = decodeWAV(data)
	case isMP3(data):
		samples, source, err = decodeMP3(data)
	default:
		return nil, ErrUnknownContainer
	}
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrEmpty
	}

	samples = convertChannels(samples, source.Channels, target.Channels)
	source.Channels = target.Channels
	return Resample(samples, source, target), nil
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return true
	}
	// frame sync: 11 set bits
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func decodeWAV(data []byte) ([]byte, Format, error) {
	var (
		format  Format
		haveFmt bool
	)
	r := bytes.NewReader(data[12:])
	for {
		var header struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, format, fmt.Errorf("wav: missing data chunk: %w", ErrEmpty)
			}
			return nil, format, fmt.Errorf("wav: %w", err)
		}

		switch string(header.ID[:]) {
		case "fmt ":
			var f struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if header.Size < 16 {
				return nil, format, fmt.Errorf("wav: short fmt chunk")
			}
			if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
				return nil, format, fmt.Errorf("wav: %w", err)
			}
			// 0xFFFE is WAVE_FORMAT_EXTENSIBLE, which servers use for PCM too
			if (f.AudioFormat != 1 && f.AudioFormat != 0xFFFE) || f.BitsPerSample != 16 {
				return nil, format, fmt.Errorf("wav: format %d with %d bits: %w", f.AudioFormat, f.BitsPerSample, ErrUnsupportedEncoding)
			}
			format = Format{SampleRate: int(f.SampleRate), Channels: int(f.Channels)}
			if err := format.Validate(); err != nil {
				return nil, format, fmt.Errorf("wav: %w", err)
			}
			haveFmt = true
			if _, err := r.Seek(int64(header.Size-16+header.Size%2), io.SeekCurrent); err != nil {
				return nil, format, fmt.Errorf("wav: %w", err)
			}

		case "data":
			if !haveFmt {
				return nil, format, fmt.Errorf("wav: data before fmt chunk")
			}
			size := int(header.Size)
			// streaming servers write 0 or 0xFFFFFFFF when the length is unknown
			if size == 0 || size > r.Len() {
				size = r.Len()
			}
			samples := make([]byte, size-size%format.BytesPerFrame())
			if _, err := io.ReadFull(r, samples); err != nil {
				return nil, format, fmt.Errorf("wav: %w", err)
			}
			return samples, format, nil

		default:
			if _, err := r.Seek(int64(header.Size+header.Size%2), io.SeekCurrent); err != nil {
				return nil, format, fmt.Errorf("wav: %w", err)
			}
		}
	}
}

func decodeMP3(data []byte) ([]byte, Format, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, Format{}, fmt.Errorf("mp3: %w", err)
	}
	samples, err := io.ReadAll(d)
	if err != nil {
		return nil, Format{}, fmt.Errorf("mp3: %w", err)
	}
	// go-mp3 always produces interleaved stereo
	return samples, Format{SampleRate: d.SampleRate(), Channels: 2}, nil
}

func convertChannels(samples []byte, from, to int) []byte {
	if from == to {
		return samples
	}
	if from == 2 && to == 1 {
		out := make([]byte, len(samples)/2)
		for i, o := 0, 0; i+3 < len(samples); i, o = i+4, o+2 {
			l := int32(int16(binary.LittleEndian.Uint16(samples[i:])))
			r := int32(int16(binary.LittleEndian.Uint16(samples[i+2:])))
			binary.LittleEndian.PutUint16(out[o:], uint16(int16((l+r)/2)))
		}
		return out
	}
	// mono to stereo
	out := make([]byte, len(samples)*2)
	for i, o := 0, 0; i+1 < len(samples); i, o = i+2, o+4 {
		copy(out[o:o+2], samples[i:i+2])
		copy(out[o+2:o+4], samples[i:i+2])
	}
	return out
}

// Resample converts samples between sample rates with linear
// interpolation. Channel counts of from and to must match.
func Resample(samples []byte, from, to Format) []byte {
	if from.SampleRate == to.SampleRate || len(samples) == 0 {
		return samples
	}

	channels := to.Channels
	frameSize := 2 * channels
	inFrames := len(samples) / frameSize
	if inFrames == 0 {
		return nil
	}
	ratio := float64(to.SampleRate) / float64(from.SampleRate)
	outFrames := int(float64(inFrames) * ratio)
	out := make([]byte, outFrames*frameSize)

	sample := func(frame, ch int) float64 {
		off := frame*frameSize + ch*2
		return float64(int16(binary.LittleEndian.Uint16(samples[off:])))
	}

	for i := 0; i < outFrames; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		frac := pos - float64(idx)
		for ch := 0; ch < channels; ch++ {
			var v float64
			if idx >= inFrames-1 {
				v = sample(inFrames-1, ch)
			} else {
				v = sample(idx, ch)*(1-frac) + sample(idx+1, ch)*frac
			}
			binary.LittleEndian.PutUint16(out[i*frameSize+ch*2:], uint16(int16(v)))
		}
	}
	return out
}
