// Package audioconv decodes audio files into the mono 16 kHz float32 PCM the
// transcriber expects. Used by the scripted utterance source.
package audioconv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const TargetRate = 16000

// DecodeFile sniffs the format by extension (falling back to magic bytes)
// and returns mono 16 kHz samples.
func DecodeFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	case ".ogg", ".oga", ".opus":
		return decodeOgg(f)
	}

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return nil, fmt.Errorf("sniff format: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	switch string(magic) {
	case "RIFF":
		return decodeWAV(f)
	case "OggS":
		return decodeOgg(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", path)
	}
}

func decodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if pb == nil || pb.Data == nil {
		return nil, errors.New("empty wav")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	x := intToFloat32(pb.Data, bitDepth)

	channels, rate := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			channels = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			rate = pb.Format.SampleRate
		}
	}
	return toMono16k(x, channels, rate), nil
}

func decodeMP3(r io.Reader) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, err
	}

	// go-mp3 always emits interleaved stereo.
	x := int16ToFloat32(ints)
	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}
	return toMono16k(x, 2, rate), nil
}

func decodeOgg(r io.ReadSeeker) ([]float32, error) {
	if pcm, format, err := oggvorbis.ReadAll(r); err == nil {
		if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
			return nil, errors.New("invalid ogg/vorbis stream")
		}
		return toMono16k(pcm, format.Channels, format.SampleRate), nil
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	pcm, channels, err := decodeOpus(r)
	if err != nil {
		return nil, fmt.Errorf("cannot decode ogg as vorbis or opus: %w", err)
	}
	// Opus decodes at 48 kHz.
	return toMono16k(pcm, channels, 48000), nil
}

func decodeOpus(rs io.ReadSeeker) ([]float32, int, error) {
	dec, err := popus.NewDecoder(rs)
	if err != nil {
		return nil, 0, err
	}
	defer dec.Destroy()

	channels := dec.ChannelCount()
	if channels <= 0 {
		channels = 1
	}

	var out []float32
	buf := make([]int16, 48_000*channels/2) // ~0.5s of audio
	for {
		n, err := dec.Read(buf) // n = samples per channel
		if n > 0 {
			out = append(out, int16ToFloat32(buf[:n*channels])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}
	return out, channels, nil
}

// toMono16k downmixes interleaved channels and resamples to TargetRate.
func toMono16k(in []float32, channels, rate int) []float32 {
	if channels > 1 {
		in = downmix(in, channels)
	}
	if rate != TargetRate {
		in = resampleLinear(in, rate, TargetRate)
	}
	return in
}

func intToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		f := float64(v) * scale
		if f < -1 {
			f = -1
		} else if f > 1 {
			f = 1
		}
		out[i] = float32(f)
	}
	return out
}

func int16ToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resampleLinear(in []float32, inRate, outRate int) []float32 {
	if inRate == outRate || len(in) == 0 {
		return in
	}
	ratio := float64(outRate) / float64(inRate)
	n := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		if i0 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		if i1 >= len(in) {
			out[i] = in[i0]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i1]*a
	}
	return out
}
