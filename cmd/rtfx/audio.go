package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

const decodeChunkFrames = 8192

// clip is planar float audio in [-1, 1].
type clip struct {
	sampleRate int
	channels   [][]float64
}

func (c *clip) frames() int {
	if len(c.channels) == 0 {
		return 0
	}
	return len(c.channels[0])
}

// peak returns the largest absolute sample value.
func (c *clip) peak() float64 {
	p := 0.0
	for _, ch := range c.channels {
		for _, v := range ch {
			p = math.Max(p, math.Abs(v))
		}
	}
	return p
}

// withChannels returns c with exactly n channels, duplicating a mono source.
func (c *clip) withChannels(n int) (*clip, error) {
	switch {
	case len(c.channels) == n:
		return c, nil
	case len(c.channels) == 1:
		out := &clip{sampleRate: c.sampleRate, channels: make([][]float64, n)}
		for ch := range out.channels {
			out.channels[ch] = append([]float64(nil), c.channels[0]...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot map %d channels to %d", len(c.channels), n)
	}
}

func loadAudio(path string) (*clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", path)
	}
}

func decodeWAV(r io.ReadSeeker) (*clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("only integer PCM wav files are supported (format %d)", dec.WavAudioFormat)
	}

	format := dec.Format()
	numChannels := format.NumChannels
	bitDepth := int(dec.BitDepth)
	if numChannels <= 0 || bitDepth <= 0 {
		return nil, fmt.Errorf("invalid wav format: %d channels, %d bits", numChannels, bitDepth)
	}

	c := &clip{sampleRate: format.SampleRate, channels: make([][]float64, numChannels)}
	scale := 1 / float64(int64(1)<<(bitDepth-1))
	buf := &audio.IntBuffer{
		Data:   make([]int, decodeChunkFrames*numChannels),
		Format: format,
	}

	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading pcm: %w", err)
		}
		if n == 0 {
			break
		}

		for i, v := range buf.Data[:n-n%numChannels] {
			ch := i % numChannels
			c.channels[ch] = append(c.channels[ch], float64(v)*scale)
		}

		if err != nil {
			break
		}
	}

	return c, nil
}

// decodeMP3 decodes to stereo; go-mp3 always emits 16-bit little-endian
// interleaved stereo.
func decodeMP3(r io.Reader) (*clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decoding mp3: %w", err)
	}

	c := &clip{sampleRate: dec.SampleRate(), channels: make([][]float64, 2)}
	buf := make([]byte, decodeChunkFrames*4)
	var pending []byte

	for {
		n, err := dec.Read(buf)
		pending = append(pending, buf[:n]...)

		whole := len(pending) - len(pending)%4
		for i := 0; i < whole; i += 4 {
			left := int16(binary.LittleEndian.Uint16(pending[i:]))
			right := int16(binary.LittleEndian.Uint16(pending[i+2:]))
			c.channels[0] = append(c.channels[0], float64(left)/32768)
			c.channels[1] = append(c.channels[1], float64(right)/32768)
		}
		pending = append(pending[:0], pending[whole:]...)

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading mp3: %w", err)
		}
	}

	return c, nil
}

func writeWAV(path string, c *clip, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := encodeWAV(f, c, bitDepth); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func encodeWAV(w io.WriteSeeker, c *clip, bitDepth int) error {
	numChannels := len(c.channels)
	if numChannels == 0 {
		return errors.New("no channels to write")
	}

	peak := float64(int64(1) << (bitDepth - 1))
	frames := c.frames()
	data := make([]int, frames*numChannels)
	for i := range frames {
		for ch, samples := range c.channels {
			v := math.Round(samples[i] * peak)
			data[i*numChannels+ch] = int(math.Max(-peak, math.Min(peak-1, v)))
		}
	}

	enc := wav.NewEncoder(w, c.sampleRate, bitDepth, numChannels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: c.sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}

	return enc.Close()
}
