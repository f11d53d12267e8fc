package main

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// pcmFile is a decoded WAV file with planar samples in [-1, 1).
type pcmFile struct {
	sampleRate int
	bitDepth   int
	channels   [][]float64
}

func (f *pcmFile) frames() int {
	if len(f.channels) == 0 {
		return 0
	}
	return len(f.channels[0])
}

func readWAV(path string) (*pcmFile, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	dec := wav.NewDecoder(fh)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%s: unsupported WAV format %d (integer PCM only)", path, dec.WavAudioFormat)
	}
	if err := checkBitDepth(int(dec.BitDepth)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w", path, err)
	}
	numCh := buf.Format.NumChannels
	if numCh <= 0 {
		return nil, fmt.Errorf("%s: no channels", path)
	}

	frames := len(buf.Data) / numCh
	out := &pcmFile{
		sampleRate: buf.Format.SampleRate,
		bitDepth:   int(dec.BitDepth),
		channels:   make([][]float64, numCh),
	}
	scale := 1 / fullScale(out.bitDepth)
	for c := range out.channels {
		ch := make([]float64, frames)
		for i := range ch {
			ch[i] = float64(buf.Data[i*numCh+c]) * scale
		}
		out.channels[c] = ch
	}
	return out, nil
}

func writeWAV(path string, f *pcmFile) error {
	if err := checkBitDepth(f.bitDepth); err != nil {
		return err
	}
	numCh := len(f.channels)
	if numCh == 0 {
		return errors.New("no channels to write")
	}

	frames := f.frames()
	full := fullScale(f.bitDepth)
	data := make([]int, frames*numCh)
	for c, ch := range f.channels {
		for i, v := range ch[:frames] {
			data[i*numCh+c] = quantize(v, full)
		}
	}

	fh, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(fh, f.sampleRate, f.bitDepth, numCh, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numCh, SampleRate: f.sampleRate},
		Data:           data,
		SourceBitDepth: f.bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		fh.Close()
		return fmt.Errorf("%s: encode: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		fh.Close()
		return fmt.Errorf("%s: finalize: %w", path, err)
	}
	return fh.Close()
}

func checkBitDepth(bits int) error {
	switch bits {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("unsupported bit depth %d (16, 24 or 32)", bits)
	}
}

func fullScale(bits int) float64 {
	return float64(int64(1) << (bits - 1))
}

// quantize rounds v to an integer sample, clipping at full scale.
func quantize(v, full float64) int {
	if v != v {
		return 0
	}
	s := math.Round(v * full)
	return int(math.Max(-full, math.Min(full-1, s)))
}
