package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"

	"CSF/internal/config"
)

// toneCue plays a short sound at the onset of every presentation.
type toneCue struct {
	player *audio.Player
}

// newToneCue loads cfg.CueFile when set and synthesizes a sine tone
// otherwise.
func newToneCue(cfg config.AudioConfig) (*toneCue, error) {
	var pcm []byte
	if cfg.CueFile != "" {
		var err error
		if pcm, err = loadCuePCM(audioSampleRate, cfg.CueFile); err != nil {
			return nil, err
		}
	} else {
		pcm = synthTone(audioSampleRate, cfg.ToneHz, cfg.Length)
	}
	ctx := audio.NewContext(audioSampleRate)
	player := ctx.NewPlayerFromBytes(pcm)
	player.SetVolume(cfg.Volume)
	return &toneCue{player: player}, nil
}

func (c *toneCue) Play() {
	_ = c.player.Rewind()
	c.player.Play()
}

// loadCuePCM decodes the WAV at path into 16-bit stereo PCM at sampleRate.
func loadCuePCM(sampleRate int, path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	stream, err := wav.DecodeWithSampleRate(sampleRate, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}
	decoded, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("reading decoded %q: %w", path, err)
	}
	if len(decoded) < audioFrameBytes {
		return nil, fmt.Errorf("wav %q has no audio data", path)
	}
	return decoded, nil
}

// synthTone renders a stereo 16-bit sine of the given length with short
// raised-cosine ramps at both ends.
func synthTone(sampleRate int, hz float64, length time.Duration) []byte {
	frames := int(length.Seconds() * float64(sampleRate))
	fade := int(audioFadeDuration.Seconds() * float64(sampleRate))
	if fade > frames/2 {
		fade = frames / 2
	}
	pcm := make([]byte, frames*audioFrameBytes)
	for i := 0; i < frames; i++ {
		v := math.Sin(2 * math.Pi * hz * float64(i) / float64(sampleRate))
		if edge := min(i, frames-1-i); edge < fade {
			v *= 0.5 - 0.5*math.Cos(math.Pi*float64(edge)/float64(fade))
		}
		s := int16(math.Max(pcm16MinValue, math.Min(pcm16MaxValue, v*pcm16MaxValue)))
		for ch := 0; ch < audioChannels; ch++ {
			binary.LittleEndian.PutUint16(pcm[i*audioFrameBytes+ch*audioBytesPerSample:], uint16(s))
		}
	}
	return pcm
}
