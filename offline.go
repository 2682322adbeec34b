package dx7synth

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	intfm "github.com/cbegin/dx7synth-go/internal/fm"
)

// offlineHeadroom is the gain applied to offline renders — a distinct
// constant from the real-time block path's 0.5 mix scale.
const offlineHeadroom = 0.8

// RenderOneShot is the offline one-shot renderer behind the WAV writer:
// it initializes one voice with (note, velocity) and calls the per-sample
// generator until the voice decays to silence or maxSeconds elapses,
// whichever comes first. No sustain pedal, no pitch bend, no mod wheel —
// a plain single-note render, clipped before the headroom scale.
func RenderOneShot(patch intfm.Patch, note int, velocity float64, sampleRate float64, maxSeconds float64) []float64 {
	var voice intfm.Voice
	voice.NoteOn(&patch, note, 0, velocity, sampleRate, 0)

	maxSamples := int(maxSeconds * sampleRate)
	out := make([]float64, 0, maxSamples)
	for i := 0; i < maxSamples; i++ {
		s := voice.Render(&patch, 0, false, sampleRate)
		out = append(out, clip(s)*offlineHeadroom)
		if voice.Done() {
			break
		}
	}
	return out
}

// RenderOneShotReleased behaves like RenderOneShot but triggers envelope
// release after sustainSeconds of note-on time, exercising the full
// attack-through-release envelope path in a single offline render.
func RenderOneShotReleased(patch intfm.Patch, note int, velocity float64, sampleRate float64, sustainSeconds, maxSeconds float64) []float64 {
	var voice intfm.Voice
	voice.NoteOn(&patch, note, 0, velocity, sampleRate, 0)

	sustainSamples := int(sustainSeconds * sampleRate)
	maxSamples := int(maxSeconds * sampleRate)
	out := make([]float64, 0, maxSamples)
	released := false
	for i := 0; i < maxSamples; i++ {
		if !released && i >= sustainSamples {
			voice.Release(&patch, sampleRate)
			released = true
		}
		s := voice.Render(&patch, 0, false, sampleRate)
		out = append(out, clip(s)*offlineHeadroom)
		if released && voice.Done() {
			break
		}
	}
	return out
}

func clip(s float64) float64 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}

// WriteWAV encodes mono float64 samples in [-1, 1] as a 16-bit PCM WAV file.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dx7synth: create %s: %w", path, err)
	}
	defer f.Close()
	return EncodeWAV(f, samples, sampleRate)
}

// EncodeWAV writes mono float64 samples in [-1, 1] to w as 16-bit PCM WAV.
func EncodeWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	ints := make([]int, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		}
		if s < -1.0 {
			s = -1.0
		}
		ints[i] = int(math.Round(s * 32767.0))
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	}

	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("dx7synth: wav write: %w", err)
	}
	return enc.Close()
}
