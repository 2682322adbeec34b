// Package dx7synth is the root package: the mutex-guarded Engine wrapping
// the lock-free internal/fm kernel, the internal/midi parser/dispatcher,
// and the internal/audio live-playback driver.
package dx7synth

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	intaudio "github.com/cbegin/dx7synth-go/internal/audio"
	inteffects "github.com/cbegin/dx7synth-go/internal/effects"
	intfm "github.com/cbegin/dx7synth-go/internal/fm"
	intmidi "github.com/cbegin/dx7synth-go/internal/midi"
	intsysex "github.com/cbegin/dx7synth-go/internal/sysex"
)

// Engine is the top-level synthesis engine. One sync.Mutex is the single
// voice lock protecting the voice pool, controller state, parser state,
// and the current patch; it is held for one audio block on the render
// side and for one dispatched message on the MIDI side, so worst-case
// contention is proportional to block size.
type Engine struct {
	mu sync.Mutex

	fm         *intfm.Engine
	dispatcher *intmidi.Dispatcher
	parser     intmidi.Parser
	sampleRate float64

	active bool
	audio  *intaudio.Player

	// effects is an optional stereo post-chain applied to the live output
	// only (the DX7 voice itself is mono); nil means dry.
	effects *inteffects.Chain

	patchDecodeErrs uint32 // SysEx frames that failed to parse or decode, guarded by mu
}

// EngineOption configures NewEngine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	channel int
	effects *inteffects.Chain
}

func defaultEngineConfig() engineConfig {
	return engineConfig{channel: 0}
}

// WithChannel restricts the engine to one MIDI channel (0-15). Default 0.
func WithChannel(channel int) EngineOption {
	return func(cfg *engineConfig) {
		cfg.channel = channel & 0x0F
	}
}

// WithEffects attaches a stereo post-processing chain (chorus, delay,
// reverb, and the like) to the engine's live output path. The chain runs
// after mono-to-stereo duplication, so width-producing effects such as
// chorus have independent left/right feedback taps to work with.
func WithEffects(chain *inteffects.Chain) EngineOption {
	return func(cfg *engineConfig) {
		cfg.effects = chain
	}
}

// NewEngine builds an Engine for the given patch and sample rate.
func NewEngine(patch intfm.Patch, sampleRate float64, opts ...EngineOption) (*Engine, error) {
	if sampleRate < 8000 || sampleRate > 192000 {
		return nil, fmt.Errorf("dx7synth: sample rate %v out of range 8000-192000", sampleRate)
	}
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	fmEngine := intfm.New(patch, sampleRate)
	e := &Engine{
		fm:         fmEngine,
		dispatcher: intmidi.NewDispatcher(fmEngine, cfg.channel),
		sampleRate: sampleRate,
		effects:    cfg.effects,
	}
	log.WithFields(log.Fields{"sample_rate": sampleRate, "channel": cfg.channel}).Info("dx7synth: engine initialized")
	return e, nil
}

// Shutdown releases live audio resources. Double-shutdown is a no-op.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}
	if e.audio != nil {
		_ = e.audio.Stop()
		e.audio = nil
	}
	e.active = false
	log.Info("dx7synth: engine shut down")
}

// SetPatch swaps the active patch. The patch is replaced only while no
// notes are sounding; a swap requested mid-note is deferred until the
// pool falls silent. Reports whether the swap was applied immediately.
func (e *Engine) SetPatch(patch intfm.Patch) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fm.SetPatch(patch)
}

// StartPlay arms MIDI-driven mode and begins streaming live audio through
// the platform driver.
func (e *Engine) StartPlay() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		return errors.New("dx7synth: already playing")
	}
	player, err := intaudio.NewPlayer(int(e.sampleRate), &liveSource{engine: e})
	if err != nil {
		return fmt.Errorf("dx7synth: audio init: %w", err)
	}
	e.audio = player
	e.audio.Play()
	e.active = true
	log.Info("dx7synth: live play mode started")
	return nil
}

// StopPlay disarms MIDI-driven mode and stops the audio stream.
func (e *Engine) StopPlay() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return nil
	}
	err := e.audio.Stop()
	e.audio = nil
	e.active = false
	log.Info("dx7synth: live play mode stopped")
	return err
}

// PushMIDIBytes feeds raw MIDI bytes (as received from a device callback)
// through the parser and dispatcher, one byte at a time.
// timestampMonotonicUs is accepted but not scheduled against — events
// take effect at the next rendered block, not sample-accurately.
func (e *Engine) PushMIDIBytes(data []byte, timestampMonotonicUs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range data {
		msg, ok := e.parser.Feed(b)
		if !ok {
			continue
		}
		if sysex, isSysEx := e.dispatcher.Dispatch(msg); isSysEx {
			e.applySysEx(sysex)
		}
	}
}

func (e *Engine) applySysEx(payload []byte) {
	frame := make([]byte, 0, len(payload)+2)
	frame = append(frame, 0xF0)
	frame = append(frame, payload...)
	frame = append(frame, 0xF7)

	m, err := intsysex.ParseFrame(frame)
	if err != nil {
		e.patchDecodeErrs++
		return
	}
	patch, err := intsysex.Decode(m)
	if err != nil {
		e.patchDecodeErrs++
		return
	}
	// If notes are still sounding the swap is deferred, not applied
	// under the sounding voices.
	e.fm.SetPatch(patch)
}

// RenderBlock fills buf with consecutive mono samples in [-1, +1] scaled
// by 0.5.
func (e *Engine) RenderBlock(buf []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctrl := e.dispatcher.Controllers
	e.fm.RenderBlock(buf, ctrl.ModWheel, ctrl.PitchBend, ctrl.Volume, ctrl.Expression)
}

// renderSampleLocked is the per-sample hook used by liveSource; it must be
// called with e.mu already held by the audio callback.
func (e *Engine) renderSampleLocked() float64 {
	ctrl := e.dispatcher.Controllers
	return e.fm.RenderSample(ctrl.ModWheel, ctrl.PitchBend, ctrl.Volume, ctrl.Expression)
}

// Stats is the engine's statistics readout: active voice count, notes
// played, voice steals, MIDI parse errors, current controller values.
type Stats struct {
	ActiveVoices int
	NotesPlayed  uint32
	VoiceSteals  uint32
	MIDIErrors   uint32
	Controllers  intmidi.Controllers
}

// ReadStats takes a snapshot of the engine's current statistics.
func (e *Engine) ReadStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		ActiveVoices: e.fm.ActiveVoiceCount(),
		NotesPlayed:  e.dispatcher.NotesPlayed,
		VoiceSteals:  e.fm.Pool.VoiceSteals,
		MIDIErrors:   e.parser.Errors + e.patchDecodeErrs,
		Controllers:  e.dispatcher.Controllers,
	}
}

// liveSource adapts Engine to internal/audio.SampleSource, duplicating the
// mono kernel output to interleaved stereo float32 for the ebitengine
// backend.
type liveSource struct {
	engine *Engine
}

func (s *liveSource) Process(dst []float32) {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	chain := s.engine.effects
	for i := 0; i+1 < len(dst); i += 2 {
		v := float32(s.engine.renderSampleLocked())
		l, r := v, v
		if chain != nil {
			l, r = chain.Process(l, r)
		}
		dst[i] = l
		dst[i+1] = r
	}
}
