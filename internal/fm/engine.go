package fm

// Engine is the per-sample synthesis kernel: one active Patch plus the
// voice pool it drives. Engine carries no lock of its own — every method
// assumes the caller already holds whatever lock serializes it against
// concurrent MIDI dispatch.
type Engine struct {
	Patch Patch
	Pool  Pool

	SampleRate float64

	// pending holds a patch swap requested while voices were still
	// sounding; it lands the moment the pool next falls silent.
	pending *Patch
}

// New builds an Engine for the given patch and sample rate.
func New(patch Patch, sampleRate float64) *Engine {
	patch.Clamp()
	return &Engine{Patch: patch, SampleRate: sampleRate}
}

// SetPatch swaps the active patch. The patch is replaced only while no
// notes are sounding: voices read it every sample, so swapping it under
// them would snap their envelopes and algorithm mid-note. If any voice
// is active the swap is deferred until the pool falls silent. Reports
// whether the swap was applied immediately.
func (e *Engine) SetPatch(patch Patch) bool {
	patch.Clamp()
	if e.Pool.ActiveCount() > 0 {
		e.pending = &patch
		return false
	}
	e.Patch = patch
	e.pending = nil
	return true
}

// applyPendingPatch lands a deferred swap once the pool is silent.
func (e *Engine) applyPendingPatch() {
	if e.pending != nil && e.Pool.ActiveCount() == 0 {
		e.Patch = *e.pending
		e.pending = nil
	}
}

// NoteOn allocates (or steals) a voice for the given note.
func (e *Engine) NoteOn(note, channel int, velocity float64) int {
	e.applyPendingPatch()
	return e.Pool.Allocate(&e.Patch, note, channel, velocity, e.SampleRate)
}

// NoteOff releases the voice sounding the given note, or marks it
// sustain-held if the pedal is down.
func (e *Engine) NoteOff(note, channel int, sustainActive bool) {
	e.Pool.ReleaseOne(&e.Patch, note, channel, e.SampleRate, sustainActive)
}

// SustainRelease triggers release on every sustain-held voice (pedal-up).
func (e *Engine) SustainRelease() {
	e.Pool.ReleaseSustained(&e.Patch, e.SampleRate)
}

// AllNotesOff deactivates every voice immediately.
func (e *Engine) AllNotesOff() {
	e.Pool.ReleaseAll()
}

// ActiveVoiceCount reports current polyphony.
func (e *Engine) ActiveVoiceCount() int {
	return e.Pool.ActiveCount()
}

// RenderSample mixes one sample of all active voices under the given
// live controller values, then lands any deferred patch swap if the last
// voice just decayed to silence.
func (e *Engine) RenderSample(modWheel, pitchBend, volume, expression float64) float64 {
	s := e.Pool.Render(&e.Patch, modWheel, pitchBend, volume, expression, e.SampleRate)
	e.applyPendingPatch()
	return s
}

// RenderBlock fills buf with consecutive mono samples.
func (e *Engine) RenderBlock(buf []float64, modWheel, pitchBend, volume, expression float64) {
	for i := range buf {
		buf[i] = e.RenderSample(modWheel, pitchBend, volume, expression)
	}
}
