package fm

import "math"

// Voice is one slot of the polyphonic pool: six operator states, the LFO
// phase driving all of them, and the bookkeeping the pool needs to steal
// and release it.
type Voice struct {
	Active      bool
	SustainHeld bool
	Note        int
	Channel     int

	Velocity   float64
	NoteOnTime uint64 // monotonic sample count at allocation, for steal-oldest
	LFOPhase   float64

	Operators [NumOperators]OperatorState
}

// NoteOn arms every operator and resets the per-voice LFO.
func (v *Voice) NoteOn(patch *Patch, note, channel int, velocity float64, sampleRate float64, now uint64) {
	v.Active = true
	v.SustainHeld = false
	v.Note = note
	v.Channel = channel
	v.Velocity = velocity
	v.NoteOnTime = now
	v.LFOPhase = 0

	noteFreq := midiNoteToFreq(note + patch.Transpose)
	for i := range v.Operators {
		v.Operators[i].NoteOn(&patch.Operators[i], noteFreq, note, sampleRate)
	}
}

// Release moves every operator's envelope into the release stage.
func (v *Voice) Release(patch *Patch, sampleRate float64) {
	v.SustainHeld = false
	for i := range v.Operators {
		v.Operators[i].Env.TriggerRelease(&patch.Operators[i], sampleRate, v.Operators[i].RateScale)
	}
}

// Done reports whether the voice has decayed to silence: every
// operator's envelope level at or below 0.001, regardless of which stage
// it is in.
func (v *Voice) Done() bool {
	for i := range v.Operators {
		if v.Operators[i].Env.Level > 0.001 {
			return false
		}
	}
	return true
}

// ApplyPitchBend recomputes every operator's frequency from the current
// MIDI note, global transpose, and live pitch-bend controller value.
// It runs every sample ahead of Render rather than freezing frequency at
// note-on, so a bend moves notes that are already sounding.
func (v *Voice) ApplyPitchBend(patch *Patch, pitchBend float64) {
	baseFreq := midiNoteToFreq(v.Note+patch.Transpose) * math.Pow(2.0, (pitchBend*2.0)/12.0)
	for i := range v.Operators {
		op := &patch.Operators[i]
		detuneFactor := math.Pow(2.0, (float64(op.Detune)/7.0)*0.01)
		v.Operators[i].Freq = baseFreq * op.FreqRatio * detuneFactor
	}
}

// Render advances the voice's LFO and all six operators by one sample and
// returns the routed algorithm output. live selects which mod-wheel
// multiplier applies to the LFO speed: 0.1+modWheel*2.9 in live MIDI play
// mode, exactly 1.0 otherwise (offline one-shot/loop renders have no live
// mod-wheel).
func (v *Voice) Render(patch *Patch, modWheel float64, live bool, sampleRate float64) float64 {
	baseSpeed := float64(patch.LFOSpeed) / 99.0 * 6.0
	speedMultiplier := 1.0
	if live {
		speedMultiplier = 0.1 + modWheel*2.9
	}
	lfoSpeed := baseSpeed * speedMultiplier

	v.LFOPhase += lfoSpeed / sampleRate
	v.LFOPhase -= math.Floor(v.LFOPhase)
	lfoValue := math.Sin(twoPi * v.LFOPhase)

	var sines, levels [NumOperators]float64
	for i := range v.Operators {
		sines[i], levels[i] = v.Operators[i].Step(&patch.Operators[i], patch, v.Velocity, lfoValue, sampleRate)
	}

	// Operator 1's Output was just set by Step above to this same sample's
	// pre-feedback scaled sine; the router uses that raw value to drive
	// its own feedback warp. Same-sample, not a cross-sample delay.
	op0Raw := v.Operators[0].Output
	return routeAlgorithm(patch.Algorithm, patch.Feedback, sines, levels, op0Raw)
}
