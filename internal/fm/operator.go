package fm

import "math"

const twoPi = 2 * math.Pi

// OperatorState is the per-voice per-operator runtime state.
type OperatorState struct {
	Phase  float64 // [0,1)
	Freq   float64 // Hz, set at note-on and recomputed by Voice.ApplyPitchBend
	Output float64 // this sample's pre-feedback scaled sine, read back as the feedback tap
	Env    Envelope

	LevelScale float64 // captured once at note-on
	RateScale  float64 // captured once at note-on
}

// midiNoteToFreq converts a MIDI note number to Hz, A4=440 at note 69.
func midiNoteToFreq(note int) float64 {
	return 440.0 * math.Pow(2.0, float64(note-69)/12.0)
}

// keyScale implements the DX7 break-point keyboard level scaling rule.
// Curves: 0 linear-down, 1 exponential-down, 2 exponential-up, 3 linear-up.
func keyScale(note, breakPoint, leftDepth, rightDepth, leftCurve, rightCurve int) float64 {
	scale := 1.0
	switch {
	case note < breakPoint:
		distance := float64(breakPoint-note) / 127.0
		depth := float64(leftDepth) / 99.0
		scale = applyCurve(leftCurve, distance, depth)
	case note > breakPoint:
		distance := float64(note-breakPoint) / 127.0
		depth := float64(rightDepth) / 99.0
		scale = applyCurve(rightCurve, distance, depth)
	}
	return clampF(scale, 0, 2)
}

func applyCurve(curve int, distance, depth float64) float64 {
	switch curve {
	case 0:
		return 1.0 - distance*depth
	case 1:
		return 1.0 - depth*(1.0-math.Exp(-distance*3.0))
	case 2:
		return 1.0 + depth*(1.0-math.Exp(-distance*3.0))
	case 3:
		return 1.0 + distance*depth
	default:
		return 1.0
	}
}

// NoteOn captures the note-independent-until-release state: base
// frequency (ratio + detune), keyboard level/rate scaling, and arms the
// envelope.
func (os *OperatorState) NoteOn(op *Operator, noteFreq float64, note int, sampleRate float64) {
	os.Phase = 0
	os.Output = 0
	os.Freq = noteFreq * op.FreqRatio * math.Pow(2.0, (float64(op.Detune)/7.0)*0.01)

	os.LevelScale = keyScale(note, op.KeyLevelScaleBreakPoint,
		op.KeyLevelScaleLeftDepth, op.KeyLevelScaleRightDepth,
		op.KeyLevelScaleLeftCurve, op.KeyLevelScaleRightCurve)

	os.RateScale = (float64(note-60) / 12.0) * (float64(op.KeyRateScaling) / 7.0)

	os.Env.NoteOn(op, sampleRate, os.RateScale)
}

// Step advances the oscillator by one sample given the current LFO value
// and returns the raw sine output (unscaled) and the operator's
// instantaneous amplitude.
func (os *OperatorState) Step(op *Operator, patch *Patch, velocity, lfoValue, sampleRate float64) (rawSine, level float64) {
	envLevel := os.Env.Advance(op, sampleRate, os.RateScale)

	velFactor := 1.0 - (1.0-velocity)*(float64(op.KeyVelSens)/7.0)
	level = (float64(op.OutputLevel) / 99.0) * envLevel * velFactor * os.LevelScale
	level *= 1.0 + lfoValue*(float64(patch.LFOAMD)/99.0)*0.5

	rawSine = math.Sin(twoPi * os.Phase)

	freq := os.Freq
	if patch.LFOPMD > 0 {
		pitchMod := lfoValue * (float64(patch.LFOPMD) / 99.0) * (float64(patch.LFOPitchModSens) / 7.0) * 0.1
		freq *= math.Pow(2.0, pitchMod)
	}
	os.Phase += freq / sampleRate
	os.Phase -= math.Floor(os.Phase)

	os.Output = rawSine * level // available to the algorithm router this same sample
	return rawSine, level
}
