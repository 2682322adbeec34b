package fm

import "math"

// rateTable gives the nominal time in seconds to cross full scale (0..99)
// at each of the 100 DX7-style rate indices: 30s at rate 0 down to 0.0004s
// at rate 99. The values are approximate perceptual curves, not canonical
// DX7 timings.
var rateTable = [100]float64{
	30.0, 25.0, 20.0, 18.0, 16.0, 14.0, 12.0, 10.0, 8.0, 6.0,
	5.5, 5.0, 4.5, 4.0, 3.5, 3.0, 2.8, 2.6, 2.4, 2.2,
	2.0, 1.8, 1.6, 1.4, 1.2, 1.0, 0.95, 0.90, 0.85, 0.80,
	0.75, 0.70, 0.65, 0.60, 0.55, 0.50, 0.47, 0.44, 0.41, 0.38,
	0.35, 0.32, 0.29, 0.26, 0.23, 0.20, 0.19, 0.18, 0.17, 0.16,
	0.15, 0.14, 0.13, 0.12, 0.11, 0.10, 0.095, 0.090, 0.085, 0.080,
	0.075, 0.070, 0.065, 0.060, 0.055, 0.050, 0.047, 0.044, 0.041, 0.038,
	0.035, 0.032, 0.029, 0.026, 0.023, 0.020, 0.018, 0.016, 0.014, 0.012,
	0.010, 0.009, 0.008, 0.007, 0.006, 0.005, 0.0045, 0.004, 0.0035, 0.003,
	0.0025, 0.002, 0.0018, 0.0016, 0.0014, 0.0012, 0.001, 0.0008, 0.0006, 0.0004,
}

// envStageTime returns the nominal stage time: rate 0 is the maximum
// (30s) time, rate >=99 is the minimum (0.0004s) time, otherwise the
// table entry scaled by max(|levelDiff|/99, 0.1).
func envStageTime(rate, levelDiff int) float64 {
	if rate <= 0 {
		return 30.0
	}
	if rate >= 99 {
		return 0.0004
	}
	scale := math.Abs(float64(levelDiff)) / 99.0
	if scale < 0.1 {
		scale = 0.1
	}
	return rateTable[rate] * scale
}

// EnvStage is one of the four envelope stages.
type EnvStage int

const (
	StageAttack EnvStage = iota
	StageDecay1
	StageDecay2
	StageRelease
)

// Envelope is the per-operator per-voice four-stage piecewise-linear
// envelope generator.
type Envelope struct {
	Stage          EnvStage
	Level          float64 // 0..1
	Rate           float64 // signed, per-sample
	Target         float64 // 0..1
	SamplesInStage int
}

// NoteOn resets the envelope into Attack, targeting EnvLevels[Attack]/99,
// with its rate scaled by the keyboard rate-scaling captured at note-on
// (rateScale = (midiNote-60)/12 * keyRateScaling/7).
func (e *Envelope) NoteOn(op *Operator, sampleRate, rateScale float64) {
	e.Stage = StageAttack
	e.Level = 0
	e.SamplesInStage = 0

	attackTime := envStageTime(op.EnvRates[EnvAttack], op.EnvLevels[EnvAttack])
	attackTime /= 1 + rateScale*(float64(op.KeyRateScaling)/7.0)

	target := float64(op.EnvLevels[EnvAttack]) / 99.0
	if attackTime > 0 {
		e.Rate = target / (attackTime * sampleRate)
	} else {
		e.Rate = 99.0
	}
	e.Target = target
}

// Advance steps the envelope by one sample and returns the new level.
func (e *Envelope) Advance(op *Operator, sampleRate, rateScale float64) float64 {
	e.SamplesInStage++
	switch e.Stage {
	case StageAttack:
		if e.Level >= e.Target || op.EnvRates[EnvAttack] >= 99 {
			e.enterStage(StageDecay1, op, sampleRate, rateScale,
				op.EnvLevels[EnvAttack], op.EnvLevels[EnvDecay1])
		} else {
			e.Level += e.Rate
			if e.Level > e.Target {
				e.Level = e.Target
			}
		}
	case StageDecay1:
		if e.Level <= e.Target || op.EnvRates[EnvDecay1] >= 99 {
			e.enterStage(StageDecay2, op, sampleRate, rateScale,
				op.EnvLevels[EnvDecay1], op.EnvLevels[EnvDecay2])
		} else {
			e.Level += e.Rate
			if e.Level < e.Target {
				e.Level = e.Target
			}
		}
	case StageDecay2:
		if e.Level > e.Target {
			e.Level += e.Rate
			if e.Level < e.Target {
				e.Level = e.Target
			}
		}
	case StageRelease:
		e.Level += e.Rate
		if e.Level < 0 {
			e.Level = 0
		}
	}
	return e.Level
}

// enterStage snaps to the outgoing target and recomputes the rate toward
// the incoming stage's target.
func (e *Envelope) enterStage(next EnvStage, op *Operator, sampleRate, rateScale float64, fromLevel, toLevel int) {
	e.Stage = next
	e.Level = float64(fromLevel) / 99.0
	e.SamplesInStage = 0

	levelDiff := fromLevel - toLevel
	rate := op.EnvRates[stageRateIndex(next)]
	stageTime := envStageTime(rate, levelDiff)
	stageTime /= 1 + rateScale*(float64(op.KeyRateScaling)/7.0)

	if stageTime > 0 && levelDiff != 0 {
		e.Rate = -float64(levelDiff) / (99.0 * stageTime * sampleRate)
	} else {
		e.Rate = 0
	}
	e.Target = float64(toLevel) / 99.0
}

// TriggerRelease is entered asynchronously at note-off: the sign is
// chosen from the current level toward EnvLevels[Release].
func (e *Envelope) TriggerRelease(op *Operator, sampleRate, rateScale float64) {
	e.Stage = StageRelease
	e.SamplesInStage = 0

	levelDiff := int(e.Level*99.0) - op.EnvLevels[EnvRelease]
	releaseTime := envStageTime(op.EnvRates[EnvRelease], levelDiff)
	releaseTime /= 1 + rateScale*(float64(op.KeyRateScaling)/7.0)

	if releaseTime > 0 && levelDiff != 0 {
		e.Rate = -float64(levelDiff) / (99.0 * releaseTime * sampleRate)
	} else {
		e.Rate = -0.1
	}
	e.Target = float64(op.EnvLevels[EnvRelease]) / 99.0
}

func stageRateIndex(s EnvStage) int {
	switch s {
	case StageDecay1:
		return EnvDecay1
	case StageDecay2:
		return EnvDecay2
	case StageRelease:
		return EnvRelease
	default:
		return EnvAttack
	}
}
