package patchfile

import (
	"math"

	"github.com/cbegin/dx7synth-go/internal/fm"
)

// headroom is the scale factor applied while searching for loop
// boundaries, leaving clipping margin around the zero-crossing search.
const headroom = 0.8

// LFOFrequency returns the LFO rate in Hz for a patch's LFOSpeed,
// topping out at 6 Hz at speed 99.
func LFOFrequency(patch *fm.Patch) float64 {
	return float64(patch.LFOSpeed) / 99.0 * 6.0
}

// TargetSamples estimates the sample count for numCycles of LFO motion.
// A patch with no LFO motion (speed 0) falls back to one second.
func TargetSamples(patch *fm.Patch, sampleRate float64, numCycles int) int {
	lfoFreq := LFOFrequency(patch)
	if lfoFreq <= 0.0 {
		return int(sampleRate)
	}
	cycleTime := float64(numCycles) / lfoFreq
	samples := int(math.Round(cycleTime * sampleRate))
	if samples < 1 {
		samples = 1
	}
	return samples
}

// FindZeroCrossingLoop renders voice (already started via NoteOn) sample by
// sample, shifting the start to the first zero crossing found and ending at
// the first zero crossing at or after targetSamples worth of LFO cycles have
// completed, so the result loops without an audible seam. maxSamples bounds
// the search; if no ending crossing is found within it, the partial buffer
// generated so far (shifted to the found start) is returned. The search
// always renders with Voice.Render's offline (live=false) LFO-speed
// multiplier of 1.0, so modWheel has no effect here — it is accepted only
// so a caller that later wants to preview a live mod-wheel value has
// somewhere to pass it.
func FindZeroCrossingLoop(voice *fm.Voice, patch *fm.Patch, modWheel, sampleRate float64, targetSamples, maxSamples int) []float64 {
	buffer := make([]float64, maxSamples)
	targetCycles := int(math.Round(float64(targetSamples) * LFOFrequency(patch) / sampleRate))

	prevSample := 0.0
	samplesGenerated := 0
	loopStartIndex := 0
	foundStart := false

	searchLimit := maxSamples / 4
	for i := 0; i < searchLimit; i++ {
		current := voice.Render(patch, modWheel, false, sampleRate)

		if i > 0 {
			if isZeroCrossing(prevSample, current) {
				loopStartIndex = i
				buffer[i] = 0.0
				foundStart = true
				samplesGenerated = i + 1
				break
			}
		}

		buffer[i] = current * headroom
		prevSample = current
	}

	if !foundStart {
		loopStartIndex = 0
		samplesGenerated = 1
		buffer[0] = 0.0
	}

	prevSample = 0.0
	prevLFOPhase := voice.LFOPhase
	lfoCyclesCompleted := 0

	for i := samplesGenerated; i < maxSamples; i++ {
		current := voice.Render(patch, modWheel, false, sampleRate)

		if voice.LFOPhase < prevLFOPhase {
			lfoCyclesCompleted++
		}
		prevLFOPhase = voice.LFOPhase

		if lfoCyclesCompleted >= targetCycles && i > loopStartIndex+targetSamples {
			if isZeroCrossing(prevSample, current) {
				buffer[i] = 0.0
				samplesGenerated = i + 1
				return shiftToStart(buffer, loopStartIndex, samplesGenerated)
			}
		}

		if current > 1.0 {
			current = 1.0
		}
		if current < -1.0 {
			current = -1.0
		}
		buffer[i] = current * headroom
		prevSample = current
		samplesGenerated++

		if i >= maxSamples-1 {
			break
		}
	}

	if loopStartIndex > 0 && samplesGenerated > loopStartIndex {
		return shiftToStart(buffer, loopStartIndex, samplesGenerated)
	}
	return buffer[:samplesGenerated]
}

func isZeroCrossing(prev, current float64) bool {
	signChange := (prev >= 0.0 && current < 0.0) || (prev < 0.0 && current >= 0.0)
	return signChange || math.Abs(current) < 0.001
}

func shiftToStart(buffer []float64, start, end int) []float64 {
	length := end - start
	out := make([]float64, length)
	copy(out, buffer[start:end])
	return out
}
