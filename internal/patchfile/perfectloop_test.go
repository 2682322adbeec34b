package patchfile

import (
	"testing"

	"github.com/cbegin/dx7synth-go/internal/fm"
)

func TestLFOFrequencyMaxAtSpeed99(t *testing.T) {
	p := fm.DefaultPatch()
	p.LFOSpeed = 99
	if got := LFOFrequency(&p); got != 6.0 {
		t.Fatalf("expected 6 Hz at max speed, got %v", got)
	}
}

func TestTargetSamplesFallsBackWithNoLFO(t *testing.T) {
	p := fm.DefaultPatch()
	p.LFOSpeed = 0
	if got := TargetSamples(&p, 48000, 4); got != 48000 {
		t.Fatalf("expected 1-second fallback, got %d", got)
	}
}

func TestTargetSamplesScalesWithCycles(t *testing.T) {
	p := fm.DefaultPatch()
	p.LFOSpeed = 99 // 6 Hz
	one := TargetSamples(&p, 48000, 1)
	four := TargetSamples(&p, 48000, 4)
	if four != one*4 {
		t.Fatalf("expected 4 cycles to take 4x as many samples: one=%d four=%d", one, four)
	}
}

func TestFindZeroCrossingLoopProducesBoundedBuffer(t *testing.T) {
	p := fm.DefaultPatch()
	p.LFOSpeed = 99
	p.Operators[0].EnvRates = [fm.EnvStages]int{99, 99, 99, 99}
	p.Operators[0].EnvLevels = [fm.EnvStages]int{99, 99, 99, 99}
	p.Clamp()

	var v fm.Voice
	v.NoteOn(&p, 60, 0, 1.0, 48000, 0)

	target := TargetSamples(&p, 48000, 1)
	maxSamples := target * 3
	buf := FindZeroCrossingLoop(&v, &p, 0, 48000, target, maxSamples)

	if len(buf) == 0 {
		t.Fatalf("expected a non-empty loop buffer")
	}
	if len(buf) > maxSamples {
		t.Fatalf("loop buffer exceeds the max samples bound: %d > %d", len(buf), maxSamples)
	}
	for _, s := range buf {
		if s > 1.0 || s < -1.0 {
			t.Fatalf("sample %v outside the headroom-limited range", s)
		}
	}
}
