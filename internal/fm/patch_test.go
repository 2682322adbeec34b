package fm

import "testing"

func TestOperatorClampForcesDeclaredRanges(t *testing.T) {
	op := Operator{
		FreqRatio:   100.0,
		Detune:      -99,
		EnvRates:    [EnvStages]int{-5, 200, 50, 50},
		OutputLevel: 500,
		KeyVelSens:  99,
	}
	op.Clamp()
	if op.FreqRatio != 31.99 {
		t.Errorf("expected FreqRatio clamped to 31.99, got %v", op.FreqRatio)
	}
	if op.Detune != -7 {
		t.Errorf("expected Detune clamped to -7, got %v", op.Detune)
	}
	if op.EnvRates[0] != 0 || op.EnvRates[1] != 99 {
		t.Errorf("expected EnvRates clamped to [0,99], got %v", op.EnvRates)
	}
	if op.OutputLevel != 99 {
		t.Errorf("expected OutputLevel clamped to 99, got %v", op.OutputLevel)
	}
	if op.KeyVelSens != 7 {
		t.Errorf("expected KeyVelSens clamped to 7, got %v", op.KeyVelSens)
	}
}

func TestPatchClampCoercesOutOfRangeAlgorithmToOne(t *testing.T) {
	p := Patch{Algorithm: 0}
	p.Clamp()
	if p.Algorithm != 1 {
		t.Errorf("expected algorithm 0 to coerce to 1, got %d", p.Algorithm)
	}

	p2 := Patch{Algorithm: 99}
	p2.Clamp()
	if p2.Algorithm != 1 {
		t.Errorf("expected algorithm 99 to coerce to 1, got %d", p2.Algorithm)
	}
}

func TestPatchClampTrimsTrailingSpacesAndTruncatesName(t *testing.T) {
	p := Patch{Name: "ABCDEFGHIJKLMNOP   "}
	p.Clamp()
	if p.Name != "ABCDEFGHIJ" {
		t.Errorf("expected name truncated to 10 chars, got %q", p.Name)
	}

	p2 := Patch{Name: "HI   "}
	p2.Clamp()
	if p2.Name != "HI" {
		t.Errorf("expected trailing spaces trimmed, got %q", p2.Name)
	}
}

func TestDefaultPatchIsAlgorithm1WithOperator1AsSoleCarrier(t *testing.T) {
	p := DefaultPatch()
	if p.Algorithm != 1 {
		t.Fatalf("expected the default patch to use algorithm 1, got %d", p.Algorithm)
	}
	if p.Operators[0].OutputLevel == 0 {
		t.Fatalf("expected operator 1 to have nonzero output level")
	}
	for i := 1; i < NumOperators; i++ {
		if p.Operators[i].OutputLevel != 0 {
			t.Errorf("expected operator %d to be silent in the default patch, got level %d", i+1, p.Operators[i].OutputLevel)
		}
	}
}

func TestPatchClampPropagatesToOperators(t *testing.T) {
	p := Patch{}
	p.Operators[0].FreqRatio = 500.0
	p.Clamp()
	if p.Operators[0].FreqRatio != 31.99 {
		t.Fatalf("expected Patch.Clamp to clamp operator fields too, got %v", p.Operators[0].FreqRatio)
	}
}
