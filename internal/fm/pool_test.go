package fm

import "testing"

func sustainedPatch() Patch {
	p := DefaultPatch()
	p.Operators[0].EnvRates = [EnvStages]int{99, 99, 99, 99}
	p.Operators[0].EnvLevels = [EnvStages]int{99, 99, 99, 99}
	p.Operators[0].OutputLevel = 99
	p.Clamp()
	return p
}

func TestPoolAllocateFindsFreeSlot(t *testing.T) {
	var p Pool
	patch := sustainedPatch()
	idx := p.Allocate(&patch, 60, 0, 1.0, 48000)
	if idx != 0 {
		t.Fatalf("expected an empty pool to hand out slot 0, got %d", idx)
	}
	if !p.Voices[idx].Active {
		t.Fatalf("expected allocated voice to be active")
	}
	if p.NotesPlayed != 1 {
		t.Fatalf("expected NotesPlayed=1, got %d", p.NotesPlayed)
	}
}

func TestPoolAllocateStealsOldestWhenFull(t *testing.T) {
	var p Pool
	patch := sustainedPatch()
	for i := 0; i < MaxVoices; i++ {
		p.Counter = uint64(i)
		p.Allocate(&patch, 40+i, 0, 1.0, 48000)
	}
	if p.VoiceSteals != 0 {
		t.Fatalf("expected no steals yet, got %d", p.VoiceSteals)
	}

	p.Counter = uint64(MaxVoices)
	p.Allocate(&patch, 99, 0, 1.0, 48000)
	if p.VoiceSteals != 1 {
		t.Fatalf("expected exactly 1 steal, got %d", p.VoiceSteals)
	}
	if p.Find(40, 0) != nil {
		t.Fatalf("expected the oldest note (40) to have been stolen")
	}
	if p.Find(99, 0) == nil {
		t.Fatalf("expected the newly allocated note to be present")
	}
}

func TestPoolFindReturnsNilForUnknownNote(t *testing.T) {
	var p Pool
	if p.Find(60, 0) != nil {
		t.Fatalf("expected nil for a note with no active voice")
	}
}

func TestPoolReleaseOneDefersWhenSustained(t *testing.T) {
	var p Pool
	patch := sustainedPatch()
	p.Allocate(&patch, 60, 0, 1.0, 48000)
	p.ReleaseOne(&patch, 60, 0, 48000, true)

	v := p.Find(60, 0)
	if v == nil || !v.SustainHeld {
		t.Fatalf("expected the voice to be marked sustain-held")
	}
	if v.Operators[0].Env.Stage == StageRelease {
		t.Fatalf("expected release to be deferred while sustain is active")
	}
}

func TestPoolReleaseSustainedReleasesOnPedalUp(t *testing.T) {
	var p Pool
	patch := sustainedPatch()
	p.Allocate(&patch, 60, 0, 1.0, 48000)
	p.ReleaseOne(&patch, 60, 0, 48000, true)
	p.ReleaseSustained(&patch, 48000)

	v := p.Find(60, 0)
	if v.Operators[0].Env.Stage != StageRelease {
		t.Fatalf("expected release once the sustain-held sweep ran")
	}
}

func TestPoolReleaseAllDeactivatesImmediately(t *testing.T) {
	var p Pool
	patch := sustainedPatch()
	p.Allocate(&patch, 60, 0, 1.0, 48000)
	p.Allocate(&patch, 62, 0, 1.0, 48000)
	p.ReleaseAll()
	if p.ActiveCount() != 0 {
		t.Fatalf("expected all voices deactivated, got %d active", p.ActiveCount())
	}
}

func TestPoolRenderScalesMixByVelocity(t *testing.T) {
	var loudPool, quietPool Pool
	patch := sustainedPatch()
	loudPool.Allocate(&patch, 60, 0, 1.0, 48000)
	quietPool.Allocate(&patch, 60, 0, 0.2, 48000)

	peak := func(p *Pool) float64 {
		var max float64
		for i := 0; i < 500; i++ {
			s := p.Render(&patch, 0, 0, 1.0, 1.0, 48000)
			if s < 0 {
				s = -s
			}
			if s > max {
				max = s
			}
		}
		return max
	}
	loud := peak(&loudPool)
	quiet := peak(&quietPool)

	if quiet >= loud {
		t.Fatalf("expected lower velocity to produce a quieter mix: loud=%v quiet=%v", loud, quiet)
	}
}

func TestPoolRenderReclaimsFinishedVoices(t *testing.T) {
	var p Pool
	patch := DefaultPatch()
	for i := range patch.Operators {
		// every operator decays straight to silence, so Done fires
		patch.Operators[i].EnvRates = [EnvStages]int{99, 99, 99, 99}
		patch.Operators[i].EnvLevels = [EnvStages]int{99, 0, 0, 0}
	}
	patch.Clamp()

	p.Allocate(&patch, 60, 0, 1.0, 48000)
	for i := 0; i < 48000; i++ {
		p.Render(&patch, 0, 0, 1.0, 1.0, 48000)
	}
	if p.ActiveCount() != 0 {
		t.Fatalf("expected the voice to be reclaimed once its envelope decayed, got %d active", p.ActiveCount())
	}
}
