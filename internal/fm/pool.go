package fm

// MaxVoices is the fixed polyphony of the voice pool.
const MaxVoices = 16

// Pool is the fixed-size polyphonic voice manager: allocate-or-steal,
// find-by-note, per-voice release, and the sustain sweep. Pool carries
// no lock of its own — the caller (the root Engine) serializes access
// with its single voice mutex.
type Pool struct {
	Voices  [MaxVoices]Voice
	Counter uint64 // monotonic sample clock, advanced once per Render call

	NotesPlayed uint32
	VoiceSteals uint32
}

// Allocate finds a free voice slot, or steals the oldest-by-note-on-time
// voice if the pool is full, and arms it for the given note. Returns the
// slot index.
func (p *Pool) Allocate(patch *Patch, note, channel int, velocity float64, sampleRate float64) int {
	for i := range p.Voices {
		if !p.Voices[i].Active {
			p.Voices[i].NoteOn(patch, note, channel, velocity, sampleRate, p.Counter)
			p.NotesPlayed++
			return i
		}
	}

	oldest := 0
	oldestTime := p.Voices[0].NoteOnTime
	for i := 1; i < MaxVoices; i++ {
		if p.Voices[i].NoteOnTime < oldestTime {
			oldestTime = p.Voices[i].NoteOnTime
			oldest = i
		}
	}
	p.Voices[oldest].NoteOn(patch, note, channel, velocity, sampleRate, p.Counter)
	p.VoiceSteals++
	p.NotesPlayed++
	return oldest
}

// Find returns the active voice currently sounding the given note and
// channel, or nil. First match in slot order wins.
func (p *Pool) Find(note, channel int) *Voice {
	for i := range p.Voices {
		if p.Voices[i].Active && p.Voices[i].Note == note && p.Voices[i].Channel == channel {
			return &p.Voices[i]
		}
	}
	return nil
}

// ReleaseOne ends the note: if the sustain pedal is down the voice is
// marked sustain-held instead of released immediately.
func (p *Pool) ReleaseOne(patch *Patch, note, channel int, sampleRate float64, sustainActive bool) {
	v := p.Find(note, channel)
	if v == nil {
		return
	}
	if sustainActive {
		v.SustainHeld = true
		return
	}
	v.Release(patch, sampleRate)
}

// ReleaseSustained triggers release on every voice currently held by the
// sustain pedal, called when the pedal is lifted.
func (p *Pool) ReleaseSustained(patch *Patch, sampleRate float64) {
	for i := range p.Voices {
		v := &p.Voices[i]
		if v.Active && v.SustainHeld {
			v.Release(patch, sampleRate)
		}
	}
}

// ReleaseAll deactivates every voice immediately (CC 120/123).
func (p *Pool) ReleaseAll() {
	for i := range p.Voices {
		p.Voices[i].Active = false
		p.Voices[i].SustainHeld = false
	}
}

// ActiveCount reports how many voices are currently sounding.
func (p *Pool) ActiveCount() int {
	n := 0
	for i := range p.Voices {
		if p.Voices[i].Active {
			n++
		}
	}
	return n
}

// Render advances the clock by one sample, mixes every active voice, and
// reclaims any voice whose envelopes have decayed to silence. volume and
// expression are the 0..1 controller values applied on top of each
// voice's own velocity scaling. Velocity lands twice on purpose: once
// inside the operator's key-velocity-sensitivity curve, once again flat
// across the mix, under the 0.5 headroom scale.
func (p *Pool) Render(patch *Patch, modWheel, pitchBend, volume, expression, sampleRate float64) float64 {
	p.Counter++

	var mix float64
	for i := range p.Voices {
		v := &p.Voices[i]
		if !v.Active {
			continue
		}

		v.ApplyPitchBend(patch, pitchBend)
		sample := v.Render(patch, modWheel, true, sampleRate)
		sample *= volume
		sample *= expression
		sample *= v.Velocity
		mix += sample * 0.5

		if v.Done() {
			v.Active = false
		}
	}
	return mix
}
