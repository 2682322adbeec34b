// Package patchfile loads plain-text DX7 patch files and searches
// rendered audio for seamless loop boundaries.
package patchfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cbegin/dx7synth-go/internal/fm"
)

// Load reads a text patch file and returns a clamped Patch. "OPn" lines
// select the current operator, "KEY = VALUE" lines set a field either on
// the patch or (while an operator is selected) on that operator. Unknown
// keys are silently ignored.
func Load(path string) (fm.Patch, error) {
	f, err := os.Open(path)
	if err != nil {
		return fm.Patch{}, fmt.Errorf("patchfile: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a patch from r without touching the filesystem.
func Parse(r io.Reader) (fm.Patch, error) {
	p := fm.Patch{
		Name:      "INIT VOICE",
		Algorithm: 1,
		Feedback:  0,
		Transpose: 0,
	}

	currentOp := -1
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || line[0] == '#' {
			continue
		}

		if strings.HasPrefix(line, "OP") {
			n, err := strconv.Atoi(strings.TrimSpace(line[2:]))
			if err != nil {
				currentOp = -1
				continue
			}
			op := n - 1
			if op < 0 || op >= fm.NumOperators {
				currentOp = -1
			} else {
				currentOp = op
			}
			continue
		}

		param, value, ok := splitParam(line)
		if !ok {
			continue
		}

		applyPatchField(&p, param, value, currentOp)
	}
	if err := scanner.Err(); err != nil {
		return fm.Patch{}, fmt.Errorf("patchfile: %w", err)
	}

	p.Clamp()
	return p, nil
}

func splitParam(line string) (param, value string, ok bool) {
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return "", "", false
	}
	param = strings.TrimSpace(line[:eq])
	value = strings.TrimSpace(line[eq+1:])
	if param == "" || value == "" {
		return "", "", false
	}
	return param, value, true
}

func applyPatchField(p *fm.Patch, param, value string, currentOp int) {
	switch param {
	case "NAME":
		p.Name = value
		return
	case "ALGORITHM":
		p.Algorithm = atoi(value)
		return
	case "FEEDBACK":
		p.Feedback = atoi(value)
		return
	case "LFO_SPEED":
		p.LFOSpeed = atoi(value)
		return
	case "LFO_DELAY":
		p.LFODelay = atoi(value)
		return
	case "LFO_PMD":
		p.LFOPMD = atoi(value)
		return
	case "LFO_AMD":
		p.LFOAMD = atoi(value)
		return
	case "LFO_SYNC":
		p.LFOSync = atoi(value)
		return
	case "LFO_WAVE":
		p.LFOWave = atoi(value)
		return
	case "LFO_PITCH_MOD_SENS":
		p.LFOPitchModSens = atoi(value)
		return
	case "TRANSPOSE":
		p.Transpose = atoi(value)
		return
	}

	if currentOp < 0 {
		return
	}
	o := &p.Operators[currentOp]
	switch param {
	case "FREQ_RATIO":
		o.FreqRatio = atof(value)
	case "DETUNE":
		o.Detune = atoi(value)
	case "OUTPUT_LEVEL":
		o.OutputLevel = atoi(value)
	case "KEY_VEL_SENS":
		o.KeyVelSens = atoi(value)
	case "ENV_ATTACK":
		o.EnvRates[fm.EnvAttack] = atoi(value)
	case "ENV_DECAY1":
		o.EnvRates[fm.EnvDecay1] = atoi(value)
	case "ENV_DECAY2":
		o.EnvRates[fm.EnvDecay2] = atoi(value)
	case "ENV_RELEASE":
		o.EnvRates[fm.EnvRelease] = atoi(value)
	case "ENV_LEVEL1":
		o.EnvLevels[fm.EnvAttack] = atoi(value)
	case "ENV_LEVEL2":
		o.EnvLevels[fm.EnvDecay1] = atoi(value)
	case "ENV_LEVEL3":
		o.EnvLevels[fm.EnvDecay2] = atoi(value)
	case "ENV_LEVEL4":
		o.EnvLevels[fm.EnvRelease] = atoi(value)
	case "KEY_LEVEL_SCALE_BREAK_POINT":
		o.KeyLevelScaleBreakPoint = atoi(value)
	case "KEY_LEVEL_SCALE_LEFT_DEPTH":
		o.KeyLevelScaleLeftDepth = atoi(value)
	case "KEY_LEVEL_SCALE_RIGHT_DEPTH":
		o.KeyLevelScaleRightDepth = atoi(value)
	case "KEY_LEVEL_SCALE_LEFT_CURVE":
		o.KeyLevelScaleLeftCurve = atoi(value)
	case "KEY_LEVEL_SCALE_RIGHT_CURVE":
		o.KeyLevelScaleRightCurve = atoi(value)
	case "KEY_RATE_SCALING":
		o.KeyRateScaling = atoi(value)
	case "OSC_SYNC":
		o.OscSync = atoi(value)
	}
}

// atoi treats unparsable input as 0, not an error.
func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
