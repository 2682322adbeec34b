package fm

import "math"

// algorithmDef is one of the 32 DX7-style modulation topologies: a set of
// carrier operators (1-indexed in the DX7 chart, 0-indexed here) and a
// [modulator][carrier] matrix of nonzero edge strengths. The table
// deviates from the canonical DX7 chart in three places it keeps on
// purpose: algorithm 1's chain stops at operator 2 and never reaches
// operator 1, and algorithms 2, 28 and 29 carry a self-edge (operator N
// modulating itself) where the chart draws a chain link.
type algorithmDef struct {
	carriers [NumOperators]bool
	matrix   [NumOperators][NumOperators]int
}

// algorithms is indexed 1..32; index 0 is an unused placeholder so the
// DX7's 1-based algorithm numbers can index directly.
var algorithms = buildAlgorithms()

func buildAlgorithms() [33]algorithmDef {
	var a [33]algorithmDef

	carr := func(ops ...int) [NumOperators]bool {
		var m [NumOperators]bool
		for _, o := range ops {
			m[o-1] = true
		}
		return m
	}
	edge := func(mods ...[3]int) [NumOperators][NumOperators]int {
		var m [NumOperators][NumOperators]int
		for _, e := range mods {
			m[e[0]-1][e[1]-1] = e[2]
		}
		return m
	}

	a[1] = algorithmDef{carr(1), edge([3]int{3, 2, 1}, [3]int{4, 3, 1}, [3]int{5, 4, 1}, [3]int{6, 5, 1})}
	a[2] = algorithmDef{carr(1, 2), edge([3]int{3, 3, 1}, [3]int{4, 4, 1}, [3]int{5, 5, 1})}
	a[3] = algorithmDef{carr(1, 3), edge([3]int{2, 1, 1}, [3]int{5, 4, 1}, [3]int{6, 5, 1})}
	a[4] = algorithmDef{carr(1, 4), edge([3]int{2, 1, 1}, [3]int{3, 2, 1}, [3]int{6, 5, 1})}
	a[5] = algorithmDef{carr(1, 5), edge([3]int{2, 1, 1}, [3]int{3, 2, 1}, [3]int{4, 3, 1})}
	a[6] = algorithmDef{carr(1, 2, 5), edge([3]int{3, 2, 1}, [3]int{4, 3, 1})}
	a[7] = algorithmDef{carr(1, 3, 5), edge([3]int{2, 1, 1})}
	a[8] = algorithmDef{carr(1, 2, 3, 5), edge()}
	a[9] = algorithmDef{carr(1, 4, 5), edge([3]int{2, 1, 1}, [3]int{3, 2, 1})}
	a[10] = algorithmDef{carr(1, 2, 4, 5), edge([3]int{3, 2, 1})}
	a[11] = algorithmDef{carr(1, 3, 4, 5), edge([3]int{2, 1, 1})}
	a[12] = algorithmDef{carr(1, 2, 3, 4, 5), edge()}
	a[13] = algorithmDef{carr(1, 6), edge([3]int{2, 1, 1}, [3]int{3, 2, 1}, [3]int{4, 3, 1}, [3]int{5, 4, 1})}
	a[14] = algorithmDef{carr(1, 2, 6), edge([3]int{3, 2, 1}, [3]int{4, 3, 1}, [3]int{5, 4, 1})}
	a[15] = algorithmDef{carr(1, 3, 6), edge([3]int{2, 1, 1}, [3]int{5, 4, 1})}
	a[16] = algorithmDef{carr(1, 4, 6), edge([3]int{2, 1, 1}, [3]int{3, 2, 1})}
	a[17] = algorithmDef{carr(1, 2, 4, 6), edge([3]int{3, 2, 1})}
	a[18] = algorithmDef{carr(1, 3, 4, 6), edge([3]int{2, 1, 1})}
	a[19] = algorithmDef{carr(1, 5, 6), edge([3]int{2, 1, 1}, [3]int{3, 2, 1}, [3]int{4, 3, 1})}
	a[20] = algorithmDef{carr(1, 2, 5, 6), edge([3]int{3, 2, 1}, [3]int{4, 3, 1})}
	a[21] = algorithmDef{carr(1, 3, 5, 6), edge([3]int{2, 1, 1})}
	a[22] = algorithmDef{carr(1, 4, 5, 6), edge([3]int{2, 1, 1}, [3]int{3, 2, 1})}
	a[23] = algorithmDef{carr(1, 2, 4, 5, 6), edge([3]int{3, 2, 1})}
	a[24] = algorithmDef{carr(1, 3, 4, 5, 6), edge([3]int{2, 1, 1})}
	a[25] = algorithmDef{carr(1, 2, 3, 4, 5, 6), edge()}
	a[26] = algorithmDef{carr(1), edge([3]int{2, 1, 1}, [3]int{3, 2, 1}, [3]int{4, 3, 1}, [3]int{5, 4, 1}, [3]int{6, 4, 1})}
	a[27] = algorithmDef{carr(1, 2), edge([3]int{3, 2, 1}, [3]int{4, 3, 1}, [3]int{5, 4, 1}, [3]int{6, 4, 1})}
	a[28] = algorithmDef{carr(1, 3), edge([3]int{2, 1, 1}, [3]int{4, 4, 1}, [3]int{5, 4, 1}, [3]int{6, 4, 1})}
	a[29] = algorithmDef{carr(1, 4), edge([3]int{2, 1, 1}, [3]int{3, 2, 1}, [3]int{5, 5, 1}, [3]int{6, 5, 1})}
	a[30] = algorithmDef{carr(1, 2, 4), edge([3]int{3, 2, 1}, [3]int{5, 4, 1}, [3]int{6, 4, 1})}
	a[31] = algorithmDef{carr(1, 3, 4), edge([3]int{2, 1, 1}, [3]int{5, 4, 1}, [3]int{6, 4, 1})}
	a[32] = algorithmDef{carr(1, 2, 3, 4), edge([3]int{5, 1, 1}, [3]int{5, 2, 1}, [3]int{5, 3, 1}, [3]int{5, 4, 1}, [3]int{6, 1, 1}, [3]int{6, 2, 1}, [3]int{6, 3, 1}, [3]int{6, 4, 1})}

	return a
}

// routeAlgorithm composes six raw operator sines and their instantaneous
// levels into one voice sample. op0Raw is operator 1's own pre-feedback
// scaled sine for this same sample, which the feedback path warps before
// the modulation matrix runs — a same-sample tap, not a one-sample delay.
func routeAlgorithm(alg, feedback int, sines, levels [NumOperators]float64, op0Raw float64) float64 {
	if alg < 1 || alg > 32 {
		alg = 1
	}
	def := &algorithms[alg]

	var scaled [NumOperators]float64
	for i := 0; i < NumOperators; i++ {
		scaled[i] = sines[i] * levels[i]
	}

	feedbackValue := op0Raw * (float64(feedback) / 7.0) * 0.1
	if feedbackValue != 0 {
		scaled[0] = math.Sin(twoPi*scaled[0] + feedbackValue)
	}

	for m := 0; m < NumOperators; m++ {
		for c := 0; c < NumOperators; c++ {
			if def.matrix[m][c] > 0 {
				modDepth := float64(def.matrix[m][c]) * levels[m] * 2.0
				scaled[c] = math.Sin(twoPi*1.0 + scaled[m]*modDepth)
			}
		}
	}

	var sum float64
	var numCarriers int
	for i := 0; i < NumOperators; i++ {
		if def.carriers[i] {
			sum += scaled[i]
			numCarriers++
		}
	}
	if numCarriers == 0 {
		return 0
	}
	return sum / math.Sqrt(float64(numCarriers))
}
