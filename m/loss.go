package m

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// lossEpsilon keeps ln away from zero probabilities.
const lossEpsilon = 1e-12

// CrossEntropy returns -Σ target_i * ln(output_i + ε). It is reported for
// diagnostics only; gradients come from outputDeltas.
func CrossEntropy(output, target []float64) (float64, error) {
	if len(output) != len(target) {
		return 0, shapeErrorf("output has %d values, target has %d", len(output), len(target))
	}
	var loss float64
	for i, t := range target {
		if t == 0 {
			continue
		}
		loss -= t * math.Log(output[i]+lossEpsilon)
	}
	return loss, nil
}

// outputDeltas is the gradient of softmax followed by cross-entropy with
// respect to the logits: softmax_output - one_hot_label.
func outputDeltas(output *mat.VecDense, target []float64) *mat.VecDense {
	d := mat.NewVecDense(output.Len(), nil)
	d.SubVec(output, mat.NewVecDense(len(target), target))
	return d
}
