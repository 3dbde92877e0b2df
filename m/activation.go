package m

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Activator turns a layer's raw values into its activated values. Activate
// sees the whole layer at once so that softmax can normalise jointly;
// elementwise activators simply map each entry.
type Activator interface {
	Activate(dst, raw []float64)
	// Derivative is d(activated)/d(raw) for a single neuron. For softmax it
	// is only the diagonal term and is never used by backpropagation, which
	// takes the closed form cross-entropy gradient at the output.
	Derivative(raw, activated float64) float64
	fmt.Stringer
}

var ActivatorLookup = map[string]Activator{
	"identity": Identity{},
	"sigmoid":  Sigmoid{},
	"relu":     ReLU{},
	"softmax":  Softmax{},
}

// LookupActivator returns the activator registered under name.
func LookupActivator(name string) (Activator, error) {
	act, ok := ActivatorLookup[name]
	if !ok {
		return nil, configErrorf("unknown activation %q", name)
	}
	return act, nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func sigmoidDerivative(x float64) float64 {
	s := sigmoid(x)
	return s * (1 - s)
}

// SigmoidOf is the logistic function 1/(1+e^-x).
func SigmoidOf(x float64) float64 { return sigmoid(x) }

// SigmoidDerivativeOf is sigmoid(x)*(1-sigmoid(x)).
func SigmoidDerivativeOf(x float64) float64 { return sigmoidDerivative(x) }

// SoftmaxOf returns e^v_i / Σ e^v_j as a new slice. The exponent is shifted
// by the log-sum-exp of v, so large logits do not overflow.
func SoftmaxOf(v []float64) []float64 {
	out := make([]float64, len(v))
	softmaxInto(out, v)
	return out
}

func softmaxInto(dst, v []float64) {
	if len(v) == 0 {
		return
	}
	lse := floats.LogSumExp(v)
	for i, x := range v {
		dst[i] = math.Exp(x - lse)
	}
}

type Identity struct{}

func (Identity) Activate(dst, raw []float64) { copy(dst, raw) }

func (Identity) Derivative(_, _ float64) float64 { return 1 }

func (Identity) String() string { return "identity" }

type Sigmoid struct{}

func (Sigmoid) Activate(dst, raw []float64) {
	for i, x := range raw {
		dst[i] = sigmoid(x)
	}
}

func (Sigmoid) Derivative(raw, _ float64) float64 {
	return sigmoidDerivative(raw)
}

func (Sigmoid) String() string { return "sigmoid" }

type ReLU struct{}

func (ReLU) Activate(dst, raw []float64) {
	for i, x := range raw {
		dst[i] = math.Max(0, x)
	}
}

func (ReLU) Derivative(raw, _ float64) float64 {
	if raw > 0 {
		return 1
	}
	return 0
}

func (ReLU) String() string { return "relu" }

type Softmax struct{}

func (Softmax) Activate(dst, raw []float64) { softmaxInto(dst, raw) }

func (Softmax) Derivative(_, activated float64) float64 {
	return activated * (1 - activated)
}

func (Softmax) String() string { return "softmax" }
