package m

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// randomArray draws size values from Uniform(-1/sqrt(v), 1/sqrt(v)).
func randomArray(size int, v float64, src rand.Source) []float64 {
	dist := distuv.Uniform{
		Min: -1 / math.Sqrt(v),
		Max: 1 / math.Sqrt(v),
		Src: src,
	}

	data := make([]float64, size)
	for i := 0; i < size; i++ {
		data[i] = dist.Rand()
	}
	return data
}

// rawData returns the backing slice of a freshly allocated vector.
func rawData(v *mat.VecDense) []float64 {
	return v.RawVector().Data
}

// argmax returns the index of the largest value. NaN anywhere is an error
// instead of an arbitrary winner.
func argmax(v []float64) (int, error) {
	if len(v) == 0 {
		return 0, ErrEmptyOutput
	}
	if floats.HasNaN(v) {
		return 0, ErrNaNActivation
	}
	return floats.MaxIdx(v), nil
}
