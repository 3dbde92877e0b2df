package m

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// Sample is one training example: an input vector and a one-hot target.
type Sample struct {
	Inputs []float64
	Target []float64
}

type Samples []Sample

// Label returns the hot index of the target, or -1 for an empty target.
func (s Sample) Label() int {
	if len(s.Target) == 0 {
		return -1
	}
	return floats.MaxIdx(s.Target)
}

// OneHot returns a vector of n zeros with a 1 at label.
func OneHot(label, n int) ([]float64, error) {
	if label < 0 || label >= n {
		return nil, shapeErrorf("label %d outside %d classes", label, n)
	}
	v := make([]float64, n)
	v[label] = 1
	return v, nil
}

// Shuffled returns a shuffled copy of s. Samples keep their input/target
// pairing; the receiver is left in order.
func (s Samples) Shuffled(rng *rand.Rand) Samples {
	out := make(Samples, len(s))
	copy(out, s)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// GetLinesMNIST reads an MNIST CSV file: first value in each line is the
// label, the rest are pixel densities (0-255) scaled into [0, 1].
func GetLinesMNIST(filename string, inputNum, outputNum int) (Samples, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", filename)
	}
	defer file.Close()

	samples, err := ReadMNISTCSV(bufio.NewReader(file), inputNum, outputNum)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filename)
	}
	return samples, nil
}

func ReadMNISTCSV(reader io.Reader, inputNum, outputNum int) (Samples, error) {
	var samples Samples
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	var lineNum int
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return samples, errors.Wrapf(err, "line %d", lineNum)
		}
		if len(record) != inputNum+1 {
			return samples, errInvalidLine{
				lineNum:  lineNum,
				splits:   len(record),
				expected: inputNum + 1,
			}
		}

		label, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return samples, errors.Wrapf(err, "parsing label on line %d", lineNum)
		}
		target, err := OneHot(label, outputNum)
		if err != nil {
			return samples, errors.Wrapf(err, "line %d", lineNum)
		}

		inputs := make([]float64, inputNum)
		for i := range inputs {
			x, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
			if err != nil {
				return samples, errors.Wrapf(err, "parsing pixel %d on line %d", i, lineNum)
			}
			inputs[i] = x / 255.0
		}

		samples = append(samples, Sample{Inputs: inputs, Target: target})
	}
	return samples, nil
}

// GetLines reads lines of inputNum inputs followed by outputNum target
// values, all comma separated.
func GetLines(reader io.Reader, inputNum, outputNum int) (Samples, error) {
	scanner := bufio.NewScanner(reader)
	var samples Samples
	var lineNum int
	for scanner.Scan() {
		lineNum++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		splits := strings.Split(text, ",")
		if len(splits) != inputNum+outputNum {
			return samples, errInvalidLine{
				lineNum:  lineNum,
				splits:   len(splits),
				expected: inputNum + outputNum,
			}
		}
		inputs := make([]float64, inputNum)
		target := make([]float64, outputNum)

		for i, split := range splits {
			num, err := strconv.ParseFloat(strings.TrimSpace(split), 64)
			if err != nil {
				return samples, errors.Wrapf(err, "parsing value %d on line %d", i, lineNum)
			}
			if i < inputNum {
				inputs[i] = num
			} else {
				target[i-inputNum] = num
			}
		}
		samples = append(samples, Sample{Inputs: inputs, Target: target})
	}
	if err := scanner.Err(); err != nil {
		return samples, errors.Wrap(err, "scanning lines")
	}
	return samples, nil
}

/*------------------------------------------------------------------------------------------------------------------------*/

// NormalizeSamples returns copies of the samples with every input feature
// standardised. Features with zero deviation are only centred.
func NormalizeSamples(samples Samples, std []float64, mean []float64) Samples {
	normalized := make(Samples, len(samples))
	for i, s := range samples {
		inputs := make([]float64, len(s.Inputs))
		for j, x := range s.Inputs {
			inputs[j] = x - mean[j]
			if std[j] != 0 {
				inputs[j] /= std[j]
			}
		}
		normalized[i] = Sample{Inputs: inputs, Target: s.Target}
	}
	return normalized
}

func CalculateMean(samples Samples) []float64 {
	if len(samples) == 0 {
		return nil
	}

	mean := make([]float64, len(samples[0].Inputs))
	for _, s := range samples {
		floats.Add(mean, s.Inputs)
	}
	floats.Scale(1/float64(len(samples)), mean)
	return mean
}

func CalculateStdDev(samples Samples) []float64 {
	if len(samples) == 0 {
		return nil
	}

	mean := CalculateMean(samples)

	stdDev := make([]float64, len(mean))
	for _, s := range samples {
		for i, x := range s.Inputs {
			diff := x - mean[i]
			stdDev[i] += diff * diff
		}
	}

	for i := range stdDev {
		stdDev[i] = math.Sqrt(stdDev[i] / float64(len(samples)))
	}
	return stdDev
}
