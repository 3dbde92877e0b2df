package m

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestGetLines(t *testing.T) {
	in := "0.5,1,0,1\n\n-2,3.25,1,0\n"
	samples, err := GetLines(strings.NewReader(in), 2, 2)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, []float64{0.5, 1}, samples[0].Inputs)
	assert.Equal(t, []float64{0, 1}, samples[0].Target)
	assert.Equal(t, 1, samples[0].Label())
	assert.Equal(t, []float64{-2, 3.25}, samples[1].Inputs)
	assert.Equal(t, 0, samples[1].Label())
}

func TestGetLinesInvalid(t *testing.T) {
	_, err := GetLines(strings.NewReader("1,2,0,1\n1,2,3\n"), 2, 2)
	require.Error(t, err)
	assert.Equal(t, "at line 2, expected 4 values, got 3", err.Error())

	_, err = GetLines(strings.NewReader("1,x,0,1\n"), 2, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestReadMNISTCSV(t *testing.T) {
	samples, err := ReadMNISTCSV(strings.NewReader("3,0,255,51\n0,255,0,0\n"), 3, 10)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, 3, samples[0].Label())
	assert.Len(t, samples[0].Target, 10)
	assert.InDeltaSlice(t, []float64{0, 1, 0.2}, samples[0].Inputs, 1e-12)
	assert.Equal(t, 0, samples[1].Label())

	_, err = ReadMNISTCSV(strings.NewReader("12,0,0,0\n"), 3, 10)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = ReadMNISTCSV(strings.NewReader("1,0,0\n"), 3, 10)
	assert.EqualError(t, err, "at line 1, expected 4 values, got 3")
}

func TestGetLinesMNIST(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mnist.csv")
	require.NoError(t, os.WriteFile(path, []byte("7,0,128\n1,255,255\n"), 0644))

	samples, err := GetLinesMNIST(path, 2, 10)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 7, samples[0].Label())
	assert.Equal(t, []float64{1, 1}, samples[1].Inputs)

	_, err = GetLinesMNIST(filepath.Join(t.TempDir(), "missing.csv"), 2, 10)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOneHot(t *testing.T) {
	v, err := OneHot(2, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 0}, v)

	_, err = OneHot(4, 4)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = OneHot(-1, 4)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestShuffledIsPermutation(t *testing.T) {
	const n = 50
	samples := make(Samples, n)
	for i := range samples {
		target, err := OneHot(i%3, 3)
		require.NoError(t, err)
		samples[i] = Sample{Inputs: []float64{float64(i)}, Target: target}
	}

	shuffled := samples.Shuffled(rand.New(rand.NewSource(42)))
	require.Len(t, shuffled, n)

	var ids []int
	moved := false
	for pos, s := range shuffled {
		id := int(s.Inputs[0])
		ids = append(ids, id)
		assert.Equal(t, id%3, s.Label(), "sample %d lost its target", id)
		if id != pos {
			moved = true
		}
	}
	assert.True(t, moved)

	sort.Ints(ids)
	for i, id := range ids {
		assert.Equal(t, i, id)
	}

	for i, s := range samples {
		assert.Equal(t, float64(i), s.Inputs[0], "original reordered")
	}
}

func TestNormalizeSamples(t *testing.T) {
	samples := Samples{
		{Inputs: []float64{1, 5}, Target: []float64{1, 0}},
		{Inputs: []float64{3, 5}, Target: []float64{0, 1}},
	}
	mean := CalculateMean(samples)
	std := CalculateStdDev(samples)
	assert.Equal(t, []float64{2, 5}, mean)
	assert.Equal(t, []float64{1, 0}, std)

	normalized := NormalizeSamples(samples, std, mean)
	assert.Equal(t, []float64{-1, 0}, normalized[0].Inputs)
	assert.Equal(t, []float64{1, 0}, normalized[1].Inputs)
	assert.Equal(t, samples[1].Target, normalized[1].Target)
	assert.Equal(t, []float64{1, 5}, samples[0].Inputs)

	assert.Nil(t, CalculateMean(nil))
	assert.Nil(t, CalculateStdDev(nil))
}
