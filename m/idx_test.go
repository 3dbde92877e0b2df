package m

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idxImages(t *testing.T, magic uint32, rows, cols int, images ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	header := []uint32{magic, uint32(len(images)), uint32(rows), uint32(cols)}
	require.NoError(t, binary.Write(&buf, binary.BigEndian, header))
	for _, img := range images {
		buf.Write(img)
	}
	return buf.Bytes()
}

func idxLabels(t *testing.T, magic uint32, labels ...byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, []uint32{magic, uint32(len(labels))}))
	buf.Write(labels)
	return buf.Bytes()
}

func TestReadIDX(t *testing.T) {
	images := idxImages(t, idxImageMagic, 2, 2,
		[]byte{0, 255, 51, 0},
		[]byte{255, 255, 255, 255},
	)
	labels := idxLabels(t, idxLabelMagic, 4, 9)

	samples, err := ReadIDX(bytes.NewReader(images), bytes.NewReader(labels), 10)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.InDeltaSlice(t, []float64{0, 1, 0.2, 0}, samples[0].Inputs, 1e-12)
	assert.Equal(t, 4, samples[0].Label())
	assert.Equal(t, []float64{1, 1, 1, 1}, samples[1].Inputs)
	assert.Equal(t, 9, samples[1].Label())
}

func TestReadIDXErrors(t *testing.T) {
	img := []byte{1, 2, 3, 4}

	_, err := ReadIDX(bytes.NewReader(idxImages(t, 1234, 2, 2, img)), bytes.NewReader(idxLabels(t, idxLabelMagic, 1)), 10)
	assert.ErrorContains(t, err, "invalid image magic number")

	_, err = ReadIDX(bytes.NewReader(idxImages(t, idxImageMagic, 2, 2, img)), bytes.NewReader(idxLabels(t, 99, 1)), 10)
	assert.ErrorContains(t, err, "invalid label magic number")

	_, err = ReadIDX(bytes.NewReader(idxImages(t, idxImageMagic, 2, 2, img)), bytes.NewReader(idxLabels(t, idxLabelMagic, 1, 2)), 10)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = ReadIDX(bytes.NewReader(idxImages(t, idxImageMagic, 2, 2, img)), bytes.NewReader(idxLabels(t, idxLabelMagic, 3)), 2)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	truncated := idxImages(t, idxImageMagic, 2, 2, img)
	_, err = ReadIDX(bytes.NewReader(truncated[:len(truncated)-1]), bytes.NewReader(idxLabels(t, idxLabelMagic, 1)), 10)
	assert.ErrorContains(t, err, "reading image 0")
}

func TestReadIDXCorruptHeader(t *testing.T) {
	labels := idxLabels(t, idxLabelMagic, 1)

	for _, dims := range [][2]int{{0, 28}, {28, 0}, {65536, 65536}} {
		images := idxImages(t, idxImageMagic, dims[0], dims[1], []byte{1, 2, 3, 4})
		_, err := ReadIDX(bytes.NewReader(images), bytes.NewReader(labels), 10)
		assert.ErrorIs(t, err, ErrShapeMismatch, "%dx%d", dims[0], dims[1])
	}

	// a count far beyond the data must fail on the first missing record
	images := idxImages(t, idxImageMagic, 2, 2, []byte{1, 2, 3, 4})
	binary.BigEndian.PutUint32(images[4:8], 0x7FFFFFFF)
	labels = idxLabels(t, idxLabelMagic, 1)
	binary.BigEndian.PutUint32(labels[4:8], 0x7FFFFFFF)
	_, err := ReadIDX(bytes.NewReader(images), bytes.NewReader(labels), 10)
	assert.ErrorContains(t, err, "reading label 1")
}

func TestLoadIDX(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "images.idx3-ubyte")
	labelPath := filepath.Join(dir, "labels.idx1-ubyte")
	require.NoError(t, os.WriteFile(imagePath, idxImages(t, idxImageMagic, 1, 3, []byte{0, 0, 255}), 0644))
	require.NoError(t, os.WriteFile(labelPath, idxLabels(t, idxLabelMagic, 2), 0644))

	samples, err := LoadIDX(imagePath, labelPath, 3)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, []float64{0, 0, 1}, samples[0].Inputs)
	assert.Equal(t, 2, samples[0].Label())

	_, err = LoadIDX(filepath.Join(dir, "nope"), labelPath, 3)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
