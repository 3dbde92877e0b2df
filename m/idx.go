package m

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	idxImageMagic = 2051
	idxLabelMagic = 2049

	maxIDXImageSize = 1 << 24
)

// LoadIDX reads an MNIST image/label file pair in IDX format.
func LoadIDX(imagePath, labelPath string, classes int) (Samples, error) {
	images, err := os.Open(imagePath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", imagePath)
	}
	defer images.Close()

	labels, err := os.Open(labelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", labelPath)
	}
	defer labels.Close()

	return ReadIDX(bufio.NewReader(images), bufio.NewReader(labels), classes)
}

// ReadIDX decodes IDX images and labels into samples with pixels scaled into
// [0, 1] and one-hot targets of length classes.
//
// IDX layout (big endian):
//
//	images: magic 2051, count, rows, cols, count*rows*cols bytes
//	labels: magic 2049, count, count bytes
func ReadIDX(images, labels io.Reader, classes int) (Samples, error) {
	var header [4]uint32
	if err := binary.Read(images, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "reading image header")
	}
	if header[0] != idxImageMagic {
		return nil, errors.Errorf("invalid image magic number: got %d, want %d", header[0], idxImageMagic)
	}
	rows, cols := uint64(header[2]), uint64(header[3])
	if rows*cols == 0 || rows*cols > maxIDXImageSize {
		return nil, shapeErrorf("image size %dx%d outside (0, %d] pixels", rows, cols, maxIDXImageSize)
	}
	numImages, imageSize := int(header[1]), int(rows*cols)

	var labelHeader [2]uint32
	if err := binary.Read(labels, binary.BigEndian, &labelHeader); err != nil {
		return nil, errors.Wrap(err, "reading label header")
	}
	if labelHeader[0] != idxLabelMagic {
		return nil, errors.Errorf("invalid label magic number: got %d, want %d", labelHeader[0], idxLabelMagic)
	}
	if int(labelHeader[1]) != numImages {
		return nil, shapeErrorf("%d images but %d labels", numImages, labelHeader[1])
	}

	// The header count is not trusted for allocation; a truncated file
	// fails on the first missing record.
	var samples Samples
	var label [1]byte
	pixels := make([]byte, imageSize)
	for i := 0; i < numImages; i++ {
		if _, err := io.ReadFull(labels, label[:]); err != nil {
			return nil, errors.Wrapf(err, "reading label %d", i)
		}
		if _, err := io.ReadFull(images, pixels); err != nil {
			return nil, errors.Wrapf(err, "reading image %d", i)
		}
		target, err := OneHot(int(label[0]), classes)
		if err != nil {
			return nil, errors.Wrapf(err, "image %d", i)
		}
		inputs := make([]float64, imageSize)
		for j, p := range pixels {
			inputs[j] = float64(p) / 255.0
		}
		samples = append(samples, Sample{Inputs: inputs, Target: target})
	}
	return samples, nil
}
