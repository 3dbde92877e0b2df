package m

import (
	"fmt"

	"github.com/pkg/errors"
)

// These are the sentinel errors returned (wrapped) by the network. Callers
// match them with errors.Is or errors.Cause.
var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrConfiguration = errors.New("invalid configuration")
	ErrNaNActivation = errors.New("NaN in output activations")
	ErrEmptyOutput   = errors.New("empty output vector")
)

func shapeErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrShapeMismatch, format, args...)
}

func configErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}

type errInvalidLine struct {
	lineNum  int
	splits   int
	expected int
}

func (e errInvalidLine) Error() string {
	return fmt.Sprintf("at line %d, expected %d values, got %d",
		e.lineNum, e.expected, e.splits)
}
