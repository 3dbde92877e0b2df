package utils

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// AnalysisRecord is one row of the per-epoch analysis log.
type AnalysisRecord struct {
	Name          string
	Architecture  []int
	Activations   []string
	Epoch         int
	Epochs        int
	LearningRate  float64
	Loss          float64
	TrainAccuracy float64
	TestAccuracy  float64
	Elapsed       time.Duration
	EndTime       time.Time
}

var analysisHeaders = []string{
	"Name", "Activations", "Architecture", "Epoch", "Epochs", "LR", "Loss",
	"Train Accuracy", "Test Accuracy", "Seconds", "End Time",
}

func (r AnalysisRecord) strings() []string {
	arch := make([]string, len(r.Architecture))
	for i, n := range r.Architecture {
		arch[i] = strconv.Itoa(n)
	}
	return []string{
		r.Name,
		strings.Join(r.Activations, " "),
		strings.Join(arch, " "),
		strconv.Itoa(r.Epoch),
		strconv.Itoa(r.Epochs),
		strconv.FormatFloat(r.LearningRate, 'f', -1, 64),
		strconv.FormatFloat(r.Loss, 'f', 6, 64),
		strconv.FormatFloat(r.TrainAccuracy, 'f', 4, 64),
		strconv.FormatFloat(r.TestAccuracy, 'f', 4, 64),
		strconv.FormatFloat(r.Elapsed.Seconds(), 'f', 3, 64),
		strconv.FormatInt(r.EndTime.Unix(), 10),
	}
}

// AppendAnalysis appends a row to the CSV file at path, creating the file
// and its header row when it does not exist yet.
func AppendAnalysis(path string, record AnalysisRecord) error {
	var needsHeaders bool
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return errors.Wrap(err, "creating analysis directory")
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeaders = true
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "opening analysis file")
	}

	if err := writeAnalysis(file, needsHeaders, record); err != nil {
		file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "closing analysis file")
}

func writeAnalysis(out io.Writer, needsHeaders bool, record AnalysisRecord) error {
	w := csv.NewWriter(out)
	if needsHeaders {
		if err := w.Write(analysisHeaders); err != nil {
			return errors.Wrap(err, "writing csv headers")
		}
	}
	if err := w.Write(record.strings()); err != nil {
		return errors.Wrap(err, "writing csv record")
	}
	w.Flush()
	return errors.Wrap(w.Error(), "error writing csv")
}
