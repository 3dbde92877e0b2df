package utils

import (
	"encoding/json"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"mlp_lib/m"
)

// Config holds training configuration
type Config struct {
	Name         string   `json:"name"`
	Architecture []int    `json:"architecture"`
	Activations  []string `json:"activations"`
	Epochs       int      `json:"epochs"`
	LearningRate float64  `json:"learning_rate"`
	Seed         uint64   `json:"seed"`

	// Format is "csv" (MNIST CSV, label first) or "idx". For idx the
	// label files are given separately.
	Format      string `json:"format"`
	TrainPath   string `json:"train_path"`
	TrainLabels string `json:"train_labels"`
	TestPath    string `json:"test_path"`
	TestLabels  string `json:"test_labels"`

	ModelPath    string `json:"model_path"`
	AnalysisPath string `json:"analysis_path"`
}

// DefaultConfig is a 784-128-10 sigmoid/softmax network for MNIST.
func DefaultConfig() Config {
	return Config{
		Name:         "mnist",
		Architecture: []int{784, 128, 10},
		Activations:  []string{"sigmoid", "softmax"},
		Epochs:       10,
		LearningRate: 0.01,
		Seed:         42,
		Format:       "csv",
	}
}

// LoadConfig reads a JSON config file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening config")
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(m.ErrConfiguration, "decoding %s: %v", path, err)
	}
	return &cfg, nil
}

// Network returns the topology part of the config.
func (c *Config) Network() m.Config {
	return m.Config{
		Sizes:       c.Architecture,
		Activations: c.Activations,
		Seed:        c.Seed,
	}
}

// ParseArchitecture parses architecture string into slice of integers
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.Fields(archStr)
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrapf(m.ErrConfiguration, "layer size %q", s)
		}
		arch[i] = n
	}
	return arch, nil
}

// ParseActivations splits a whitespace separated list such as
// "sigmoid softmax".
func ParseActivations(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	if err := config.Network().Validate(); err != nil {
		return err
	}

	if config.Epochs < 0 {
		return errors.Wrapf(m.ErrConfiguration, "epochs must not be negative, got %d", config.Epochs)
	}

	if config.LearningRate <= 0 || math.IsInf(config.LearningRate, 0) || math.IsNaN(config.LearningRate) {
		return errors.Wrapf(m.ErrConfiguration, "learning rate must be positive, got %v", config.LearningRate)
	}

	switch config.Format {
	case "csv", "idx":
	default:
		return errors.Wrapf(m.ErrConfiguration, "unknown data format %q", config.Format)
	}

	return nil
}
