package utils

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlp_lib/m"
)

func TestParseArchitecture(t *testing.T) {
	arch, err := ParseArchitecture(" 784 128\t10 ")
	require.NoError(t, err)
	assert.Equal(t, []int{784, 128, 10}, arch)

	_, err = ParseArchitecture("784 x 10")
	assert.ErrorIs(t, err, m.ErrConfiguration)
}

func TestParseActivations(t *testing.T) {
	assert.Equal(t, []string{"relu", "softmax"}, ParseActivations("ReLU  softmax"))
	assert.Empty(t, ParseActivations(""))
}

func TestValidateConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ValidateConfig(&cfg))

	cases := map[string]func(c *Config){
		"one layer":          func(c *Config) { c.Architecture = []int{784}; c.Activations = nil },
		"activation count":   func(c *Config) { c.Activations = []string{"softmax"} },
		"negative epochs":    func(c *Config) { c.Epochs = -1 },
		"zero learning rate": func(c *Config) { c.LearningRate = 0 },
		"NaN learning rate":  func(c *Config) { c.LearningRate = math.NaN() },
		"unknown format":     func(c *Config) { c.Format = "parquet" },
		"relu output":        func(c *Config) { c.Activations = []string{"sigmoid", "relu"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			mutate(&c)
			assert.ErrorIs(t, ValidateConfig(&c), m.ErrConfiguration)
		})
	}

	zero := DefaultConfig()
	zero.Epochs = 0
	assert.NoError(t, ValidateConfig(&zero))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "small",
		"architecture": [4, 3, 2],
		"activations": ["relu", "softmax"],
		"learning_rate": 0.5
	}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "small", cfg.Name)
	assert.Equal(t, []int{4, 3, 2}, cfg.Architecture)
	assert.Equal(t, 0.5, cfg.LearningRate)
	assert.Equal(t, DefaultConfig().Epochs, cfg.Epochs)
	assert.Equal(t, m.Config{Sizes: []int{4, 3, 2}, Activations: []string{"relu", "softmax"}, Seed: 42}, cfg.Network())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"epochz": 3}`), 0644))
	_, err = LoadConfig(bad)
	assert.ErrorIs(t, err, m.ErrConfiguration)

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
