package utils

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"mlp_lib/m"
)

const WeightsVersion = "1.0"

// WeightData represents serializable weight data for a layer
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// LayerWeight contains weights and bias for a layer. The input layer only
// records its size.
type LayerWeight struct {
	Activation string      `json:"activation"`
	Size       int         `json:"size"`
	Weight     *WeightData `json:"weight,omitempty"`
	Bias       *WeightData `json:"bias,omitempty"`
}

// ModelWeights represents all weights in a model, input layer first.
type ModelWeights struct {
	Version string        `json:"version"`
	Layers  []LayerWeight `json:"layers"`
}

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal weights")
	}
	return errors.Wrap(os.WriteFile(filepath, data, 0644), "failed to write weights file")
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read weights file")
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal weights")
	}
	return &weights, nil
}

// DenseToWeightData converts a matrix to serializable weight data
func DenseToWeightData(name string, d mat.Matrix) *WeightData {
	r, c := d.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, d.At(i, j))
		}
	}
	return &WeightData{Name: name, Shape: []int{r, c}, Data: data}
}

// VecToWeightData converts a vector to serializable weight data
func VecToWeightData(name string, v mat.Vector) *WeightData {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return &WeightData{Name: name, Shape: []int{v.Len()}, Data: data}
}

// FromNetwork captures every layer of net.
func FromNetwork(net *m.Network) *ModelWeights {
	weights := &ModelWeights{
		Version: WeightsVersion,
		Layers:  make([]LayerWeight, net.NumLayers()),
	}
	for l := 0; l < net.NumLayers(); l++ {
		layer := net.Layer(l)
		lw := LayerWeight{Activation: layer.Activator.String(), Size: layer.Size()}
		if layer.Weights != nil {
			lw.Weight = DenseToWeightData("weight", layer.Weights)
			lw.Bias = VecToWeightData("bias", layer.Biases)
		}
		weights.Layers[l] = lw
	}
	return weights
}

// ToNetwork rebuilds a network, checking every shape against the layer
// sizes recorded in the file.
func ToNetwork(weights *ModelWeights) (*m.Network, error) {
	if weights == nil || len(weights.Layers) < 2 {
		return nil, errors.Wrap(m.ErrConfiguration, "model needs at least 2 layers")
	}
	cfg := m.Config{}
	for l, lw := range weights.Layers {
		cfg.Sizes = append(cfg.Sizes, lw.Size)
		if l > 0 {
			cfg.Activations = append(cfg.Activations, lw.Activation)
		}
	}
	net, err := m.NewNetwork(cfg)
	if err != nil {
		return nil, err
	}

	for l := 1; l < len(weights.Layers); l++ {
		lw := weights.Layers[l]
		rows, cols := lw.Size, weights.Layers[l-1].Size
		if err := checkShape(lw.Weight, rows, cols); err != nil {
			return nil, errors.Wrapf(err, "layer %d weight", l)
		}
		if err := checkShape(lw.Bias, rows); err != nil {
			return nil, errors.Wrapf(err, "layer %d bias", l)
		}
		for i := 0; i < rows; i++ {
			if err := net.SetNeuron(l, i, lw.Weight.Data[i*cols:(i+1)*cols], lw.Bias.Data[i]); err != nil {
				return nil, err
			}
		}
	}
	return net, nil
}

func checkShape(wd *WeightData, shape ...int) error {
	if wd == nil {
		return errors.Wrap(m.ErrShapeMismatch, "missing")
	}
	size := 1
	for _, d := range shape {
		size *= d
	}
	if len(wd.Shape) != len(shape) || len(wd.Data) != size {
		return errors.Wrapf(m.ErrShapeMismatch, "shape %v with %d values, want %v", wd.Shape, len(wd.Data), shape)
	}
	for i := range shape {
		if wd.Shape[i] != shape[i] {
			return errors.Wrapf(m.ErrShapeMismatch, "shape %v, want %v", wd.Shape, shape)
		}
	}
	return nil
}

// SaveNetwork writes net as JSON to path.
func SaveNetwork(path string, net *m.Network) error {
	return SaveWeights(path, FromNetwork(net))
}

// LoadNetwork reads a network written by SaveNetwork.
func LoadNetwork(path string) (*m.Network, error) {
	weights, err := LoadWeights(path)
	if err != nil {
		return nil, err
	}
	return ToNetwork(weights)
}
