package m

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Config is the topology of a network: one size per layer, input first, and
// one activation name for every layer after the input.
type Config struct {
	Sizes       []int
	Activations []string
	Seed        uint64
}

var hiddenActivations = map[string]bool{
	"sigmoid": true,
	"relu":    true,
}

// Validate reports an ErrConfiguration for any topology the trainer cannot
// run. The output layer must be softmax since backpropagation uses the
// softmax/cross-entropy gradient directly.
func (c Config) Validate() error {
	if len(c.Sizes) < 2 {
		return configErrorf("need at least 2 layers, got %d", len(c.Sizes))
	}
	for i, size := range c.Sizes {
		if size <= 0 {
			return configErrorf("layer %d has size %d", i, size)
		}
	}
	if len(c.Activations) != len(c.Sizes)-1 {
		return configErrorf("%d layers need %d activations, got %d",
			len(c.Sizes), len(c.Sizes)-1, len(c.Activations))
	}
	last := len(c.Activations) - 1
	for i, name := range c.Activations {
		if _, err := LookupActivator(name); err != nil {
			return err
		}
		if i == last {
			if name != "softmax" {
				return configErrorf("output activation must be softmax, got %q", name)
			}
		} else if !hiddenActivations[name] {
			return configErrorf("hidden layer %d cannot use %q", i+1, name)
		}
	}
	return nil
}

// Layer holds the parameters feeding one layer. Row i of Weights and entry i
// of Biases belong to neuron i; the input layer has neither.
type Layer struct {
	Activator Activator
	Weights   *mat.Dense
	Biases    *mat.VecDense
	size      int
}

func (l Layer) Size() int {
	return l.size
}

// Neuron is a copy of one neuron's parameters.
type Neuron struct {
	Weights []float64
	Bias    float64
}

// Network is a fully connected feedforward network. Forward passes never
// write to it; only Apply (and so Backpropagate and Step) mutates it.
type Network struct {
	layers []Layer
}

// NewNetwork validates c and builds a network whose weights and biases are
// drawn from Uniform(-1/sqrt(fan_in), 1/sqrt(fan_in)).
func NewNetwork(c Config) (*Network, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	src := rand.NewSource(c.Seed)

	net := &Network{layers: make([]Layer, len(c.Sizes))}
	net.layers[0] = Layer{Activator: Identity{}, size: c.Sizes[0]}
	for l := 1; l < len(c.Sizes); l++ {
		rows, cols := c.Sizes[l], c.Sizes[l-1]
		act := ActivatorLookup[c.Activations[l-1]]
		net.layers[l] = Layer{
			Activator: act,
			Weights:   mat.NewDense(rows, cols, randomArray(rows*cols, float64(cols), src)),
			Biases:    mat.NewVecDense(rows, randomArray(rows, float64(cols), src)),
			size:      rows,
		}
	}
	return net, nil
}

func (net *Network) lastIndex() int {
	return len(net.layers) - 1
}

func (net *Network) NumLayers() int {
	return len(net.layers)
}

// Layer returns layer l. The matrices are shared with the network.
func (net *Network) Layer(l int) Layer {
	return net.layers[l]
}

func (net *Network) Sizes() []int {
	sizes := make([]int, len(net.layers))
	for i, layer := range net.layers {
		sizes[i] = layer.size
	}
	return sizes
}

// Activations returns the activation names of layers 1..end.
func (net *Network) Activations() []string {
	names := make([]string, 0, len(net.layers)-1)
	for _, layer := range net.layers[1:] {
		names = append(names, layer.Activator.String())
	}
	return names
}

// Config returns the topology of the network. Seed is left zero.
func (net *Network) Config() Config {
	return Config{Sizes: net.Sizes(), Activations: net.Activations()}
}

func (net *Network) checkNeuron(l, i int) error {
	if l < 1 || l >= len(net.layers) {
		return shapeErrorf("layer %d has no parameters (network has %d layers)", l, len(net.layers))
	}
	if i < 0 || i >= net.layers[l].size {
		return shapeErrorf("layer %d has no neuron %d", l, i)
	}
	return nil
}

func (net *Network) Neuron(l, i int) (Neuron, error) {
	if err := net.checkNeuron(l, i); err != nil {
		return Neuron{}, err
	}
	layer := net.layers[l]
	return Neuron{
		Weights: append([]float64(nil), layer.Weights.RawRowView(i)...),
		Bias:    layer.Biases.AtVec(i),
	}, nil
}

// SetNeuron overwrites the parameters of neuron i in layer l.
func (net *Network) SetNeuron(l, i int, weights []float64, bias float64) error {
	if err := net.checkNeuron(l, i); err != nil {
		return err
	}
	layer := net.layers[l]
	if prev := net.layers[l-1].size; len(weights) != prev {
		return shapeErrorf("neuron %d of layer %d needs %d weights, got %d", i, l, prev, len(weights))
	}
	layer.Weights.SetRow(i, weights)
	layer.Biases.SetVec(i, bias)
	return nil
}

// Clone returns a deep copy that shares nothing with net.
func (net *Network) Clone() *Network {
	c := &Network{layers: make([]Layer, len(net.layers))}
	for l, layer := range net.layers {
		c.layers[l] = Layer{Activator: layer.Activator, size: layer.size}
		if layer.Weights != nil {
			c.layers[l].Weights = mat.DenseCopyOf(layer.Weights)
			c.layers[l].Biases = mat.VecDenseCopyOf(layer.Biases)
		}
	}
	return c
}

// Trace is the scratch state of one forward pass: the raw (pre-activation)
// and activated values of every layer. It means nothing once the network
// has been updated by another sample.
type Trace struct {
	Raw       []*mat.VecDense
	Activated []*mat.VecDense
}

// Output returns a copy of the output layer's activations.
func (t *Trace) Output() []float64 {
	return append([]float64(nil), rawData(t.Activated[len(t.Activated)-1])...)
}

// Logits returns a copy of the output layer's raw values.
func (t *Trace) Logits() []float64 {
	return append([]float64(nil), rawData(t.Raw[len(t.Raw)-1])...)
}

// Forward propagates inputs through the network. Hidden layers are
// activated elementwise; the output activator sees all logits at once.
func (net *Network) Forward(inputs []float64) (*Trace, error) {
	if len(inputs) != net.layers[0].size {
		return nil, shapeErrorf("input has %d values, input layer has %d neurons",
			len(inputs), net.layers[0].size)
	}
	n := len(net.layers)
	tr := &Trace{
		Raw:       make([]*mat.VecDense, n),
		Activated: make([]*mat.VecDense, n),
	}

	tr.Raw[0] = mat.NewVecDense(len(inputs), append([]float64(nil), inputs...))
	tr.Activated[0] = mat.NewVecDense(len(inputs), nil)
	net.layers[0].Activator.Activate(rawData(tr.Activated[0]), rawData(tr.Raw[0]))

	for l := 1; l < n; l++ {
		layer := net.layers[l]
		raw := mat.NewVecDense(layer.size, nil)
		raw.MulVec(layer.Weights, tr.Activated[l-1])
		raw.AddVec(raw, layer.Biases)

		act := mat.NewVecDense(layer.size, nil)
		layer.Activator.Activate(rawData(act), rawData(raw))

		tr.Raw[l] = raw
		tr.Activated[l] = act
	}
	return tr, nil
}

func (net *Network) checkTrace(tr *Trace) error {
	if tr == nil || len(tr.Raw) != len(net.layers) || len(tr.Activated) != len(net.layers) {
		return shapeErrorf("trace does not cover the %d layers of the network", len(net.layers))
	}
	for l, layer := range net.layers {
		if tr.Raw[l].Len() != layer.size || tr.Activated[l].Len() != layer.size {
			return shapeErrorf("trace layer %d has %d values, network layer has %d",
				l, tr.Activated[l].Len(), layer.size)
		}
	}
	return nil
}

// Deltas computes the error signal of every neuron in layers 1..end from a
// forward trace and a target vector. All deltas are computed from the
// current weights; nothing is updated.
func (net *Network) Deltas(tr *Trace, target []float64) ([]*mat.VecDense, error) {
	if err := net.checkTrace(tr); err != nil {
		return nil, err
	}
	last := net.lastIndex()
	if len(target) != net.layers[last].size {
		return nil, shapeErrorf("target has %d values, output layer has %d neurons",
			len(target), net.layers[last].size)
	}

	deltas := make([]*mat.VecDense, len(net.layers))
	deltas[last] = outputDeltas(tr.Activated[last], target)

	for l := last - 1; l >= 1; l-- {
		layer := net.layers[l]
		d := mat.NewVecDense(layer.size, nil)
		d.MulVec(net.layers[l+1].Weights.T(), deltas[l+1])

		raw, act, data := rawData(tr.Raw[l]), rawData(tr.Activated[l]), rawData(d)
		for j := range data {
			data[j] *= layer.Activator.Derivative(raw[j], act[j])
		}
		deltas[l] = d
	}
	return deltas, nil
}

// Apply takes one gradient descent step using deltas from Deltas and the
// activations of the same trace.
func (net *Network) Apply(tr *Trace, deltas []*mat.VecDense, learningRate float64) error {
	if err := net.checkTrace(tr); err != nil {
		return err
	}
	if len(deltas) != len(net.layers) {
		return shapeErrorf("got deltas for %d layers, network has %d", len(deltas), len(net.layers))
	}
	for l := 1; l < len(net.layers); l++ {
		layer := net.layers[l]
		if deltas[l] == nil || deltas[l].Len() != layer.size {
			return shapeErrorf("deltas for layer %d do not match its %d neurons", l, layer.size)
		}
	}

	for l := 1; l < len(net.layers); l++ {
		layer := net.layers[l]
		layer.Biases.AddScaledVec(layer.Biases, -learningRate, deltas[l])
		layer.Weights.RankOne(layer.Weights, -learningRate, deltas[l], tr.Activated[l-1])
	}
	return nil
}

// Backpropagate computes every delta and then updates every weight and bias
// by one step of size learningRate.
func (net *Network) Backpropagate(tr *Trace, target []float64, learningRate float64) error {
	deltas, err := net.Deltas(tr, target)
	if err != nil {
		return err
	}
	return net.Apply(tr, deltas, learningRate)
}

// Step trains on a single sample and returns its loss before the update.
func (net *Network) Step(s Sample, learningRate float64) (float64, error) {
	tr, err := net.Forward(s.Inputs)
	if err != nil {
		return 0, err
	}
	if err := net.Backpropagate(tr, s.Target, learningRate); err != nil {
		return 0, err
	}
	return CrossEntropy(tr.Output(), s.Target)
}

// Predict returns the index of the most activated output neuron.
func (net *Network) Predict(inputs []float64) (int, error) {
	tr, err := net.Forward(inputs)
	if err != nil {
		return 0, err
	}
	return argmax(rawData(tr.Activated[net.lastIndex()]))
}

// Evaluate returns the percentage of samples whose predicted class matches
// the hot index of their target. An empty set scores 0.
func (net *Network) Evaluate(samples Samples) (float64, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	outputs := net.layers[net.lastIndex()].size

	var correct int
	for i, s := range samples {
		if len(s.Target) != outputs {
			return 0, shapeErrorf("sample %d has %d targets, output layer has %d neurons",
				i, len(s.Target), outputs)
		}
		predicted, err := net.Predict(s.Inputs)
		if err != nil {
			return 0, errors.Wrapf(err, "evaluating sample %d", i)
		}
		if predicted == s.Label() {
			correct++
		}
	}
	return 100 * float64(correct) / float64(len(samples)), nil
}
