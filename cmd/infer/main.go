// mlp-infer: evaluate a saved model and classify single samples
package main

import (
	"flag"
	"fmt"
	"os"

	"gonum.org/v1/gonum/floats"

	"mlp_lib/m"
	"mlp_lib/utils"
)

var (
	modelFile  = flag.String("model", "", "Model JSON file written by mlp-train")
	testPath   = flag.String("test", "", "Test data (CSV, or IDX images)")
	testLabels = flag.String("test-labels", "", "Test IDX labels")
	format     = flag.String("format", "csv", "Dataset format: csv or idx")
	index      = flag.Int("index", 0, "Sample to classify")
	verbose    = flag.Bool("verbose", true, "Verbose output")
	topK       = flag.Int("topk", 3, "Top predictions to show")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	if *modelFile == "" || *testPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: mlp-infer -model=model.json -test=data/mnist_test.csv [-index=0]")
		os.Exit(2)
	}

	net, err := utils.LoadNetwork(*modelFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading model: %v\n", err)
		os.Exit(1)
	}
	sizes := net.Sizes()
	fmt.Printf("Loaded model: %v %v\n", sizes, net.Activations())

	inputs, outputs := sizes[0], sizes[len(sizes)-1]
	var samples m.Samples
	switch *format {
	case "idx":
		samples, err = m.LoadIDX(*testPath, *testLabels, outputs)
	case "csv":
		samples, err = m.GetLinesMNIST(*testPath, inputs, outputs)
	default:
		err = fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		os.Exit(1)
	}

	acc, err := net.Evaluate(samples)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error evaluating: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Accuracy on %d samples: %.2f%%\n", len(samples), acc)

	if *index < 0 || *index >= len(samples) {
		fmt.Fprintf(os.Stderr, "Index %d out of range [0, %d)\n", *index, len(samples))
		os.Exit(1)
	}
	s := samples[*index]
	tr, err := net.Forward(s.Inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running inference: %v\n", err)
		os.Exit(1)
	}
	predicted, err := net.Predict(s.Inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error predicting: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nSample %d: label %d, predicted %d\n", *index, s.Label(), predicted)

	probs := tr.Output()
	order := make([]int, len(probs))
	floats.Argsort(probs, order)
	k := min(*topK, len(order))
	for i := 0; i < k; i++ {
		j := len(order) - 1 - i
		fmt.Printf("  %d. class %d: %.4f\n", i+1, order[j], probs[j])
	}
}
