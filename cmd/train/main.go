// mlp-train: per-sample SGD trainer for fully connected classifiers
//
// Usage:
//
//	mlp-train -train=data/mnist_train.csv -test=data/mnist_test.csv -epochs=10 -lr=0.01 -output=model.json
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"mlp_lib/m"
	"mlp_lib/train"
	"mlp_lib/utils"
)

var (
	configFile   = flag.String("config", "", "JSON config file (flags override it)")
	arch         = flag.String("arch", "", "Layer sizes, e.g. \"784 128 10\"")
	activations  = flag.String("act", "", "Activations for layers after the input, e.g. \"sigmoid softmax\"")
	epochs       = flag.Int("epochs", 0, "Number of training epochs")
	learningRate = flag.Float64("lr", 0, "Learning rate")
	seed         = flag.Uint64("seed", 0, "Random seed")
	format       = flag.String("format", "", "Dataset format: csv or idx")
	trainPath    = flag.String("train", "", "Training data (CSV, or IDX images)")
	trainLabels  = flag.String("train-labels", "", "Training IDX labels")
	testPath     = flag.String("test", "", "Test data (CSV, or IDX images)")
	testLabels   = flag.String("test-labels", "", "Test IDX labels")
	samples      = flag.Int("samples", 1000, "Number of synthetic samples when no dataset is given")
	outputFile   = flag.String("output", "", "Output model file (JSON)")
	analysisFile = flag.String("analysis", "", "Append per-epoch metrics to this CSV file")
	verbose      = flag.Bool("verbose", true, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Architecture:  %v\n", cfg.Architecture)
	fmt.Printf("  Activations:   %s\n", strings.Join(cfg.Activations, " "))
	fmt.Printf("  Epochs:        %d\n", cfg.Epochs)
	fmt.Printf("  Learning Rate: %.4f\n", cfg.LearningRate)
	fmt.Printf("  Seed:          %d\n", cfg.Seed)
	fmt.Println()

	stats := &utils.TimingStats{}
	rng := rand.New(rand.NewSource(cfg.Seed))

	start := time.Now()
	trainSet, testSet, err := loadData(cfg, rng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		os.Exit(1)
	}
	stats.DataLoadingTime = time.Since(start)
	fmt.Printf("Loaded %d training and %d test samples\n", len(trainSet), len(testSet))

	start = time.Now()
	net, err := m.NewNetwork(cfg.Network())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building network: %v\n", err)
		os.Exit(1)
	}
	stats.ModelInitTime = time.Since(start)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	trainer := &train.Trainer{
		Net:          net,
		Train:        trainSet,
		Test:         testSet,
		Epochs:       cfg.Epochs,
		LearningRate: cfg.LearningRate,
		Rand:         rng,
		Stats:        stats,
	}

	fmt.Println("\nStarting training... (Ctrl-C stops after the current epoch)")
	session := train.Start(ctx, trainer)
	var done int
	for u := range session.Updates() {
		done += 1 + u.Dropped
		if u.Dropped > 0 {
			fmt.Printf("(%d epoch reports skipped)\n", u.Dropped)
		}
		fmt.Printf("Epoch %d/%d | Loss: %.4f | Train Acc: %.2f%% | Test Acc: %.2f%% | Time: %.2fs\n",
			u.Epoch, u.Epochs, u.Loss, u.TrainAccuracy, u.TestAccuracy, u.Duration.Seconds())

		if cfg.AnalysisPath != "" {
			err := utils.AppendAnalysis(cfg.AnalysisPath, utils.AnalysisRecord{
				Name:          cfg.Name,
				Architecture:  cfg.Architecture,
				Activations:   cfg.Activations,
				Epoch:         u.Epoch,
				Epochs:        u.Epochs,
				LearningRate:  cfg.LearningRate,
				Loss:          u.Loss,
				TrainAccuracy: u.TrainAccuracy,
				TestAccuracy:  u.TestAccuracy,
				Elapsed:       u.Duration,
				EndTime:       time.Now(),
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error writing analysis: %v\n", err)
			}
		}
	}

	state, net, err := session.Wait()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nTraining %s! Total time: %.2fs\n", state, stats.TotalTime.Seconds())
	utils.PrintTimingStats(stats, done*len(trainSet))

	if cfg.ModelPath != "" {
		fmt.Printf("\nSaving model to %s...\n", cfg.ModelPath)
		if err := utils.SaveNetwork(cfg.ModelPath, net); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Done!")
	}
}

// loadConfig layers the config file and explicitly set flags over the
// defaults, then validates the result.
func loadConfig() (*utils.Config, error) {
	cfg := utils.DefaultConfig()
	if *configFile != "" {
		loaded, err := utils.LoadConfig(*configFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	var err error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "arch":
			var a []int
			if a, err = utils.ParseArchitecture(*arch); err == nil {
				cfg.Architecture = a
			}
		case "act":
			cfg.Activations = utils.ParseActivations(*activations)
		case "epochs":
			cfg.Epochs = *epochs
		case "lr":
			cfg.LearningRate = *learningRate
		case "seed":
			cfg.Seed = *seed
		case "format":
			cfg.Format = *format
		case "train":
			cfg.TrainPath = *trainPath
		case "train-labels":
			cfg.TrainLabels = *trainLabels
		case "test":
			cfg.TestPath = *testPath
		case "test-labels":
			cfg.TestLabels = *testLabels
		case "output":
			cfg.ModelPath = *outputFile
		case "analysis":
			cfg.AnalysisPath = *analysisFile
		}
	})
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadData(cfg *utils.Config, rng *rand.Rand) (m.Samples, m.Samples, error) {
	inputs := cfg.Architecture[0]
	outputs := cfg.Architecture[len(cfg.Architecture)-1]

	if cfg.TrainPath == "" {
		fmt.Printf("No dataset given, generating %d synthetic samples...\n", *samples)
		all := generateData(rng, inputs, outputs, *samples)
		split := len(all) * 4 / 5
		return all[:split], all[split:], nil
	}

	load := func(path, labels string) (m.Samples, error) {
		if path == "" {
			return nil, nil
		}
		switch cfg.Format {
		case "idx":
			return m.LoadIDX(path, labels, outputs)
		default:
			return m.GetLinesMNIST(path, inputs, outputs)
		}
	}
	trainSet, err := load(cfg.TrainPath, cfg.TrainLabels)
	if err != nil {
		return nil, nil, errors.Wrap(err, "training set")
	}
	testSet, err := load(cfg.TestPath, cfg.TestLabels)
	if err != nil {
		return nil, nil, errors.Wrap(err, "test set")
	}
	return trainSet, testSet, nil
}

// generateData draws one random prototype per class and scatters samples
// around it, so the classes are separable.
func generateData(rng *rand.Rand, inputDim, outputDim, n int) m.Samples {
	prototypes := make([][]float64, outputDim)
	for c := range prototypes {
		prototypes[c] = make([]float64, inputDim)
		for j := range prototypes[c] {
			prototypes[c][j] = rng.Float64()
		}
	}

	samples := make(m.Samples, n)
	for i := range samples {
		label := rng.Intn(outputDim)
		inputs := make([]float64, inputDim)
		for j := range inputs {
			inputs[j] = prototypes[label][j] + rng.NormFloat64()*0.1
		}
		target, _ := m.OneHot(label, outputDim)
		samples[i] = m.Sample{Inputs: inputs, Target: target}
	}
	return samples
}
