// Package train runs per-sample stochastic gradient descent over epochs.
package train

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"mlp_lib/m"
	"mlp_lib/utils"
)

// State is where a training run ended up.
type State int

const (
	Idle State = iota
	Running
	StoppedEarly
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case StoppedEarly:
		return "stopped-early"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Report is the outcome of one epoch. Index is 0-based, Epoch 1-based.
type Report struct {
	Index         int
	Epoch         int
	Epochs        int
	Loss          float64
	TrainAccuracy float64
	TestAccuracy  float64
	Duration      time.Duration
}

// Trainer owns Net for the length of a run.
type Trainer struct {
	Net          *m.Network
	Train        m.Samples
	Test         m.Samples
	Epochs       int
	LearningRate float64
	Rand         *rand.Rand

	// Stats accumulates time spent per operation. Run allocates it if nil.
	Stats *utils.TimingStats
}

func (t *Trainer) validate() error {
	if t.Net == nil {
		return errors.Wrap(m.ErrConfiguration, "no network")
	}
	if t.Epochs < 0 {
		return errors.Wrapf(m.ErrConfiguration, "epochs must not be negative, got %d", t.Epochs)
	}
	if !(t.LearningRate > 0) || math.IsInf(t.LearningRate, 0) {
		return errors.Wrapf(m.ErrConfiguration, "learning rate must be positive and finite, got %v", t.LearningRate)
	}
	return nil
}

func (t *Trainer) track(d *time.Duration, start time.Time) {
	*d += time.Since(start)
}

// Run trains for t.Epochs epochs, calling onEpoch after each one. ctx is only
// checked between epochs: a cancelled run finishes the epoch in progress and
// returns StoppedEarly.
func (t *Trainer) Run(ctx context.Context, onEpoch func(Report)) (State, error) {
	if err := t.validate(); err != nil {
		return Idle, err
	}
	if t.Rand == nil {
		t.Rand = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	if t.Stats == nil {
		t.Stats = &utils.TimingStats{}
	}

	for epoch := 0; epoch < t.Epochs; epoch++ {
		if ctx.Err() != nil {
			return StoppedEarly, nil
		}
		report, err := t.epoch(epoch)
		if err != nil {
			return Failed, errors.Wrapf(err, "epoch %d", epoch+1)
		}
		if onEpoch != nil {
			onEpoch(report)
		}
	}
	return Complete, nil
}

func (t *Trainer) epoch(index int) (Report, error) {
	start := time.Now()
	shuffled := t.Train.Shuffled(t.Rand)

	var totalLoss float64
	for i, s := range shuffled {
		loss, err := t.step(s)
		if err != nil {
			return Report{}, errors.Wrapf(err, "sample %d", i)
		}
		totalLoss += loss
	}

	evalStart := time.Now()
	trainAcc, err := t.Net.Evaluate(t.Train)
	if err != nil {
		return Report{}, errors.Wrap(err, "evaluating training set")
	}
	testAcc, err := t.Net.Evaluate(t.Test)
	if err != nil {
		return Report{}, errors.Wrap(err, "evaluating test set")
	}
	t.track(&t.Stats.EvaluationTime, evalStart)

	var avg float64
	if len(t.Train) > 0 {
		avg = totalLoss / float64(len(t.Train))
	}
	elapsed := time.Since(start)
	t.Stats.TotalTime += elapsed

	return Report{
		Index:         index,
		Epoch:         index + 1,
		Epochs:        t.Epochs,
		Loss:          avg,
		TrainAccuracy: trainAcc,
		TestAccuracy:  testAcc,
		Duration:      elapsed,
	}, nil
}

// step is one forward pass, one backpropagation and the loss of the
// forward pass.
func (t *Trainer) step(s m.Sample) (float64, error) {
	start := time.Now()
	tr, err := t.Net.Forward(s.Inputs)
	if err != nil {
		return 0, err
	}
	t.track(&t.Stats.ForwardPassTime, start)

	start = time.Now()
	if err := t.Net.Backpropagate(tr, s.Target, t.LearningRate); err != nil {
		return 0, err
	}
	t.track(&t.Stats.BackwardPassTime, start)

	start = time.Now()
	loss, err := m.CrossEntropy(tr.Output(), s.Target)
	t.track(&t.Stats.LossComputationTime, start)
	return loss, err
}
