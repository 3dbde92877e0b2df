package train

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestSessionPublishesSnapshots(t *testing.T) {
	tr := newTrainer(t, 3)
	s := Start(context.Background(), tr)

	var updates []Update
	for u := range s.Updates() {
		updates = append(updates, u)
	}
	state, net, err := s.Wait()
	require.NoError(t, err)
	assert.Equal(t, Complete, state)
	require.Len(t, updates, 3)

	for i, u := range updates {
		assert.Equal(t, i+1, u.Epoch)
		require.NotNil(t, u.Snapshot)
		assert.NotSame(t, net, u.Snapshot)
	}
	assertSameParameters(t, net, updates[2].Snapshot)

	require.NoError(t, updates[2].Snapshot.SetNeuron(1, 0, []float64{9, 9}, 9))
	n, err := net.Neuron(1, 0)
	require.NoError(t, err)
	assert.NotEqual(t, 9.0, n.Bias)
}

func TestSessionStopBeforeFirstEpoch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := newTrainer(t, 10)
	before := tr.Net.Clone()
	s := Start(ctx, tr)

	<-s.Done()
	state, net, err := s.Wait()
	require.NoError(t, err)
	assert.Equal(t, StoppedEarly, state)
	assertSameParameters(t, before, net)

	_, open := <-s.Updates()
	assert.False(t, open)
}

func TestSessionStop(t *testing.T) {
	const epochs = 5000
	tr := newTrainer(t, epochs)
	tr.Train = clusters(rand.New(rand.NewSource(8)), 400)
	s := Start(context.Background(), tr)

	first, ok := <-s.Updates()
	require.True(t, ok)
	assert.Equal(t, 1, first.Epoch)
	s.Stop()

	state, _, err := s.Wait()
	require.NoError(t, err)
	assert.Equal(t, StoppedEarly, state)

	published := 1
	for range s.Updates() {
		published++
	}
	assert.Less(t, published, epochs)
}

func TestSessionSlowReader(t *testing.T) {
	const epochs = updateBuffer * 3
	tr := newTrainer(t, epochs)
	s := Start(context.Background(), tr)

	state, net, err := s.Wait()
	require.NoError(t, err)
	assert.Equal(t, Complete, state)

	var updates []Update
	var seen int
	for u := range s.Updates() {
		updates = append(updates, u)
		seen += 1 + u.Dropped
	}
	require.Len(t, updates, updateBuffer)
	assert.Equal(t, epochs, seen)
	assert.Equal(t, epochs-updateBuffer+1, updates[0].Epoch)

	last := updates[len(updates)-1]
	assert.Equal(t, epochs, last.Epoch)
	assertSameParameters(t, net, last.Snapshot)
}
