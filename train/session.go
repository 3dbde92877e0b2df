package train

import (
	"context"

	"mlp_lib/m"
)

// updateBuffer is how many unread updates a session holds before it starts
// dropping the oldest.
const updateBuffer = 16

// Update is published after every epoch. Snapshot is a copy of the network
// taken at the end of that epoch, so observers never touch the network being
// trained. Dropped is the number of discarded updates this one stands in
// for; over a run, delivered updates plus their Dropped sum to the epochs
// completed.
type Update struct {
	Report
	Snapshot *m.Network
	Dropped  int
}

// Session is a training run on its own goroutine.
type Session struct {
	updates chan Update
	cancel  context.CancelFunc
	done    chan struct{}

	// written by the training goroutine before done is closed
	state State
	err   error
	net   *m.Network
}

// Start runs t in the background. The trainer and its network belong to the
// session until Wait returns.
func Start(ctx context.Context, t *Trainer) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		updates: make(chan Update, updateBuffer),
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   Running,
	}

	go func() {
		defer close(s.done)
		defer close(s.updates)
		defer cancel()

		state, err := t.Run(ctx, func(r Report) {
			s.publish(Update{Report: r, Snapshot: t.Net.Clone()})
		})
		s.state, s.err, s.net = state, err, t.Net
	}()
	return s
}

// publish never blocks. When the buffer is full the oldest unread update
// is discarded and counted in u.Dropped. Only the training goroutine sends,
// so the final send always has room.
func (s *Session) publish(u Update) {
	select {
	case s.updates <- u:
		return
	default:
	}
	select {
	case old := <-s.updates:
		u.Dropped += old.Dropped + 1
	default:
	}
	s.updates <- u
}

// Updates yields an Update per finished epoch and is closed when the run
// ends. Training never waits on a slow reader; it drops the oldest unread
// updates instead.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Stop asks the run to end at the next epoch boundary.
func (s *Session) Stop() {
	s.cancel()
}

// Done is closed once the run has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the run ends and returns its final state and network.
func (s *Session) Wait() (State, *m.Network, error) {
	<-s.done
	return s.state, s.net, s.err
}
