package comm

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// pairDepth is the number of messages that may be in flight between an
// ordered pair of ranks before the sender blocks. The protocols built here
// keep at most a handful outstanding per pair; the slack only decouples
// ranks that run ahead by a few operations.
const pairDepth = 16

type message struct {
	tag  int
	data []byte
}

// World is an in-process SPMD job: size ranks connected pairwise by FIFO
// message channels. Create one with NewWorld, or let Run manage the whole
// lifecycle.
type World struct {
	size int

	// mail[src*size+dst] carries messages from src to dst, in order.
	mail []chan message

	// done is closed by Abort; all pending and future operations then fail.
	done      chan struct{}
	abortOnce sync.Once
	abortErr  error
}

// NewWorld creates an in-process world with the given number of ranks.
func NewWorld(size int) (*World, error) {
	if size < 1 {
		return nil, errors.Errorf("comm: world size must be >= 1, got %d", size)
	}
	w := &World{
		size: size,
		mail: make([]chan message, size*size),
		done: make(chan struct{}),
	}
	for i := range w.mail {
		w.mail[i] = make(chan message, pairDepth)
	}
	klog.V(2).Infof("comm: new world with %d ranks", size)
	return w, nil
}

// Size returns the number of ranks in the world.
func (w *World) Size() int { return w.size }

// Comm returns the world communicator for the given rank. Each rank's Comm
// must be used only by that rank's goroutine.
func (w *World) Comm(rank int) *Comm {
	group := make([]int, w.size)
	for i := range group {
		group[i] = i
	}
	return &Comm{world: w, rank: rank, group: group}
}

// Abort poisons the world: every blocked and future operation on any rank
// fails with ErrTransport wrapping cause. There is no finer-grained
// cancellation; a failed rank takes the job down.
func (w *World) Abort(cause error) {
	w.abortOnce.Do(func() {
		w.abortErr = cause
		close(w.done)
		klog.V(2).Infof("comm: world aborted: %v", cause)
	})
}

func (w *World) aborted() error {
	return errors.Wrapf(ErrTransport, "world aborted: %v", w.abortErr)
}

func (w *World) send(src, dst, tag int, data []byte) error {
	return w.sendOwned(src, dst, tag, append([]byte(nil), data...))
}

// sendOwned delivers data without copying; the caller must not touch it
// afterwards.
func (w *World) sendOwned(src, dst, tag int, data []byte) error {
	select {
	case <-w.done:
		return w.aborted()
	default:
	}
	select {
	case <-w.done:
		return w.aborted()
	case w.mail[src*w.size+dst] <- message{tag: tag, data: data}:
		return nil
	}
}

func (w *World) recv(src, dst, tag int) ([]byte, error) {
	select {
	case <-w.done:
		return nil, w.aborted()
	default:
	}
	select {
	case <-w.done:
		return nil, w.aborted()
	case msg := <-w.mail[src*w.size+dst]:
		if msg.tag != tag {
			return nil, errors.Wrapf(ErrTransport,
				"peer %d: expected message tag %d, got %d", src, tag, msg.tag)
		}
		return msg.data, nil
	}
}

// Run executes fn once per rank, each on its own goroutine, over a fresh
// world of the given size. The first error aborts the world, unblocking the
// other ranks, and is returned.
func Run(size int, fn func(c *Comm) error) error {
	w, err := NewWorld(size)
	if err != nil {
		return err
	}
	var g errgroup.Group
	for rank := 0; rank < size; rank++ {
		c := w.Comm(rank)
		g.Go(func() error {
			if err := fn(c); err != nil {
				w.Abort(errors.Wrapf(err, "rank %d", c.Rank()))
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
