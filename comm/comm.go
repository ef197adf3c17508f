// Package comm provides the SPMD communication substrate for pencils: a
// world of ranks exchanging tagged point-to-point messages, collective
// operations built on top of them, and Cartesian process grids with per-axis
// sub-communicators.
//
// The in-process World runs every rank as a goroutine of the same process,
// connected by per-pair FIFO channels. The API keeps the shape of an MPI
// communicator so that an out-of-process transport can replace the world
// without touching the callers.
//
// All collective operations must be entered by every rank of the
// communicator in the same order. A Comm is not safe for concurrent use by
// multiple goroutines of the same rank, except for requests returned by
// Isend/Irecv which may be waited on while other operations proceed.
package comm

import (
	"github.com/pkg/errors"
)

var (
	// ErrTransport indicates a failure in the message transport, e.g. an
	// aborted world or a protocol violation. The message names the peer
	// rank when one is involved.
	ErrTransport = errors.New("comm: transport failure")

	// ErrGridSizeMismatch indicates the product of the grid dimensions
	// doesn't match the communicator size.
	ErrGridSizeMismatch = errors.New("comm: process grid size doesn't match communicator size")
)

// Comm is a group of ranks that can exchange messages. It either spans the
// whole world or a subset of it created with Split.
type Comm struct {
	world *World

	// rank is this process's rank within the group.
	rank int

	// group maps group ranks to world ranks.
	group []int
}

// Rank returns this process's rank within the communicator.
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of ranks in the communicator.
func (c *Comm) Size() int { return len(c.group) }

// WorldRank returns the world rank behind the given group rank.
func (c *Comm) WorldRank(rank int) int { return c.group[rank] }

// Send delivers data to rank dst under the given tag. The data is copied
// before Send returns, so the caller may reuse the slice immediately.
//
// Messages between a fixed ordered pair of ranks are delivered in FIFO
// order; the receiver must post matching tags in the same order.
func (c *Comm) Send(dst, tag int, data []byte) error {
	if dst < 0 || dst >= len(c.group) {
		return errors.Wrapf(ErrTransport, "send to invalid rank %d (size %d)", dst, len(c.group))
	}
	return c.world.send(c.group[c.rank], c.group[dst], tag, data)
}

// Recv receives the next message from rank src into buf and returns the
// number of bytes received. The message must carry the given tag and fit in
// buf; either violation fails with ErrTransport.
func (c *Comm) Recv(src, tag int, buf []byte) (int, error) {
	if src < 0 || src >= len(c.group) {
		return 0, errors.Wrapf(ErrTransport, "receive from invalid rank %d (size %d)", src, len(c.group))
	}
	data, err := c.world.recv(c.group[src], c.group[c.rank], tag)
	if err != nil {
		return 0, err
	}
	if len(data) > len(buf) {
		return 0, errors.Wrapf(ErrTransport,
			"message from peer %d overflows receive buffer: %d > %d bytes", src, len(data), len(buf))
	}
	copy(buf, data)
	return len(data), nil
}

// recvAlloc receives the next message from src without a caller buffer.
func (c *Comm) recvAlloc(src, tag int) ([]byte, error) {
	return c.world.recv(c.group[src], c.group[c.rank], tag)
}

// Request is a handle on an in-flight Isend or Irecv.
type Request struct {
	done chan struct{}
	n    int
	err  error
}

// Wait blocks until the operation completes and returns the number of bytes
// transferred (always 0 for sends).
func (r *Request) Wait() (int, error) {
	<-r.done
	return r.n, r.err
}

func completedRequest(n int, err error) *Request {
	r := &Request{done: make(chan struct{}), n: n, err: err}
	close(r.done)
	return r
}

// Isend starts a non-blocking send. The data is copied up front, so the
// caller may reuse the slice immediately.
func (c *Comm) Isend(dst, tag int, data []byte) *Request {
	if dst < 0 || dst >= len(c.group) {
		return completedRequest(0, errors.Wrapf(ErrTransport, "send to invalid rank %d (size %d)", dst, len(c.group)))
	}
	owned := append([]byte(nil), data...)
	r := &Request{done: make(chan struct{})}
	go func() {
		r.err = c.world.sendOwned(c.group[c.rank], c.group[dst], tag, owned)
		close(r.done)
	}()
	return r
}

// Irecv starts a non-blocking receive from src into buf. At most one
// receive per source rank may be outstanding at a time; otherwise the
// FIFO matching order is unspecified.
func (c *Comm) Irecv(src, tag int, buf []byte) *Request {
	r := &Request{done: make(chan struct{})}
	go func() {
		r.n, r.err = c.Recv(src, tag, buf)
		close(r.done)
	}()
	return r
}

// Sendrecv exchanges messages with a pair of peers: sends sendData to dst
// and receives from src into recvBuf, making progress on both regardless of
// the peers' ordering. Returns the number of bytes received.
func (c *Comm) Sendrecv(dst, sendTag int, sendData []byte, src, recvTag int, recvBuf []byte) (int, error) {
	sendReq := c.Isend(dst, sendTag, sendData)
	n, err := c.Recv(src, recvTag, recvBuf)
	if _, sendErr := sendReq.Wait(); sendErr != nil && err == nil {
		err = sendErr
	}
	return n, err
}
