package comm

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSendRecv(t *testing.T) {
	err := Run(2, func(c *Comm) error {
		switch c.Rank() {
		case 0:
			if err := c.Send(1, 7, []byte("hello")); err != nil {
				return err
			}
			// FIFO between a fixed pair: second message arrives second.
			return c.Send(1, 8, []byte("world"))
		case 1:
			buf := make([]byte, 16)
			n, err := c.Recv(0, 7, buf)
			if err != nil {
				return err
			}
			if string(buf[:n]) != "hello" {
				return errors.Errorf("got %q, want %q", buf[:n], "hello")
			}
			n, err = c.Recv(0, 8, buf)
			if err != nil {
				return err
			}
			if string(buf[:n]) != "world" {
				return errors.Errorf("got %q, want %q", buf[:n], "world")
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestTagMismatch(t *testing.T) {
	err := Run(2, func(c *Comm) error {
		switch c.Rank() {
		case 0:
			return c.Send(1, 1, []byte{42})
		case 1:
			_, err := c.Recv(0, 2, make([]byte, 4))
			if !errors.Is(err, ErrTransport) {
				return errors.Errorf("expected ErrTransport on tag mismatch, got %v", err)
			}
			return err // Expected: aborts the world.
		}
		return nil
	})
	require.ErrorIs(t, err, ErrTransport)
}

func TestSendrecvNoDeadlock(t *testing.T) {
	// Every rank simultaneously exchanges with its neighbor in a ring.
	const size = 4
	err := Run(size, func(c *Comm) error {
		right := (c.Rank() + 1) % size
		left := (c.Rank() - 1 + size) % size
		buf := make([]byte, 1)
		n, err := c.Sendrecv(right, 3, []byte{byte(c.Rank())}, left, 3, buf)
		if err != nil {
			return err
		}
		if n != 1 || buf[0] != byte(left) {
			return errors.Errorf("rank %d: got %d bytes %v from left neighbor %d", c.Rank(), n, buf, left)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestCollectives(t *testing.T) {
	const size = 4
	err := Run(size, func(c *Comm) error {
		// Bcast.
		buf := make([]byte, 3)
		if c.Rank() == 1 {
			copy(buf, []byte{9, 8, 7})
		}
		if err := c.Bcast(1, buf); err != nil {
			return err
		}
		if buf[0] != 9 || buf[1] != 8 || buf[2] != 7 {
			return errors.Errorf("rank %d: bad Bcast result %v", c.Rank(), buf)
		}

		// Allgather.
		parts, err := c.Allgather([]byte{byte(c.Rank()), byte(c.Rank() * 10)})
		if err != nil {
			return err
		}
		for rank, part := range parts {
			if len(part) != 2 || part[0] != byte(rank) || part[1] != byte(rank*10) {
				return errors.Errorf("rank %d: bad Allgather part from %d: %v", c.Rank(), rank, part)
			}
		}

		// Gatherv.
		parts, err = c.Gatherv(0, []byte(fmt.Sprintf("r%d", c.Rank())))
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			for rank, part := range parts {
				if string(part) != fmt.Sprintf("r%d", rank) {
					return errors.Errorf("bad Gatherv part from %d: %q", rank, part)
				}
			}
		} else if parts != nil {
			return errors.Errorf("rank %d: Gatherv returned parts on non-root", c.Rank())
		}

		return c.Barrier()
	})
	require.NoError(t, err)
}

func TestAlltoallv(t *testing.T) {
	// Rank r sends r+1 copies of byte r to every peer.
	const size = 3
	err := Run(size, func(c *Comm) error {
		myCount := c.Rank() + 1
		sendCounts := make([]int, size)
		sendDispls := make([]int, size)
		var sendBuf []byte
		for dst := 0; dst < size; dst++ {
			sendCounts[dst] = myCount
			sendDispls[dst] = len(sendBuf)
			for range myCount {
				sendBuf = append(sendBuf, byte(c.Rank()))
			}
		}
		recvCounts := make([]int, size)
		recvDispls := make([]int, size)
		total := 0
		for src := 0; src < size; src++ {
			recvCounts[src] = src + 1
			recvDispls[src] = total
			total += src + 1
		}
		recvBuf := make([]byte, total)
		if err := c.Alltoallv(sendBuf, sendCounts, sendDispls, recvBuf, recvCounts, recvDispls); err != nil {
			return err
		}
		for src := 0; src < size; src++ {
			for i := 0; i < recvCounts[src]; i++ {
				if recvBuf[recvDispls[src]+i] != byte(src) {
					return errors.Errorf("rank %d: bad Alltoallv byte from %d", c.Rank(), src)
				}
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestSplit(t *testing.T) {
	// 4 ranks split into even/odd groups, ordered by descending rank via key.
	err := Run(4, func(c *Comm) error {
		sub, err := c.Split(c.Rank()%2, -c.Rank())
		if err != nil {
			return err
		}
		if sub.Size() != 2 {
			return errors.Errorf("rank %d: sub size %d, want 2", c.Rank(), sub.Size())
		}
		// Keys are negated ranks, so the higher parent rank comes first.
		wantRank := 0
		if c.Rank() < 2 {
			wantRank = 1
		}
		if sub.Rank() != wantRank {
			return errors.Errorf("rank %d: sub rank %d, want %d", c.Rank(), sub.Rank(), wantRank)
		}
		// The sub-communicator works for messaging.
		peer := 1 - sub.Rank()
		buf := make([]byte, 1)
		if _, err := sub.Sendrecv(peer, 5, []byte{byte(c.Rank())}, peer, 5, buf); err != nil {
			return err
		}
		return nil
	})
	require.NoError(t, err)
}

func TestAbort(t *testing.T) {
	err := Run(2, func(c *Comm) error {
		if c.Rank() == 0 {
			return errors.New("boom")
		}
		// Rank 1 blocks on a receive that will never be matched; the abort
		// from rank 0 must unblock it with ErrTransport.
		_, err := c.Recv(0, 1, make([]byte, 1))
		if !errors.Is(err, ErrTransport) {
			return errors.Errorf("expected ErrTransport after abort, got %v", err)
		}
		return err
	})
	require.Error(t, err)
}

func TestIsendIrecv(t *testing.T) {
	err := Run(2, func(c *Comm) error {
		peer := 1 - c.Rank()
		buf := make([]byte, 4)
		recvReq := c.Irecv(peer, 9, buf)
		sendReq := c.Isend(peer, 9, []byte{1, 2, 3})
		if _, err := sendReq.Wait(); err != nil {
			return err
		}
		n, err := recvReq.Wait()
		if err != nil {
			return err
		}
		if n != 3 || buf[0] != 1 || buf[2] != 3 {
			return errors.Errorf("rank %d: bad Irecv result %v (%d bytes)", c.Rank(), buf, n)
		}
		return nil
	})
	require.NoError(t, err)
}
