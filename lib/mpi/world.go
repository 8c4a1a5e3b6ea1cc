package mpi

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAborted is returned by collectives on a World that has been aborted.
var ErrAborted = errors.New("mpi: another worker aborted the run")

// linkBuffer is the number of messages that can be queued between a pair of
// workers. One is enough for correctness since every worker posts at most one
// message to each peer per collective.
const linkBuffer = 4

type opCode int

const (
	opBarrier opCode = iota
	opBcast
	opAlltoallvInt64
	opAlltoallvFloat64
	opAllreduce
)

func (op opCode) String() string {
	return [...]string{"Barrier", "Bcast", "AlltoallvInt64",
		"AlltoallvFloat64", "Allreduce"}[op]
}

type message struct {
	seq uint64
	op  opCode
	i64 []int64
	f64 []float64
}

// World is a set of in-process workers connected by channels.
type World struct {
	size  int
	links [][]chan message // links[from][to]

	done    chan struct{}
	abort   sync.Once
	errLock sync.Mutex
	err     error
}

// NewWorld creates a World with size workers.
func NewWorld(size int) *World {
	if size < 1 {
		panic(fmt.Sprintf("Internal error: World of size %d.", size))
	}

	w := &World{size: size, done: make(chan struct{})}
	w.links = make([][]chan message, size)
	for from := range w.links {
		w.links[from] = make([]chan message, size)
		for to := range w.links[from] {
			if from != to {
				w.links[from][to] = make(chan message, linkBuffer)
			}
		}
	}
	return w
}

// Size returns the number of workers in the World.
func (w *World) Size() int { return w.size }

// Comm returns the communicator used by the given rank. Each communicator
// must only be used by one goroutine.
func (w *World) Comm(rank int) Comm {
	if rank < 0 || rank >= w.size {
		panic(fmt.Sprintf("Internal error: rank %d in a World of size %d.",
			rank, w.size))
	}
	return &localComm{world: w, rank: rank}
}

// Abort stops the World. Only the first error is kept.
func (w *World) Abort(err error) {
	w.abort.Do(func() {
		w.errLock.Lock()
		w.err = err
		w.errLock.Unlock()
		close(w.done)
	})
}

// Err returns the error the World was aborted with, or nil.
func (w *World) Err() error {
	w.errLock.Lock()
	defer w.errLock.Unlock()
	return w.err
}

// Run calls f once for every rank, each in its own goroutine, and waits for
// all of them to return. If any call returns an error or panics, the World
// is aborted so that the remaining workers stop at their next collective,
// and the first error is returned.
func (w *World) Run(f func(comm Comm) error) error {
	wg := &sync.WaitGroup{}
	wg.Add(w.size)

	for rank := 0; rank < w.size; rank++ {
		go func(rank int) {
			defer wg.Done()
			RunWorker(w.Comm(rank), f)
		}(rank)
	}

	wg.Wait()
	return w.Err()
}

// PanicError is the error RunWorker returns when a worker panics.
type PanicError struct {
	Rank  int
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker %d panicked: %v", e.Rank, e.Value)
}

type localComm struct {
	world *World
	rank  int
	seq   uint64
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.world.size }

func (c *localComm) Abort(err error) { c.world.Abort(err) }

func (c *localComm) send(to int, msg message) error {
	select {
	case <-c.world.done:
		return ErrAborted
	default:
	}

	select {
	case c.world.links[c.rank][to] <- msg:
		return nil
	case <-c.world.done:
		return ErrAborted
	}
}

func (c *localComm) recv(from int, op opCode) (message, error) {
	select {
	case msg := <-c.world.links[from][c.rank]:
		if msg.seq != c.seq || msg.op != op {
			return msg, fmt.Errorf("Worker %d is in collective %d (%s), "+
				"but worker %d sent a message for collective %d (%s).",
				c.rank, c.seq, op, from, msg.seq, msg.op)
		}
		return msg, nil
	case <-c.world.done:
		return message{}, ErrAborted
	}
}

// exchange sends out[r] to every other rank r and returns the messages
// received from every other rank. The caller's own entry is out[rank].
func (c *localComm) exchange(op opCode, out []message) ([]message, error) {
	defer func() { c.seq++ }()

	n := c.world.size
	for i := 1; i < n; i++ {
		to := (c.rank + i) % n
		out[to].seq, out[to].op = c.seq, op
		if err := c.send(to, out[to]); err != nil {
			return nil, err
		}
	}

	in := make([]message, n)
	in[c.rank] = out[c.rank]
	for from := 0; from < n; from++ {
		if from == c.rank {
			continue
		}
		msg, err := c.recv(from, op)
		if err != nil {
			return nil, err
		}
		in[from] = msg
	}
	return in, nil
}

func (c *localComm) Barrier() error {
	_, err := c.exchange(opBarrier, make([]message, c.world.size))
	return err
}

func (c *localComm) BcastInt64(buf []int64, root int) error {
	if root < 0 || root >= c.world.size {
		return fmt.Errorf("Bcast root %d is not a valid rank.", root)
	}
	defer func() { c.seq++ }()

	if c.rank == root {
		for to := 0; to < c.world.size; to++ {
			if to == root {
				continue
			}
			msg := message{seq: c.seq, op: opBcast, i64: copyInt64s(buf)}
			if err := c.send(to, msg); err != nil {
				return err
			}
		}
		return nil
	}

	msg, err := c.recv(root, opBcast)
	if err != nil {
		return err
	}
	if len(msg.i64) != len(buf) {
		return fmt.Errorf("Worker %d expected a broadcast of %d values, "+
			"but worker %d sent %d.", c.rank, len(buf), root, len(msg.i64))
	}
	copy(buf, msg.i64)
	return nil
}

func (c *localComm) AlltoallvInt64(
	send []int64, sendCounts, sendDisp []int,
	recv []int64, recvCounts, recvDisp []int,
) error {
	err := checkAlltoallv(c.world.size, len(send), sendCounts, sendDisp,
		len(recv), recvCounts, recvDisp)
	if err != nil {
		return err
	}

	out := make([]message, c.world.size)
	for r := range out {
		out[r].i64 = copyInt64s(send[sendDisp[r] : sendDisp[r]+sendCounts[r]])
	}

	in, err := c.exchange(opAlltoallvInt64, out)
	if err != nil {
		return err
	}

	for r := range in {
		if len(in[r].i64) != recvCounts[r] {
			return fmt.Errorf("Worker %d expected %d values from worker %d, "+
				"but received %d.", c.rank, recvCounts[r], r, len(in[r].i64))
		}
		copy(recv[recvDisp[r]:], in[r].i64)
	}
	return nil
}

func (c *localComm) AlltoallvFloat64(
	send []float64, sendCounts, sendDisp []int,
	recv []float64, recvCounts, recvDisp []int,
) error {
	err := checkAlltoallv(c.world.size, len(send), sendCounts, sendDisp,
		len(recv), recvCounts, recvDisp)
	if err != nil {
		return err
	}

	out := make([]message, c.world.size)
	for r := range out {
		out[r].f64 = copyFloat64s(
			send[sendDisp[r] : sendDisp[r]+sendCounts[r]],
		)
	}

	in, err := c.exchange(opAlltoallvFloat64, out)
	if err != nil {
		return err
	}

	for r := range in {
		if len(in[r].f64) != recvCounts[r] {
			return fmt.Errorf("Worker %d expected %d values from worker %d, "+
				"but received %d.", c.rank, recvCounts[r], r, len(in[r].f64))
		}
		copy(recv[recvDisp[r]:], in[r].f64)
	}
	return nil
}

func (c *localComm) AllreduceSumFloat64(send, recv []float64) error {
	if len(send) != len(recv) {
		return fmt.Errorf("Allreduce send buffer has length %d, but the "+
			"receive buffer has length %d.", len(send), len(recv))
	}

	out := make([]message, c.world.size)
	for r := range out {
		out[r].f64 = copyFloat64s(send)
	}

	in, err := c.exchange(opAllreduce, out)
	if err != nil {
		return err
	}

	// Sum in rank order so every worker gets bit-identical results.
	for i := range recv {
		recv[i] = 0
	}
	for r := range in {
		if len(in[r].f64) != len(recv) {
			return fmt.Errorf("Worker %d reduced %d values, but worker %d "+
				"reduced %d.", c.rank, len(recv), r, len(in[r].f64))
		}
		for i := range recv {
			recv[i] += in[r].f64[i]
		}
	}
	return nil
}

func copyInt64s(x []int64) []int64 {
	out := make([]int64, len(x))
	copy(out, x)
	return out
}

func copyFloat64s(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	return out
}
