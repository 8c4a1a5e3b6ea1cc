/*package mpi contains the collective operations that reionization workers use
to talk to each other.

By default workers are goroutines in a single process which communicate over
channels (see World). Building with -tags mpi replaces this with an MPI
binding so that workers can be spread over a cluster. Both satisfy Comm.

All collectives are blocking and must be called in the same order by every
worker. Any error returned by a collective is fatal to the run.
*/
package mpi

import (
	"fmt"
	"runtime/debug"
)

// Comm is a communicator connecting a fixed set of workers.
type Comm interface {
	// Rank returns the caller's rank, 0 <= Rank() < Size().
	Rank() int
	// Size returns the number of workers.
	Size() int

	// Barrier blocks until every worker has called Barrier.
	Barrier() error
	// BcastInt64 overwrites buf on every worker with buf from root. All
	// workers must pass buffers of the same length.
	BcastInt64(buf []int64, root int) error
	// AlltoallvInt64 sends send[sendDisp[r]: sendDisp[r]+sendCounts[r]] to
	// rank r and writes the values received from rank r to
	// recv[recvDisp[r]: recvDisp[r]+recvCounts[r]].
	AlltoallvInt64(send []int64, sendCounts, sendDisp []int,
		recv []int64, recvCounts, recvDisp []int) error
	// AlltoallvFloat64 is the float64 version of AlltoallvInt64.
	AlltoallvFloat64(send []float64, sendCounts, sendDisp []int,
		recv []float64, recvCounts, recvDisp []int) error
	// AllreduceSumFloat64 writes the element-wise sum of send over all
	// workers to recv on every worker.
	AllreduceSumFloat64(send, recv []float64) error

	// Abort tells every worker that the run has failed. Pending and future
	// collectives return an error.
	Abort(err error)
}

// RunWorker calls f on comm. If f returns an error or panics, comm is
// aborted before RunWorker returns so that no other worker is left waiting
// in a collective. Panics are returned as a *PanicError.
func RunWorker(comm Comm, f func(comm Comm) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Rank: comm.Rank(), Value: r,
				Stack: debug.Stack()}
		}
		if err != nil {
			comm.Abort(err)
		}
	}()

	if err := f(comm); err != nil {
		return fmt.Errorf("worker %d: %w", comm.Rank(), err)
	}
	return nil
}

// Displacements returns the prefix sums of counts, the offsets of each
// rank's block in a packed Alltoallv buffer.
func Displacements(counts []int) []int {
	disp := make([]int, len(counts))
	for i := 1; i < len(counts); i++ {
		disp[i] = disp[i-1] + counts[i-1]
	}
	return disp
}

// Total returns the sum of counts.
func Total(counts []int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

// ExchangeCounts tells every rank how many values the caller will send it.
// sendCounts[r] is the number of values going to rank r and recvCounts[r] is
// the number of values that will arrive from rank r.
func ExchangeCounts(comm Comm, sendCounts []int) (recvCounts []int, err error) {
	n := comm.Size()
	if len(sendCounts) != n {
		return nil, fmt.Errorf("%d send counts given for %d workers.",
			len(sendCounts), n)
	}

	ones := make([]int, n)
	for i := range ones {
		ones[i] = 1
	}
	disp := Displacements(ones)

	send := make([]int64, n)
	for i := range send {
		send[i] = int64(sendCounts[i])
	}
	recv := make([]int64, n)

	err = comm.AlltoallvInt64(send, ones, disp, recv, ones, disp)
	if err != nil {
		return nil, err
	}

	recvCounts = make([]int, n)
	for i := range recv {
		recvCounts[i] = int(recv[i])
	}
	return recvCounts, nil
}

// checkAlltoallv returns an error if the count and displacement arrays of an
// Alltoallv call are inconsistent with the buffers or the communicator.
func checkAlltoallv(
	size, nSend int, sendCounts, sendDisp []int,
	nRecv int, recvCounts, recvDisp []int,
) error {
	if len(sendCounts) != size || len(sendDisp) != size ||
		len(recvCounts) != size || len(recvDisp) != size {
		return fmt.Errorf("Alltoallv needs %d counts and displacements, "+
			"but got %d, %d, %d, and %d.", size, len(sendCounts),
			len(sendDisp), len(recvCounts), len(recvDisp))
	}

	for r := 0; r < size; r++ {
		if sendCounts[r] < 0 || sendDisp[r] < 0 ||
			sendDisp[r]+sendCounts[r] > nSend {
			return fmt.Errorf("Alltoallv send block %d, [%d, %d), is "+
				"outside a buffer of length %d.", r, sendDisp[r],
				sendDisp[r]+sendCounts[r], nSend)
		}
		if recvCounts[r] < 0 || recvDisp[r] < 0 ||
			recvDisp[r]+recvCounts[r] > nRecv {
			return fmt.Errorf("Alltoallv receive block %d, [%d, %d), is "+
				"outside a buffer of length %d.", r, recvDisp[r],
				recvDisp[r]+recvCounts[r], nRecv)
		}
	}
	return nil
}
