//go:build mpi
// +build mpi

package mpi

// This binding started from github.com/marcusthierfelder/mpi, with changes to
// error reporting and to the set of collectives. His license:
//
// Copyright (c) 2017 Marcus Thierfelder
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// NOTE: If pkg-config can't find your MPI installation, use
// $ mpicc --showme:compile
// $ mpicc --showme:link
// to figure out CFLAGS and LDFLAGS, respectively.

/*
#cgo pkg-config: ompi
#include <mpi.h>
#include <stdlib.h>

MPI_Comm get_MPI_COMM_WORLD() {
    return (MPI_Comm)(MPI_COMM_WORLD);
}

MPI_Datatype get_MPI_Datatype(int i) {
    switch(i) {
    case 0: return (MPI_Datatype)MPI_LONG_LONG;
    case 1: return (MPI_Datatype)MPI_DOUBLE;
    }
    return NULL;
}

MPI_Op get_MPI_SUM() {
    return (MPI_Op)MPI_SUM;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/sirupsen/logrus"
)

var (
	commWorld C.MPI_Comm = C.get_MPI_COMM_WORLD()

	int64Type   C.MPI_Datatype = C.get_MPI_Datatype(0)
	float64Type C.MPI_Datatype = C.get_MPI_Datatype(1)
	sumOp       C.MPI_Op       = C.get_MPI_SUM()
)

// Launch initializes MPI, runs f on this process's rank of MPI_COMM_WORLD,
// and finalizes MPI. workers must equal the number of MPI processes. If f
// fails on any rank, that rank aborts every process instead of finalizing.
func Launch(workers int, f func(comm Comm) error) error {
	if err := processError(C.MPI_Init(nil, nil), "MPI_Init"); err != nil {
		return err
	}

	comm := &mpiComm{}
	if size := comm.Size(); size != workers {
		// Every rank sees the same mismatch, so finalizing is safe.
		C.MPI_Finalize()
		return fmt.Errorf("Workers = %d, but mpirun started %d processes.",
			workers, size)
	}

	if err := RunWorker(comm, f); err != nil {
		return err
	}
	return processError(C.MPI_Finalize(), "MPI_Finalize")
}

func processError(err C.int, context string) error {
	if err == 0 {
		return nil
	}

	buf := make([]C.char, C.MPI_MAX_ERROR_STRING)
	n := C.int(0)
	C.MPI_Error_string(err, &buf[0], &n)
	return fmt.Errorf("%s failed: %s", context, C.GoString(&buf[0]))
}

type mpiComm struct{}

func (c *mpiComm) Rank() int {
	n := C.int(-1)
	if err := processError(C.MPI_Comm_rank(commWorld, &n),
		"MPI_Comm_rank"); err != nil {
		panic(err.Error())
	}
	return int(n)
}

func (c *mpiComm) Size() int {
	n := C.int(-1)
	if err := processError(C.MPI_Comm_size(commWorld, &n),
		"MPI_Comm_size"); err != nil {
		panic(err.Error())
	}
	return int(n)
}

// Abort logs err and kills every process in MPI_COMM_WORLD. It does not
// return.
func (c *mpiComm) Abort(err error) {
	log := logrus.WithField("rank", c.Rank())
	var pErr *PanicError
	if errors.As(err, &pErr) {
		log = log.WithField("stack", string(pErr.Stack))
	}
	log.Errorf("Aborting the run: %s", err.Error())

	C.MPI_Abort(commWorld, 1)
}

func (c *mpiComm) Barrier() error {
	return processError(C.MPI_Barrier(commWorld), "MPI_Barrier")
}

func (c *mpiComm) BcastInt64(buf []int64, root int) error {
	if len(buf) == 0 {
		return nil
	}
	return processError(C.MPI_Bcast(unsafe.Pointer(&buf[0]),
		C.int(len(buf)), int64Type, C.int(root), commWorld), "MPI_Bcast")
}

func (c *mpiComm) AllreduceSumFloat64(send, recv []float64) error {
	if len(send) != len(recv) {
		return fmt.Errorf("Allreduce send buffer has length %d, but the "+
			"receive buffer has length %d.", len(send), len(recv))
	} else if len(send) == 0 {
		return nil
	}
	return processError(C.MPI_Allreduce(unsafe.Pointer(&send[0]),
		unsafe.Pointer(&recv[0]), C.int(len(send)), float64Type, sumOp,
		commWorld), "MPI_Allreduce")
}

// cCounts converts count and displacement arrays to C ints.
func cCounts(counts, disp []int) (cCounts, cDisp []C.int) {
	cCounts, cDisp = make([]C.int, len(counts)), make([]C.int, len(disp))
	for i := range counts {
		cCounts[i], cDisp[i] = C.int(counts[i]), C.int(disp[i])
	}
	return cCounts, cDisp
}

func (c *mpiComm) AlltoallvInt64(
	send []int64, sendCounts, sendDisp []int,
	recv []int64, recvCounts, recvDisp []int,
) error {
	err := checkAlltoallv(c.Size(), len(send), sendCounts, sendDisp,
		len(recv), recvCounts, recvDisp)
	if err != nil {
		return err
	}

	// Converting between Go and C pointers is way easier if we just do this.
	// It doesn't have any impact on correctness since index [0] isn't used.
	if len(send) == 0 {
		send = []int64{0}
	}
	if len(recv) == 0 {
		recv = []int64{0}
	}

	cSendCounts, cSendDisp := cCounts(sendCounts, sendDisp)
	cRecvCounts, cRecvDisp := cCounts(recvCounts, recvDisp)

	return processError(C.MPI_Alltoallv(unsafe.Pointer(&send[0]),
		&cSendCounts[0], &cSendDisp[0], int64Type,
		unsafe.Pointer(&recv[0]), &cRecvCounts[0], &cRecvDisp[0], int64Type,
		commWorld), "MPI_Alltoallv")
}

func (c *mpiComm) AlltoallvFloat64(
	send []float64, sendCounts, sendDisp []int,
	recv []float64, recvCounts, recvDisp []int,
) error {
	err := checkAlltoallv(c.Size(), len(send), sendCounts, sendDisp,
		len(recv), recvCounts, recvDisp)
	if err != nil {
		return err
	}

	if len(send) == 0 {
		send = []float64{0}
	}
	if len(recv) == 0 {
		recv = []float64{0}
	}

	cSendCounts, cSendDisp := cCounts(sendCounts, sendDisp)
	cRecvCounts, cRecvDisp := cCounts(recvCounts, recvDisp)

	return processError(C.MPI_Alltoallv(unsafe.Pointer(&send[0]),
		&cSendCounts[0], &cSendDisp[0], float64Type,
		unsafe.Pointer(&recv[0]), &cRecvCounts[0], &cRecvDisp[0],
		float64Type, commWorld), "MPI_Alltoallv")
}
