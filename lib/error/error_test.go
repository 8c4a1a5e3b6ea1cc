package error

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/phil-mansfield/reion/lib/mpi"
)

// captureLogger points Logger at a buffer and records exit codes instead of
// exiting.
func captureLogger(t *testing.T) (*bytes.Buffer, *[]int) {
	old := Logger
	t.Cleanup(func() { Logger = old })

	buf := &bytes.Buffer{}
	codes := &[]int{}
	Logger = logrus.New()
	Logger.Out = buf
	Logger.ExitFunc = func(code int) { *codes = append(*codes, code) }
	return buf, codes
}

func TestExternal(t *testing.T) {
	buf, codes := captureLogger(t)
	External("GridDim = %d is bad.", -3)
	assert.Equal(t, []int{1}, *codes)
	assert.Contains(t, buf.String(), "GridDim = -3 is bad.")
}

func TestInternal(t *testing.T) {
	buf, codes := captureLogger(t)
	Internal("index %d out of range", 12)
	assert.Equal(t, []int{1}, *codes)
	assert.Contains(t, buf.String(), "index 12 out of range")
	assert.Contains(t, buf.String(), "stack=")
}

func TestReport(t *testing.T) {
	buf, codes := captureLogger(t)

	Report(fmt.Errorf("worker 2: %w", &mpi.PanicError{
		Rank: 2, Value: "boom", Stack: []byte("frame_one"),
	}))
	assert.Contains(t, buf.String(), "worker 2 panicked: boom")
	assert.Contains(t, buf.String(), "frame_one")

	buf.Reset()
	Report(fmt.Errorf("worker 0: disk full"))
	assert.Contains(t, buf.String(), "worker 0: disk full")
	assert.NotContains(t, buf.String(), "stack=")
	assert.Equal(t, []int{1, 1}, *codes)
}
