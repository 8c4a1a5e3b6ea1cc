/*package error contains simple funcitons for reporting fatal errors.
*/
package error

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/phil-mansfield/reion/lib/mpi"
)

// Logger is the logger that errors are reported to. Its ExitFunc is called
// after every report.
var Logger = logrus.StandardLogger()

// External reports an error and exits. It should be used when an error is
// something a user could reasonbly be expected to fix through changes in
// configuration/data/environement. It has the same signature at the standard
// fmt.*printf() functions.
func External(format string, a ...interface{}) {
	Logger.Errorf("reion exited early with the following error:\n"+format,
		a...)
	Logger.Exit(1)
}

// Internal reports an error along with a stack trace and exits. It should be
// used when the error requires a code dive to fix. It has the same signature
// at the standard fmt.*printf() functions.
func Internal(format string, a ...interface{}) {
	internal(fmt.Sprintf(format, a...), debug.Stack())
}

func internal(msg string, stack []byte) {
	Logger.WithField("stack", string(stack)).
		Errorf("reion exited early with the following internal error:\n%s",
			msg)
	Logger.Exit(1)
}

// Report reports a fatal error returned by a worker. Panics recovered from
// workers are reported as internal errors with the worker's stack trace.
func Report(err error) {
	var pErr *mpi.PanicError
	if errors.As(err, &pErr) {
		internal(pErr.Error(), pErr.Stack)
		return
	}
	External("%s", err.Error())
}
