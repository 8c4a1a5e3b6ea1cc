//go:build !mpi
// +build !mpi

package mpi

// Launch runs f on workers in-process workers and returns the first error
// any of them encountered.
func Launch(workers int, f func(comm Comm) error) error {
	return NewWorld(workers).Run(f)
}
