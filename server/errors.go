package server

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrWorkerStopped is returned by VMWorker.Do after Stop.
	ErrWorkerStopped = errors.NewKind("vm worker stopped")

	// ErrShutDown is returned for requests that arrive after shutdown.
	ErrShutDown = errors.NewKind("language server is shut down")
)
