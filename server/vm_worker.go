package server

import (
	"fmt"
	"sync"

	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/vm"
)

// Evaluation is the outcome of running one chunk on the worker.
type Evaluation struct {
	Result bytecode.Value
	Err    error // run-time error, nil on success
	Offset int   // offset of the last instruction started, -1 if none ran
}

// evalJob is one chunk waiting for the VM goroutine.
type evalJob struct {
	chunk *bytecode.Chunk
	done  chan evalReply
}

type evalReply struct {
	eval Evaluation
	err  error // worker failure, not a run-time error
}

// VMWorker serializes all VM access through a single goroutine.
// A VM owns one operand stack and instruction pointer; LSP handlers may
// run concurrently, so every execution goes through the worker.
type VMWorker struct {
	vm       *vm.VM
	jobs     chan evalJob
	quit     chan struct{}
	stopOnce sync.Once
}

// NewVMWorker creates a VMWorker and starts the processing goroutine.
func NewVMWorker(v *vm.VM) *VMWorker {
	w := &VMWorker{
		vm:   v,
		jobs: make(chan evalJob, 64),
		quit: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *VMWorker) loop() {
	for {
		select {
		case job := <-w.jobs:
			job.done <- w.run(job.chunk)
		case <-w.quit:
			return
		}
	}
}

// run executes chunk, tracking the last offset so errors can be placed
// on a source line. Panics are reported as worker failures.
func (w *VMWorker) run(chunk *bytecode.Chunk) (reply evalReply) {
	defer func() {
		if r := recover(); r != nil {
			reply = evalReply{err: fmt.Errorf("%v", r)}
		}
	}()

	eval := Evaluation{Offset: -1}
	w.vm.SetTracer(func(ev vm.TraceEvent) { eval.Offset = ev.Offset })
	defer w.vm.SetTracer(nil)

	eval.Result, eval.Err = w.vm.Run(chunk)
	return evalReply{eval: eval}
}

// Evaluate runs chunk on the VM goroutine and blocks until it completes.
// The returned error reports a stopped worker or a panic; run-time errors
// are in Evaluation.Err.
func (w *VMWorker) Evaluate(chunk *bytecode.Chunk) (Evaluation, error) {
	select {
	case <-w.quit:
		return Evaluation{}, ErrWorkerStopped.New()
	default:
	}

	job := evalJob{chunk: chunk, done: make(chan evalReply, 1)}
	select {
	case w.jobs <- job:
	case <-w.quit:
		return Evaluation{}, ErrWorkerStopped.New()
	}
	select {
	case reply := <-job.done:
		return reply.eval, reply.err
	case <-w.quit:
		return Evaluation{}, ErrWorkerStopped.New()
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once
// and from several goroutines.
func (w *VMWorker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
