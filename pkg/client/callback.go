package client

// Executor is the caller-supplied completion-callback queue (spec.md §5):
// every *Async operation completes on an Executor, never synchronously on
// the calling goroutine.
type Executor interface {
	Submit(fn func())
}

// GoExecutor is the default Executor: it submits each callback on its own
// goroutine. Callers that need in-order delivery (e.g. a single-threaded UI
// loop) should supply their own Executor backed by a single worker.
type GoExecutor struct{}

// Submit runs fn on a new goroutine.
func (GoExecutor) Submit(fn func()) { go fn() }

// RunAsync runs op on a new goroutine and, once it completes, submits
// callback(result, err) to exec (or GoExecutor{} if exec is nil). This is
// the shared shape behind every operation's *Async wrapper: the blocking
// leg and the callback delivery are both deferred off the calling
// goroutine, matching the "no callback invoked synchronously" contract.
func RunAsync[T any](exec Executor, op func() (T, error), callback func(T, error)) {
	if exec == nil {
		exec = GoExecutor{}
	}
	go func() {
		result, err := op()
		exec.Submit(func() { callback(result, err) })
	}()
}
