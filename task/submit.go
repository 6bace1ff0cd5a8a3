package task

import "github.com/ringloop/ringloop/reactor"

// Submit is the composite awaitable spec.md §4.4 calls wait_for_sqe +
// uring_completion: it retries TryGetSQE until a submission-queue slot is
// available (suspending on the SQE waiter queue in between attempts),
// then suspends until the operation's completion is delivered.
func Submit(rt *Runtime, op *reactor.Operation) reactor.Result {
	for {
		p, ok := rt.Reactor.TryGetSQE(op)
		if !ok {
			rt.Suspend(func(resume func()) {
				rt.Reactor.EnqueueSQEWaiter(resume)
			})
			continue
		}
		if !p.Ready() {
			rt.Suspend(func(resume func()) {
				p.SetResume(resume)
			})
		}
		return p.Result()
	}
}
