// Package background launches fire-and-forget goroutines with panic
// recovery, so a crashing task is logged and counted instead of taking
// the process down silently.
package background

import (
	"sync"

	"github.com/b-infra/opskit/pkg/logging"
	"github.com/b-infra/opskit/pkg/metrics"
)

// Go runs fn on its own goroutine. A panic inside fn is recovered,
// logged with a stack trace and counted under the task name. The
// returned WaitGroup-like handle lets callers that care wait for
// completion; fire-and-forget callers ignore it.
func Go(name string, fn func()) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.GetMetrics().RecordBackgroundPanic(name)
				logging.GetLogger().LogPanic(r, "background task panicked: "+name)
			}
		}()
		fn()
	}()

	return &wg
}
