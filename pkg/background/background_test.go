package background

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGo_RunsTask(t *testing.T) {
	var ran atomic.Bool

	wg := Go("test-task", func() {
		ran.Store(true)
	})
	wg.Wait()

	assert.True(t, ran.Load())
}

func TestGo_RecoversPanic(t *testing.T) {
	wg := Go("panicking-task", func() {
		panic("boom")
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "background goroutine did not finish after panic")
	}
}

func TestGo_TasksRunConcurrently(t *testing.T) {
	release := make(chan struct{})

	first := Go("blocked-task", func() {
		<-release
	})
	second := Go("free-task", func() {})

	second.Wait()
	close(release)
	first.Wait()
}
